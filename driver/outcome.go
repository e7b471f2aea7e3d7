package driver

import "github.com/cqlshard/driver/cql/frame"

// Outcome is the terminal result of a Request: exactly one of Result or Err
// is set.
type Outcome struct {
	Op     frame.OpCode
	Result *frame.ResultBody
	Err    error
}

// RowBinder is implemented per keyspace/table to bind Go values into a
// statement's positional parameters and decode a raw row back into a
// caller-defined row type, matching the teacher's explicit typed
// EncodeType/message.Column marshaling rather than reflection-heavy
// generics (see SPEC_FULL.md, "Generics → interfaces").
type RowBinder interface {
	// BindValues appends the bound values for one invocation, in the
	// statement's declared parameter order.
	BindValues(key any) []frame.Value
	// DecodeRow converts one raw row (as yielded by frame.RowIterator) into
	// the caller's row representation.
	DecodeRow(columns []frame.ColumnSpec, row [][]byte) (any, error)
}
