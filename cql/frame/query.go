package frame

// Query flag bits (CQL v4 <flags> byte shared by QUERY and EXECUTE).
const (
	QueryFlagValues              byte = 0x01
	QueryFlagSkipMetadata        byte = 0x02
	QueryFlagPageSize            byte = 0x04
	QueryFlagWithPagingState     byte = 0x08
	QueryFlagWithSerialConsist   byte = 0x10
	QueryFlagWithDefaultTimestamp byte = 0x20
	QueryFlagWithNamesForValues  byte = 0x40
)

// Value is one bound value for a query or execute request, keeping the
// distinction between a provided byte string, an explicit NULL, and UNSET
// (protocol v4 lets the server use the column's existing value).
type Value struct {
	Bytes  []byte
	Null   bool
	Unset  bool
	Name   string // set when QueryFlagWithNamesForValues is used
}

// BoundValue wraps a regular (non-null, non-unset) value.
func BoundValue(b []byte) Value { return Value{Bytes: b} }

// NullValue is the CQL NULL marker.
func NullValue() Value { return Value{Null: true} }

// UnsetVal is the CQL v4 UNSET marker.
func UnsetVal() Value { return Value{Unset: true} }

func (v Value) write(w *Writer) {
	switch {
	case v.Null:
		w.WriteBytes(nil)
	case v.Unset:
		w.WriteUnset()
	default:
		w.WriteBytes(v.Bytes)
	}
}

// QueryParams are the parameters shared by the tail of QUERY and EXECUTE
// request bodies.
type QueryParams struct {
	Consistency       Consistency
	Values            []Value
	SkipMetadata      bool
	PageSize          int32
	PagingState       []byte
	SerialConsistency Consistency
	Timestamp         int64
	HasPageSize       bool
	HasPagingState    bool
	HasSerialConsist  bool
	HasTimestamp      bool
}

func (p QueryParams) flags() byte {
	var f byte
	if len(p.Values) > 0 {
		f |= QueryFlagValues
	}
	if p.SkipMetadata {
		f |= QueryFlagSkipMetadata
	}
	if p.HasPageSize {
		f |= QueryFlagPageSize
	}
	if p.HasPagingState {
		f |= QueryFlagWithPagingState
	}
	if p.HasSerialConsist {
		f |= QueryFlagWithSerialConsist
	}
	if p.HasTimestamp {
		f |= QueryFlagWithDefaultTimestamp
	}
	for _, v := range p.Values {
		if v.Name != "" {
			f |= QueryFlagWithNamesForValues
			break
		}
	}
	return f
}

func (p QueryParams) write(w *Writer) {
	w.WriteShort(uint16(p.Consistency))
	w.WriteByte(p.flags())
	if len(p.Values) > 0 {
		w.WriteShort(uint16(len(p.Values)))
		namesUsed := p.flags()&QueryFlagWithNamesForValues != 0
		for _, v := range p.Values {
			if namesUsed {
				w.WriteString(v.Name)
			}
			v.write(w)
		}
	}
	if p.HasPageSize {
		w.WriteInt(p.PageSize)
	}
	if p.HasPagingState {
		w.WriteBytes(p.PagingState)
	}
	if p.HasSerialConsist {
		w.WriteShort(uint16(p.SerialConsistency))
	}
	if p.HasTimestamp {
		w.WriteLong(p.Timestamp)
	}
}

// Query is a QUERY request: a CQL statement plus its bound parameters.
type Query struct {
	Statement string
	Params    QueryParams
}

func (Query) OpCode() OpCode { return OpQuery }

func (q Query) WriteBody(w *Writer) {
	w.WriteLongString(q.Statement)
	q.Params.write(w)
}

// Execute is an EXECUTE request: a prepared statement id plus bound
// parameters, avoiding re-sending the statement text.
type Execute struct {
	PreparedID [16]byte
	Params     QueryParams
}

func (Execute) OpCode() OpCode { return OpExecute }

func (e Execute) WriteBody(w *Writer) {
	w.WriteShortBytes(e.PreparedID[:])
	e.Params.write(w)
}
