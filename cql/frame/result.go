package frame

import "fmt"

// ResultKind is the four-byte kind tag of a RESULT response.
type ResultKind uint32

const (
	ResultVoid         ResultKind = 0x0001
	ResultRows         ResultKind = 0x0002
	ResultSetKeyspace  ResultKind = 0x0003
	ResultPrepared     ResultKind = 0x0004
	ResultSchemaChange ResultKind = 0x0005
)

// Rows metadata flag bits.
const (
	RowsFlagGlobalTableSpec byte = 0x01
	RowsFlagHasMorePages    byte = 0x02
	RowsFlagNoMetadata      byte = 0x04
)

// ColumnSpec describes one column in a RowsMetadata.
type ColumnSpec struct {
	Keyspace string
	Table    string
	Name     string
	Type     ColumnType
}

// RowsMetadata precedes the row data of a Rows result (and is embedded in a
// Prepared result to describe bind variables and, optionally, result columns).
type RowsMetadata struct {
	Flags       byte
	ColumnCount int32
	PagingState []byte
	GlobalKeyspace string
	GlobalTable    string
	Columns     []ColumnSpec
}

func (m RowsMetadata) HasMorePages() bool { return m.Flags&RowsFlagHasMorePages != 0 }

func decodeRowsMetadata(r *Reader) RowsMetadata {
	var m RowsMetadata
	m.Flags = byte(r.ReadInt())
	m.ColumnCount = r.ReadInt()
	if m.Flags&RowsFlagHasMorePages != 0 {
		ps, _, _ := r.ReadBytes()
		m.PagingState = ps
	}
	if m.Flags&RowsFlagNoMetadata != 0 {
		return m
	}
	globalSpec := m.Flags&RowsFlagGlobalTableSpec != 0
	if globalSpec {
		m.GlobalKeyspace = r.ReadString()
		m.GlobalTable = r.ReadString()
	}
	m.Columns = make([]ColumnSpec, 0, m.ColumnCount)
	for i := int32(0); i < m.ColumnCount; i++ {
		var c ColumnSpec
		if !globalSpec {
			c.Keyspace = r.ReadString()
			c.Table = r.ReadString()
		}
		c.Name = r.ReadString()
		c.Type = decodeColumnType(r)
		m.Columns = append(m.Columns, c)
	}
	return m
}

// RowIterator lazily yields one row (a slice of raw [bytes] cells) per Next
// call, so a pass-through proxy never has to materialize an entire page.
type RowIterator struct {
	r         *Reader
	remaining int32
	numCols   int32
}

// Next decodes and returns the next row, or ok=false once the row count is
// exhausted.
func (it *RowIterator) Next() (row [][]byte, ok bool) {
	if it.remaining <= 0 {
		return nil, false
	}
	it.remaining--
	row = make([][]byte, it.numCols)
	for i := int32(0); i < it.numCols; i++ {
		b, isNull, _ := it.r.ReadBytes()
		if isNull {
			row[i] = nil
		} else {
			row[i] = b
		}
	}
	return row, true
}

// Remaining reports how many rows have not yet been consumed.
func (it *RowIterator) Remaining() int32 { return it.remaining }

// RowsResult is the decoded body of a Rows RESULT.
type RowsResult struct {
	Metadata RowsMetadata
	Rows     *RowIterator
}

// PreparedVariablesMetadata is the v4 bind-variable metadata section of a
// Prepared result: the same column-spec layout as RowsMetadata, preceded by
// the partition-key column indexes used for token-aware routing.
type PreparedVariablesMetadata struct {
	RowsMetadata
	PartitionKeyIndexes []uint16
}

func decodePreparedVariablesMetadata(r *Reader) PreparedVariablesMetadata {
	var m PreparedVariablesMetadata
	m.Flags = byte(r.ReadInt())
	m.ColumnCount = r.ReadInt()
	pkCount := r.ReadInt()
	m.PartitionKeyIndexes = make([]uint16, pkCount)
	for i := int32(0); i < pkCount; i++ {
		m.PartitionKeyIndexes[i] = r.ReadShort()
	}
	if m.Flags&RowsFlagNoMetadata != 0 {
		return m
	}
	globalSpec := m.Flags&RowsFlagGlobalTableSpec != 0
	if globalSpec {
		m.GlobalKeyspace = r.ReadString()
		m.GlobalTable = r.ReadString()
	}
	m.Columns = make([]ColumnSpec, 0, m.ColumnCount)
	for i := int32(0); i < m.ColumnCount; i++ {
		var c ColumnSpec
		if !globalSpec {
			c.Keyspace = r.ReadString()
			c.Table = r.ReadString()
		}
		c.Name = r.ReadString()
		c.Type = decodeColumnType(r)
		m.Columns = append(m.Columns, c)
	}
	return m
}

// PreparedResult is the decoded body of a Prepared RESULT. Protocol v4 has
// no ResultMetadataID (that field is v5-only); the bind-variable metadata
// carries a pk_count/pk_index section the plain Rows metadata doesn't.
type PreparedResult struct {
	ID                [16]byte
	VariablesMetadata PreparedVariablesMetadata
	ResultMetadata    RowsMetadata
}

// SchemaChangeResult is the decoded body of a SchemaChange RESULT.
type SchemaChangeResult struct {
	ChangeType string
	Target     string
	Keyspace   string
	Object     string
}

// SetKeyspaceResult is the decoded body of a SetKeyspace RESULT.
type SetKeyspaceResult struct {
	Keyspace string
}

// ResultBody wraps the one variant that DecodeResponse actually produced;
// exactly one of its pointer fields is non-nil.
type ResultBody struct {
	Kind          ResultKind
	Void          *struct{}
	Rows          *RowsResult
	SetKeyspace   *SetKeyspaceResult
	Prepared      *PreparedResult
	SchemaChange  *SchemaChangeResult
}

func (*ResultBody) isResponse() {}

func decodeResult(r *Reader) (*ResultBody, error) {
	kind := ResultKind(uint32(r.ReadInt()))
	body := &ResultBody{Kind: kind}
	switch kind {
	case ResultVoid:
		body.Void = &struct{}{}
	case ResultSetKeyspace:
		body.SetKeyspace = &SetKeyspaceResult{Keyspace: r.ReadString()}
	case ResultRows:
		md := decodeRowsMetadata(r)
		rowCount := r.ReadInt()
		body.Rows = &RowsResult{
			Metadata: md,
			Rows:     &RowIterator{r: r, remaining: rowCount, numCols: md.ColumnCount},
		}
		// The iterator consumes the reader lazily; return before forcing
		// decode of row bytes so a proxy can forward the header and stream
		// rows through without full materialization.
		return body, nil
	case ResultPrepared:
		id := r.ReadShortBytes()
		var p PreparedResult
		copy(p.ID[:], id)
		p.VariablesMetadata = decodePreparedVariablesMetadata(r)
		p.ResultMetadata = decodeRowsMetadata(r)
		body.Prepared = &p
	case ResultSchemaChange:
		body.SchemaChange = &SchemaChangeResult{
			ChangeType: r.ReadString(),
			Target:     r.ReadString(),
			Keyspace:   r.ReadString(),
		}
		if body.SchemaChange.Target != "KEYSPACE" {
			body.SchemaChange.Object = r.ReadString()
		}
	default:
		return nil, fmt.Errorf("%w: unknown result kind 0x%04X", ErrInvalidFrame, uint32(kind))
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return body, nil
}
