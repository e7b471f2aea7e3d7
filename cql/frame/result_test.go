package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeResultVoid(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultVoid))
	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, ResultVoid, body.Kind)
	require.NotNil(t, body.Void)
}

func TestDecodeResultSetKeyspace(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultSetKeyspace))
	w.WriteString("myks")
	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, "myks", body.SetKeyspace.Keyspace)
}

func TestDecodeResultRowsWithScalarColumns(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultRows))
	w.WriteInt(int32(RowsFlagGlobalTableSpec))
	w.WriteInt(2) // column count
	w.WriteString("myks")
	w.WriteString("mytbl")
	w.WriteString("id")
	w.WriteShort(uint16(TypeInt))
	w.WriteString("name")
	w.WriteShort(uint16(TypeVarchar))
	w.WriteInt(1) // row count
	w.WriteBytes([]byte{0, 0, 0, 7})
	w.WriteBytes([]byte("alice"))

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, ResultRows, body.Kind)
	require.Len(t, body.Rows.Metadata.Columns, 2)
	require.Equal(t, "id", body.Rows.Metadata.Columns[0].Name)
	require.Equal(t, TypeInt, body.Rows.Metadata.Columns[0].Type.Code)
	require.Equal(t, TypeVarchar, body.Rows.Metadata.Columns[1].Type.Code)

	row, ok := body.Rows.Rows.Next()
	require.True(t, ok)
	require.Equal(t, []byte{0, 0, 0, 7}, row[0])
	require.Equal(t, []byte("alice"), row[1])

	_, ok = body.Rows.Rows.Next()
	require.False(t, ok)
}

func TestDecodeResultRowsWithListColumn(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultRows))
	w.WriteInt(int32(RowsFlagGlobalTableSpec))
	w.WriteInt(1)
	w.WriteString("myks")
	w.WriteString("mytbl")
	w.WriteString("tags")
	w.WriteShort(uint16(TypeList))
	w.WriteShort(uint16(TypeVarchar))
	w.WriteInt(0) // row count

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	col := body.Rows.Metadata.Columns[0]
	require.Equal(t, TypeList, col.Type.Code)
	require.NotNil(t, col.Type.Elem)
	require.Equal(t, TypeVarchar, col.Type.Elem.Code)
}

func TestDecodeResultRowsWithMapColumn(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultRows))
	w.WriteInt(int32(RowsFlagGlobalTableSpec))
	w.WriteInt(1)
	w.WriteString("myks")
	w.WriteString("mytbl")
	w.WriteString("attrs")
	w.WriteShort(uint16(TypeMap))
	w.WriteShort(uint16(TypeVarchar))
	w.WriteShort(uint16(TypeInt))
	w.WriteInt(0)

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	col := body.Rows.Metadata.Columns[0]
	require.Equal(t, TypeMap, col.Type.Code)
	require.Equal(t, TypeVarchar, col.Type.Key.Code)
	require.Equal(t, TypeInt, col.Type.Value.Code)
}

func TestDecodeResultRowsWithUDTColumn(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultRows))
	w.WriteInt(int32(RowsFlagGlobalTableSpec))
	w.WriteInt(1)
	w.WriteString("myks")
	w.WriteString("mytbl")
	w.WriteString("addr")
	w.WriteShort(uint16(TypeUDT))
	w.WriteString("myks")
	w.WriteString("address")
	w.WriteShort(2)
	w.WriteString("street")
	w.WriteShort(uint16(TypeVarchar))
	w.WriteString("zip")
	w.WriteShort(uint16(TypeInt))
	w.WriteInt(0)

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	col := body.Rows.Metadata.Columns[0]
	require.Equal(t, TypeUDT, col.Type.Code)
	require.Equal(t, "address", col.Type.UDTName)
	require.Equal(t, []string{"street", "zip"}, col.Type.FieldNames)
	require.Len(t, col.Type.Fields, 2)
	require.Equal(t, TypeVarchar, col.Type.Fields[0].Code)
	require.Equal(t, TypeInt, col.Type.Fields[1].Code)
}

func TestDecodeResultPrepared(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultPrepared))
	id := [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	w.WriteShortBytes(id[:])
	w.WriteInt(int32(RowsFlagGlobalTableSpec)) // variables metadata flags
	w.WriteInt(1)                              // variables column count
	w.WriteInt(0)                              // pk_count
	w.WriteString("myks")
	w.WriteString("mytbl")
	w.WriteString("id")
	w.WriteShort(uint16(TypeInt))
	w.WriteInt(int32(RowsFlagNoMetadata)) // result metadata flags
	w.WriteInt(0)                         // result column count

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, id, body.Prepared.ID)
	require.Len(t, body.Prepared.VariablesMetadata.Columns, 1)
	require.True(t, body.Prepared.ResultMetadata.Flags&RowsFlagNoMetadata != 0)
}

func TestDecodeResultSchemaChangeKeyspace(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultSchemaChange))
	w.WriteString("CREATED")
	w.WriteString("KEYSPACE")
	w.WriteString("myks")

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, "CREATED", body.SchemaChange.ChangeType)
	require.Equal(t, "myks", body.SchemaChange.Keyspace)
	require.Empty(t, body.SchemaChange.Object)
}

func TestDecodeResultSchemaChangeTable(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ResultSchemaChange))
	w.WriteString("UPDATED")
	w.WriteString("TABLE")
	w.WriteString("myks")
	w.WriteString("mytbl")

	resp, err := DecodeResponse(OpResult, w.Bytes())
	require.NoError(t, err)
	body := resp.(*ResultBody)
	require.Equal(t, "mytbl", body.SchemaChange.Object)
}

func TestDecodeResultUnknownKind(t *testing.T) {
	w := NewWriter()
	w.WriteInt(0x00FF)
	_, err := DecodeResponse(OpResult, w.Bytes())
	require.Error(t, err)
}
