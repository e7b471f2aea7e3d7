package frame

// TypeCode is the two-byte CQL column type code.
type TypeCode uint16

const (
	TypeCustom    TypeCode = 0x0000
	TypeAscii     TypeCode = 0x0001
	TypeBigint    TypeCode = 0x0002
	TypeBlob      TypeCode = 0x0003
	TypeBoolean   TypeCode = 0x0004
	TypeCounter   TypeCode = 0x0005
	TypeDecimal   TypeCode = 0x0006
	TypeDouble    TypeCode = 0x0007
	TypeFloat     TypeCode = 0x0008
	TypeInt       TypeCode = 0x0009
	TypeText      TypeCode = 0x000A
	TypeTimestamp TypeCode = 0x000B
	TypeUUID      TypeCode = 0x000C
	TypeVarchar   TypeCode = 0x000D
	TypeVarint    TypeCode = 0x000E
	TypeTimeUUID  TypeCode = 0x000F
	TypeInet      TypeCode = 0x0010
	TypeDate      TypeCode = 0x0011
	TypeTime      TypeCode = 0x0012
	TypeSmallint  TypeCode = 0x0013
	TypeTinyint   TypeCode = 0x0014
	TypeList      TypeCode = 0x0020
	TypeMap       TypeCode = 0x0021
	TypeSet       TypeCode = 0x0022
	TypeUDT       TypeCode = 0x0030
	TypeTuple     TypeCode = 0x0031
)

// ColumnType is a (possibly nested) CQL type, as carried in column
// metadata: a scalar has no Elem/Key/Value/Fields; List/Set set Elem; Map
// sets Key and Value; UDT and Tuple set Fields.
type ColumnType struct {
	Code   TypeCode
	Custom string // set when Code == TypeCustom
	Elem   *ColumnType
	Key    *ColumnType
	Value  *ColumnType
	Fields []ColumnType

	// UDT-specific metadata.
	Keyspace  string
	UDTName   string
	FieldNames []string
}

func decodeColumnType(r *Reader) ColumnType {
	code := TypeCode(r.ReadShort())
	t := ColumnType{Code: code}
	switch code {
	case TypeCustom:
		t.Custom = r.ReadString()
	case TypeList, TypeSet:
		elem := decodeColumnType(r)
		t.Elem = &elem
	case TypeMap:
		key := decodeColumnType(r)
		val := decodeColumnType(r)
		t.Key, t.Value = &key, &val
	case TypeUDT:
		t.Keyspace = r.ReadString()
		t.UDTName = r.ReadString()
		n := r.ReadShort()
		t.Fields = make([]ColumnType, 0, n)
		t.FieldNames = make([]string, 0, n)
		for i := uint16(0); i < n; i++ {
			t.FieldNames = append(t.FieldNames, r.ReadString())
			t.Fields = append(t.Fields, decodeColumnType(r))
		}
	case TypeTuple:
		n := r.ReadShort()
		t.Fields = make([]ColumnType, 0, n)
		for i := uint16(0); i < n; i++ {
			t.Fields = append(t.Fields, decodeColumnType(r))
		}
	}
	return t
}
