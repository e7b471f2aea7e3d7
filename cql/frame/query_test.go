package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueryWriteBodyRoundTrip(t *testing.T) {
	q := Query{
		Statement: "SELECT * FROM ks.tbl WHERE id = ?",
		Params: QueryParams{
			Consistency: ConsistencyQuorum,
			Values:      []Value{BoundValue([]byte{1, 2, 3})},
			HasPageSize: true,
			PageSize:    100,
		},
	}
	w := NewWriter()
	q.WriteBody(w)

	r := NewReader(w.Bytes())
	statement := r.ReadLongString()
	require.Equal(t, q.Statement, statement)

	consistency := r.ReadShort()
	require.Equal(t, uint16(ConsistencyQuorum), consistency)

	flags := r.ReadByte()
	require.Equal(t, QueryFlagValues|QueryFlagPageSize, flags)

	count := r.ReadShort()
	require.Equal(t, uint16(1), count)

	val, isNull, isUnset := r.ReadBytes()
	require.False(t, isNull)
	require.False(t, isUnset)
	require.Equal(t, []byte{1, 2, 3}, val)

	pageSize := r.ReadInt()
	require.Equal(t, int32(100), pageSize)
	require.NoError(t, r.Err())
}

func TestQueryParamsFlagsWithNamedValues(t *testing.T) {
	p := QueryParams{Values: []Value{{Bytes: []byte("x"), Name: "col"}}}
	require.Equal(t, QueryFlagValues|QueryFlagWithNamesForValues, p.flags())
}

func TestValueWriteVariants(t *testing.T) {
	for _, tc := range []struct {
		name string
		v    Value
	}{
		{"bound", BoundValue([]byte("hi"))},
		{"null", NullValue()},
		{"unset", UnsetVal()},
	} {
		t.Run(tc.name, func(t *testing.T) {
			w := NewWriter()
			tc.v.write(w)
			r := NewReader(w.Bytes())
			_, isNull, isUnset := r.ReadBytes()
			require.NoError(t, r.Err())
			require.Equal(t, tc.v.Null, isNull)
			require.Equal(t, tc.v.Unset, isUnset)
		})
	}
}

func TestExecuteWriteBodyRoundTrip(t *testing.T) {
	e := Execute{
		PreparedID: [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		Params:     QueryParams{Consistency: ConsistencyOne},
	}
	w := NewWriter()
	e.WriteBody(w)

	r := NewReader(w.Bytes())
	id := r.ReadShortBytes()
	require.Equal(t, e.PreparedID[:], id)
	consistency := r.ReadShort()
	require.Equal(t, uint16(ConsistencyOne), consistency)
	require.NoError(t, r.Err())
}
