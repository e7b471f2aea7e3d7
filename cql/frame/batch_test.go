package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatchWriteBodyRoundTrip(t *testing.T) {
	b := Batch{
		Kind: BatchLogged,
		Entries: []BatchEntry{
			{Kind: BatchEntryQuery, Statement: "UPDATE ks.tbl SET v=? WHERE k=?", Values: []Value{BoundValue([]byte("v")), BoundValue([]byte("k"))}},
			{Kind: BatchEntryPrepared, PreparedID: [16]byte{1}, Values: []Value{BoundValue([]byte("x"))}},
		},
		Consistency: ConsistencyQuorum,
	}
	w := NewWriter()
	b.WriteBody(w)

	r := NewReader(w.Bytes())
	require.Equal(t, byte(BatchLogged), r.ReadByte())
	require.Equal(t, uint16(2), r.ReadShort())

	require.Equal(t, byte(BatchEntryQuery), r.ReadByte())
	require.Equal(t, "UPDATE ks.tbl SET v=? WHERE k=?", r.ReadLongString())
	require.Equal(t, uint16(2), r.ReadShort())
	v1, _, _ := r.ReadBytes()
	require.Equal(t, []byte("v"), v1)
	v2, _, _ := r.ReadBytes()
	require.Equal(t, []byte("k"), v2)

	require.Equal(t, byte(BatchEntryPrepared), r.ReadByte())
	id := r.ReadShortBytes()
	require.Equal(t, b.Entries[1].PreparedID[:], id)
	require.Equal(t, uint16(1), r.ReadShort())
	v3, _, _ := r.ReadBytes()
	require.Equal(t, []byte("x"), v3)

	require.Equal(t, uint16(ConsistencyQuorum), r.ReadShort())
	require.Equal(t, byte(0), r.ReadByte())
	require.NoError(t, r.Err())
}

func TestBatchFlagsWithTimestampAndSerialConsist(t *testing.T) {
	b := Batch{HasSerialConsist: true, HasTimestamp: true}
	require.Equal(t, BatchFlagWithSerialConsist|BatchFlagWithDefaultTimestamp, b.flags())
}
