package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := Header{
		Version: ProtocolVersion,
		Flags:   FlagCompression,
		Stream:  42,
		OpCode:  OpQuery,
		BodyLen: 17,
	}
	encoded := h.Encode(nil)
	require.Len(t, encoded, HeaderSize)

	got, err := DecodeHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, h, got)
}

func TestDecodeHeaderRejectsOversizedBody(t *testing.T) {
	h := Header{Version: ProtocolVersion, OpCode: OpQuery, BodyLen: MaxBodyLen + 1}
	encoded := h.Encode(nil)
	_, err := DecodeHeader(encoded)
	require.Error(t, err)
}

func TestDecodeHeaderRejectsWrongLength(t *testing.T) {
	_, err := DecodeHeader([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestSetStreamPatchesInPlace(t *testing.T) {
	h := Header{Version: ProtocolVersion, OpCode: OpQuery, Stream: 1, BodyLen: 0}
	encoded := h.Encode(nil)
	SetStream(encoded, 99)

	got, err := DecodeHeader(encoded)
	require.NoError(t, err)
	require.Equal(t, StreamID(99), got.Stream)
}

func TestHeaderIsResponse(t *testing.T) {
	req := Header{Version: ProtocolVersion}
	resp := Header{Version: ProtocolVersion | directionMask}
	require.False(t, req.IsResponse())
	require.True(t, resp.IsResponse())
	require.Equal(t, ProtocolVersion, resp.ProtoVersion())
}
