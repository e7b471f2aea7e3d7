package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeResponseReady(t *testing.T) {
	resp, err := DecodeResponse(OpReady, nil)
	require.NoError(t, err)
	require.IsType(t, &ReadyBody{}, resp)
}

func TestDecodeResponseAuthenticate(t *testing.T) {
	w := NewWriter()
	w.WriteString("org.apache.cassandra.auth.PasswordAuthenticator")
	resp, err := DecodeResponse(OpAuthenticate, w.Bytes())
	require.NoError(t, err)
	auth, ok := resp.(*AuthenticateBody)
	require.True(t, ok)
	require.Equal(t, "org.apache.cassandra.auth.PasswordAuthenticator", auth.Authenticator)
}

func TestDecodeResponseSupported(t *testing.T) {
	w := NewWriter()
	w.WriteStringMultimap(map[string][]string{"COMPRESSION": {"lz4", "snappy"}})
	resp, err := DecodeResponse(OpSupported, w.Bytes())
	require.NoError(t, err)
	sup, ok := resp.(*SupportedBody)
	require.True(t, ok)
	require.ElementsMatch(t, []string{"lz4", "snappy"}, sup.Options["COMPRESSION"])
}

func TestDecodeResponseErrorUnprepared(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ErrorUnprepared))
	w.WriteString("Unprepared statement")
	w.WriteShortBytes([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16})

	resp, err := DecodeResponse(OpError, w.Bytes())
	require.NoError(t, err)
	errBody, ok := resp.(*ErrorBody)
	require.True(t, ok)
	require.Equal(t, ErrorUnprepared, errBody.Code)
	require.Equal(t, [16]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}, errBody.UnpreparedID)
	require.Contains(t, errBody.Error(), "UNPREPARED")
}

func TestDecodeResponseErrorAlreadyExists(t *testing.T) {
	w := NewWriter()
	w.WriteInt(int32(ErrorAlreadyExists))
	w.WriteString("table already exists")
	w.WriteString("myks")
	w.WriteString("mytbl")

	resp, err := DecodeResponse(OpError, w.Bytes())
	require.NoError(t, err)
	errBody := resp.(*ErrorBody)
	require.Equal(t, "myks", errBody.AlreadyExistsKeyspace)
	require.Equal(t, "mytbl", errBody.AlreadyExistsTable)
}

func TestDecodeResponseEvent(t *testing.T) {
	w := NewWriter()
	w.WriteString("STATUS_CHANGE")
	w.WriteString("UP")
	resp, err := DecodeResponse(OpEvent, w.Bytes())
	require.NoError(t, err)
	ev := resp.(*EventBody)
	require.Equal(t, "STATUS_CHANGE", ev.Type)
}

func TestDecodeResponseUnknownOpCode(t *testing.T) {
	_, err := DecodeResponse(OpStartup, nil)
	require.Error(t, err)
}
