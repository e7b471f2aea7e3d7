package compression

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte("SELECT * FROM ks.t WHERE k = 'a'"),
		bytes.Repeat([]byte{0xAB}, 4096),
		[]byte{},
	}
	for _, codec := range []Codec{Uncompressed{}, LZ4{}, Snappy{}} {
		for _, body := range payloads {
			compressed, err := codec.Compress(body)
			require.NoError(t, err, codec.Name())
			decompressed, err := codec.Decompress(compressed)
			require.NoError(t, err, codec.Name())
			require.Equal(t, body, decompressed, "codec=%s", codec.Name())
		}
	}
}

func TestZeroLengthRoundTripsAsFourZeroBytes(t *testing.T) {
	for _, codec := range []Codec{LZ4{}, Snappy{}} {
		compressed, err := codec.Compress(nil)
		require.NoError(t, err)
		require.Equal(t, []byte{0, 0, 0, 0}, compressed, codec.Name())
	}
}

func TestByName(t *testing.T) {
	c, err := ByName("lz4")
	require.NoError(t, err)
	require.Equal(t, "lz4", c.Name())

	c, err = ByName("")
	require.NoError(t, err)
	require.Equal(t, "", c.Name())

	_, err = ByName("rot13")
	require.Error(t, err)
}
