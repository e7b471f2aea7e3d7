// Package compression implements the Uncompressed, LZ4, and Snappy body
// codecs used by the CQL v4 frame compression flag.
package compression

import (
	"encoding/binary"
	"fmt"
)

// Codec (de)compresses a CQL frame body. LZ4 and Snappy bodies carry a
// 4-byte big-endian uncompressed-length prefix ahead of the compressed
// payload; Uncompressed is the identity codec.
type Codec interface {
	// Name is the STARTUP COMPRESSION option value, e.g. "lz4" or "snappy".
	Name() string
	// Compress returns body prefixed with its big-endian uncompressed length.
	Compress(body []byte) ([]byte, error)
	// Decompress strips the length prefix and inflates the remainder.
	Decompress(body []byte) ([]byte, error)
}

// ByName looks up a Codec by its STARTUP COMPRESSION option name.
func ByName(name string) (Codec, error) {
	switch name {
	case "", "none":
		return Uncompressed{}, nil
	case "lz4":
		return LZ4{}, nil
	case "snappy":
		return Snappy{}, nil
	default:
		return nil, fmt.Errorf("compression: unknown algorithm %q", name)
	}
}

func prependLength(uncompressedLen int, compressed []byte) []byte {
	out := make([]byte, 4+len(compressed))
	binary.BigEndian.PutUint32(out[:4], uint32(uncompressedLen))
	copy(out[4:], compressed)
	return out
}

func readLengthPrefix(body []byte) (uncompressedLen int, rest []byte, err error) {
	if len(body) < 4 {
		return 0, nil, fmt.Errorf("compression: body too small for length prefix: %d bytes", len(body))
	}
	n := binary.BigEndian.Uint32(body[:4])
	return int(n), body[4:], nil
}

// Uncompressed is the identity codec (STARTUP COMPRESSION unset).
type Uncompressed struct{}

func (Uncompressed) Name() string { return "" }

func (Uncompressed) Compress(body []byte) ([]byte, error) {
	return body, nil
}

func (Uncompressed) Decompress(body []byte) ([]byte, error) {
	return body, nil
}
