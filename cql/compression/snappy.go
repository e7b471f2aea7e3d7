package compression

import (
	"fmt"

	"github.com/klauspost/compress/s2"
)

// Snappy implements the Codec interface using klauspost/compress's s2
// package, which is wire-compatible with the standard Snappy block format
// that Cassandra/Scylla expect behind STARTUP COMPRESSION=snappy.
type Snappy struct{}

func (Snappy) Name() string { return "snappy" }

func (Snappy) Compress(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return prependLength(0, nil), nil
	}
	compressed := s2.EncodeSnappy(nil, body)
	return prependLength(len(body), compressed), nil
}

func (Snappy) Decompress(body []byte) ([]byte, error) {
	uncompressedLen, rest, err := readLengthPrefix(body)
	if err != nil {
		return nil, err
	}
	if uncompressedLen == 0 {
		return []byte{}, nil
	}
	out, err := s2.Decode(make([]byte, 0, uncompressedLen), rest)
	if err != nil {
		return nil, fmt.Errorf("compression: snappy decompress: %w", err)
	}
	return out, nil
}
