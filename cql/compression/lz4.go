package compression

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// LZ4 implements the Codec interface using raw LZ4 block framing, matching
// what Cassandra/Scylla expect behind the STARTUP COMPRESSION=lz4 option.
type LZ4 struct{}

func (LZ4) Name() string { return "lz4" }

func (LZ4) Compress(body []byte) ([]byte, error) {
	if len(body) == 0 {
		return prependLength(0, nil), nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(body)))
	var c lz4.Compressor
	n, err := c.CompressBlock(body, dst)
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 compress: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("compression: lz4 block did not compress %d bytes", len(body))
	}
	return prependLength(len(body), dst[:n]), nil
}

func (LZ4) Decompress(body []byte) ([]byte, error) {
	uncompressedLen, rest, err := readLengthPrefix(body)
	if err != nil {
		return nil, err
	}
	if uncompressedLen == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, uncompressedLen)
	n, err := lz4.UncompressBlock(rest, dst)
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 decompress: %w", err)
	}
	return dst[:n], nil
}
