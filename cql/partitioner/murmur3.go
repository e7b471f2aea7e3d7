// Package partitioner implements Cassandra/Scylla's Murmur3Partitioner: a
// 128-bit Murmur3 hash of a partition key, truncated to its high 64 bits and
// interpreted as a signed token.
package partitioner

import (
	"bytes"
	"encoding/binary"

	"github.com/twmb/murmur3"
)

// Token is a position on the partitioner's ring; the full signed 64-bit
// range is valid.
type Token int64

// MinToken and MaxToken bound the token space.
const (
	MinToken Token = -1 << 63
	MaxToken Token = 1<<63 - 1
)

// BuildPartitionKey concatenates partition key column values in declaration
// order. A single-column key is used verbatim; a composite key length-
// prefixes each component with a [short] followed by a zero end-of-component
// marker byte, matching Cassandra's CompositeType encoding.
func BuildPartitionKey(columns [][]byte) []byte {
	if len(columns) == 1 {
		return columns[0]
	}
	var buf bytes.Buffer
	for _, c := range columns {
		var lenPrefix [2]byte
		binary.BigEndian.PutUint16(lenPrefix[:], uint16(len(c)))
		buf.Write(lenPrefix[:])
		buf.Write(c)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

// HashToken computes the Murmur3-128 Cassandra variant token for a
// (possibly composite) partition key. The high 64-bit word of the 128-bit
// hash, interpreted as a signed int64, is the token — implementers must
// match Cassandra's exact algorithm or routing silently misroutes.
func HashToken(partitionKey []byte) Token {
	h1, _ := murmur3.Sum128(partitionKey)
	return Token(int64(h1))
}
