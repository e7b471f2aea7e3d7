// Package frame implements the CQL v4 binary protocol frame codec: the
// 9-byte header, the primitive type encoders/decoders, and the request and
// response frame bodies built on top of them.
package frame

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed size of a CQL frame header in bytes.
const HeaderSize = 9

// MaxBodyLen is the largest body a frame may carry, per the protocol spec.
const MaxBodyLen = 256 * 1024 * 1024

// Flag bits carried in the header's second byte.
const (
	FlagCompression  byte = 0x01
	FlagTracing      byte = 0x02
	FlagCustomPayload byte = 0x04
	FlagWarning      byte = 0x08
)

// directionMask isolates the request/response bit (0x80) of the version byte.
const directionMask = 0x80

// ProtocolVersion is the CQL protocol version this driver speaks.
const ProtocolVersion byte = 4

// StreamID identifies one in-flight request/response pair on a connection.
type StreamID int16

// Header is the 9-byte frame header shared by every request and response.
type Header struct {
	Version byte
	Flags   byte
	Stream  StreamID
	OpCode  OpCode
	BodyLen uint32
}

// IsResponse reports whether the header's version byte marks a response.
func (h Header) IsResponse() bool {
	return h.Version&directionMask != 0
}

// ProtoVersion returns the version number with the direction bit masked off.
func (h Header) ProtoVersion() byte {
	return h.Version &^ directionMask
}

// NewRequestHeader builds a header for a client request with the given opcode.
// Stream is left at zero; the reporter patches it in before the frame is sent.
func NewRequestHeader(op OpCode) Header {
	return Header{
		Version: ProtocolVersion,
		OpCode:  op,
	}
}

// Encode appends the header's wire representation to dst and returns it.
func (h Header) Encode(dst []byte) []byte {
	var buf [HeaderSize]byte
	buf[0] = h.Version
	buf[1] = h.Flags
	binary.BigEndian.PutUint16(buf[2:4], uint16(h.Stream))
	buf[4] = byte(h.OpCode)
	binary.BigEndian.PutUint32(buf[5:9], h.BodyLen)
	return append(dst, buf[:]...)
}

// DecodeHeader parses a 9-byte header from b.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) != HeaderSize {
		return Header{}, fmt.Errorf("frame: decode header: want %d bytes, got %d", HeaderSize, len(b))
	}
	bodyLen := binary.BigEndian.Uint32(b[5:9])
	if bodyLen > MaxBodyLen {
		return Header{}, fmt.Errorf("frame: decode header: body length %d exceeds max %d", bodyLen, MaxBodyLen)
	}
	return Header{
		Version: b[0],
		Flags:   b[1],
		Stream:  StreamID(binary.BigEndian.Uint16(b[2:4])),
		OpCode:  OpCode(b[4]),
		BodyLen: bodyLen,
	}, nil
}

// SetStream patches the stream id in an already-encoded frame's header bytes
// in place, at offsets [2:4). This is how the reporter reassigns a stream to
// a buffered payload without re-encoding the body.
func SetStream(payload []byte, stream StreamID) {
	binary.BigEndian.PutUint16(payload[2:4], uint16(stream))
}
