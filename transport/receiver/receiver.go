// Package receiver reads framed responses off a connection's read half and
// demultiplexes them to the reporter owning each response's stream id.
package receiver

import (
	"context"
	"io"
	"net"

	"github.com/cqlshard/driver/cql/compression"
	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/transport/reporter"
)

// ReporterHandle is the subset of *reporter.Reporter the receiver needs to
// deliver a decoded frame or report a decode failure.
type ReporterHandle interface {
	Deliver(h frame.Header, body []byte)
	Fail(stream frame.StreamID, err error)
}

// DisconnectFunc is invoked once, from Run's goroutine, when the read loop
// ends (EOF or fatal error) so the owning stage can transition out of
// Running.
type DisconnectFunc func(err error)

// PayloadBuffer is the subset of *reporter.Payload the receiver needs to
// reuse the connection's shared per-stream buffers for inbound bodies.
type PayloadBuffer interface {
	Buffer(id frame.StreamID, n int) []byte
}

// Receiver owns the read half of one connection.
type Receiver struct {
	r            net.Conn
	codec        compression.Codec
	appendsNum   int
	reporters    []ReporterHandle
	payload      PayloadBuffer
	onDisconnect DisconnectFunc
}

// New builds a Receiver over the connection's read half. reporters must be
// indexed by reporter id (stream / appendsNum). payload is the same
// per-connection slot vector the reporters/sender use for request bytes;
// the receiver reuses its per-stream backing array for response bodies
// rather than allocating a fresh buffer per frame.
func New(r net.Conn, codec compression.Codec, appendsNum int, reporters []ReporterHandle, payload PayloadBuffer, onDisconnect DisconnectFunc) *Receiver {
	return &Receiver{r: r, codec: codec, appendsNum: appendsNum, reporters: reporters, payload: payload, onDisconnect: onDisconnect}
}

// Run reads frames until ctx is canceled, EOF, or a fatal read error, then
// invokes onDisconnect exactly once.
func (recv *Receiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			recv.onDisconnect(ctx.Err())
			return
		default:
		}

		var hdrBuf [frame.HeaderSize]byte
		if _, err := io.ReadFull(recv.r, hdrBuf[:]); err != nil {
			recv.onDisconnect(err)
			return
		}
		h, err := frame.DecodeHeader(hdrBuf[:])
		if err != nil {
			// A malformed header leaves the stream unrecoverable: there is
			// no reliable way to resync on the byte stream, so the
			// connection is treated as lost.
			recv.onDisconnect(err)
			return
		}

		body := recv.payload.Buffer(h.Stream, int(h.BodyLen))
		if _, err := io.ReadFull(recv.r, body); err != nil {
			recv.onDisconnect(err)
			return
		}

		if h.Flags&frame.FlagCompression != 0 {
			body, err = recv.codec.Decompress(body)
			if err != nil {
				recv.owner(h.Stream).Fail(h.Stream, err)
				continue
			}
		}
		recv.owner(h.Stream).Deliver(h, body)
	}
}

func (recv *Receiver) owner(stream frame.StreamID) ReporterHandle {
	return recv.reporters[reporter.ReporterFor(stream, recv.appendsNum)]
}
