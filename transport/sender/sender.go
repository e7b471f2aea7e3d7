// Package sender drains a queue of stream ids and writes their buffered
// frame bytes to the connection's write half, one goroutine per connection.
package sender

import (
	"context"
	"net"

	"github.com/eapache/queue"

	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/transport/reporter"
)

// ReporterHandle is the subset of *reporter.Reporter the sender needs to
// report a write failure back to the owning reporter.
type ReporterHandle interface {
	Fail(stream frame.StreamID, err error)
}

// Sender owns the write half of one connection. Construct with New and run
// it with Run in its own goroutine; feed it stream ids via Inbox().
type Sender struct {
	w          net.Conn
	payload    *reporter.Payload
	appendsNum int
	reporters  []ReporterHandle

	inbox   chan frame.StreamID
	backlog *queue.Queue
}

// New builds a Sender over the connection's write half. reporters must be
// indexed by reporter id (stream / appendsNum).
func New(w net.Conn, payload *reporter.Payload, appendsNum int, reporters []ReporterHandle) *Sender {
	return &Sender{
		w:          w,
		payload:    payload,
		appendsNum: appendsNum,
		reporters:  reporters,
		inbox:      make(chan frame.StreamID, appendsNum*len(reporters)*2),
		backlog:    queue.New(),
	}
}

// Inbox returns the channel reporters send ready-to-write stream ids on.
func (s *Sender) Inbox() chan<- frame.StreamID {
	return s.inbox
}

// Run writes buffered payloads to the socket in the order their stream ids
// arrive on the inbox, until ctx is canceled or the channel closes. A
// backlog queue (eapache/queue, a ring buffer) absorbs any burst beyond the
// channel's buffer without reslicing.
func (s *Sender) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case stream, ok := <-s.inbox:
			if !ok {
				return
			}
			s.backlog.Add(stream)
		}
		for s.backlog.Length() > 0 {
			stream := s.backlog.Remove().(frame.StreamID)
			s.write(stream)
		}
	}
}

func (s *Sender) write(stream frame.StreamID) {
	payload := s.payload.Get(stream)
	if _, err := s.w.Write(payload); err != nil {
		s.ownerOf(stream).Fail(stream, err)
	}
}

func (s *Sender) ownerOf(stream frame.StreamID) ReporterHandle {
	return s.reporters[reporter.ReporterFor(stream, s.appendsNum)]
}
