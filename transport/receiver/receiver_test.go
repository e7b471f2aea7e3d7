package receiver

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cqlshard/driver/cql/compression"
	"github.com/cqlshard/driver/cql/frame"
)

type fakeReporterHandle struct {
	delivered []frame.Header
	failed    []frame.StreamID
}

func (f *fakeReporterHandle) Deliver(h frame.Header, body []byte) { f.delivered = append(f.delivered, h) }
func (f *fakeReporterHandle) Fail(stream frame.StreamID, err error) {
	f.failed = append(f.failed, stream)
}

// fakePayload stands in for the connection's shared reporter.Payload,
// mirroring its reuse-if-big-enough-else-grow discipline.
type fakePayload struct {
	slots [][]byte
}

func newFakePayload(width int) *fakePayload {
	return &fakePayload{slots: make([][]byte, width)}
}

func (p *fakePayload) Buffer(id frame.StreamID, n int) []byte {
	existing := p.slots[int(id)]
	if cap(existing) >= n {
		existing = existing[:n]
		p.slots[int(id)] = existing
		return existing
	}
	buf := make([]byte, n)
	p.slots[int(id)] = buf
	return buf
}

func TestReceiverDeliversDecodedFrameToOwningReporter(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	handle := &fakeReporterHandle{}
	recv := New(client, compression.Uncompressed{}, 4, []ReporterHandle{handle}, newFakePayload(4), func(error) {})

	disconnected := make(chan struct{})
	go func() {
		recv.Run(context.Background())
		close(disconnected)
	}()

	h := frame.Header{Version: 0x84, OpCode: frame.OpResult, Stream: 2, BodyLen: 4}
	encoded := h.Encode(nil)
	encoded = append(encoded, 0, 0, 0, 1)

	go func() {
		server.Write(encoded)
	}()

	require.Eventually(t, func() bool {
		return len(handle.delivered) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, frame.StreamID(2), handle.delivered[0].Stream)

	server.Close()
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("receiver did not exit after disconnect")
	}
}

func TestReceiverInvokesOnDisconnectOnEOF(t *testing.T) {
	client, server := net.Pipe()
	server.Close()

	var gotErr error
	done := make(chan struct{})
	recv := New(client, compression.Uncompressed{}, 1, []ReporterHandle{&fakeReporterHandle{}}, newFakePayload(1), func(err error) {
		gotErr = err
		close(done)
	})

	go recv.Run(context.Background())

	select {
	case <-done:
		require.Error(t, gotErr)
	case <-time.After(time.Second):
		t.Fatal("expected onDisconnect to fire")
	}
}
