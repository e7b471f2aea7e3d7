package reporter

import "github.com/cqlshard/driver/cql/frame"

// Payload is the per-connection slot vector shared by a connection's
// reporters, sender, and receiver. Access is disjoint by stream id at any
// given moment (only one of the three goroutines touches a given slot,
// determined by protocol phase), so no lock guards it.
type Payload struct {
	slots [][]byte
}

// NewPayload allocates a payload vector sized to the connection's total
// stream pool width.
func NewPayload(width int) *Payload {
	return &Payload{slots: make([][]byte, width)}
}

// Get returns the buffered frame bytes for stream id, or nil if unset.
func (p *Payload) Get(id frame.StreamID) []byte {
	return p.slots[int(id)]
}

// Set stores the frame bytes for stream id, copying into the slot's existing
// backing array when its capacity covers b and storing b itself otherwise.
// The reporter releases a slot each time its stream returns to the free
// list, so the slot is normally empty here and b is stored as is.
func (p *Payload) Set(id frame.StreamID, b []byte) {
	existing := p.slots[int(id)]
	if cap(existing) >= len(b) {
		existing = existing[:len(b)]
		copy(existing, b)
		p.slots[int(id)] = existing
		return
	}
	p.slots[int(id)] = b
}

// Buffer returns a slice of length n for stream id, reusing the slot's
// existing backing array when its capacity already covers n and allocating
// a replacement only when it doesn't. Used by the receiver to read a
// response body into the same slot the reporter will decode it from; that
// slot still holds the stream's request bytes, so a response no larger than
// its request reuses the request's backing array.
func (p *Payload) Buffer(id frame.StreamID, n int) []byte {
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

// Release clears the slot. The reporter calls it each time a stream returns
// to its free list, so a slot's backing array is not carried over to the
// next request on that stream.
func (p *Payload) Release(id frame.StreamID) {
	p.slots[int(id)] = nil
}
