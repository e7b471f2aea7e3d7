// Package driver is the request pipeline: it turns a Keyspace operation
// into a CQL frame payload, routes it through the cluster's token ring to
// the node/shard owning the partition, and drives the worker's retry
// policy on the errors the reporter surfaces.
package driver

import "github.com/cqlshard/driver/cql/frame"

// encode serializes req into a ready-to-dispatch frame payload: a 9-byte
// header (stream left at zero; the reporter patches it in) followed by the
// request body. Mirrors transport/conn's handshake encoder and
// transport/reporter's transparent PREPARE rebuild, so a payload produced
// here is byte-identical to what either of those paths would produce for
// the same request.
func encode(req frame.Request) []byte {
	w := frame.NewWriter()
	req.WriteBody(w)
	body := w.Bytes()

	h := frame.NewRequestHeader(req.OpCode())
	h.BodyLen = uint32(len(body))
	buf := h.Encode(make([]byte, 0, frame.HeaderSize+len(body)))
	buf = append(buf, body...)
	return buf
}
