package frame

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
)

// Reader decodes CQL primitives from a byte slice, tracking a sticky error so
// callers can chain several reads and check the error once at the end —
// mirroring the style of a hand-rolled protocol buffer reader.
type Reader struct {
	b   []byte
	pos int
	err error
}

// NewReader wraps b for sequential primitive decoding.
func NewReader(b []byte) *Reader {
	return &Reader{b: b}
}

// Err returns the first error encountered by any Read call, if any.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.b) - r.pos
}

// Bytes returns the remaining unread bytes without advancing the cursor.
func (r *Reader) Bytes() []byte {
	return r.b[r.pos:]
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.fail(fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, n, r.Remaining()))
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

// ReadByte reads a [byte].
func (r *Reader) ReadByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// ReadShort reads a [short], a big-endian uint16.
func (r *Reader) ReadShort() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// ReadInt reads an [int], a big-endian int32.
func (r *Reader) ReadInt() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// ReadLong reads a [long], a big-endian int64.
func (r *Reader) ReadLong() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// ReadString reads a [string]: a [short]-prefixed UTF-8 string.
func (r *Reader) ReadString() string {
	n := r.ReadShort()
	b := r.take(int(n))
	return string(b)
}

// ReadLongString reads a [long string]: an [int]-prefixed UTF-8 string.
func (r *Reader) ReadLongString() string {
	n := r.ReadInt()
	b := r.take(int(n))
	return string(b)
}

// ReadBytes reads a [bytes] value: an [int] length n followed by n bytes.
// n == -1 means NULL and is reported as a nil slice with isNull=true;
// n == -2 means UNSET and is reported as a nil slice with isUnset=true.
func (r *Reader) ReadBytes() (value []byte, isNull bool, isUnset bool) {
	n := r.ReadInt()
	switch {
	case n == -1:
		return nil, true, false
	case n == -2:
		return nil, false, true
	case n < 0:
		r.fail(fmt.Errorf("%w: negative bytes length %d", ErrInvalidFrame, n))
		return nil, false, false
	default:
		return r.take(int(n)), false, false
	}
}

// ReadShortBytes reads a [short bytes]: a [short]-prefixed byte string.
func (r *Reader) ReadShortBytes() []byte {
	n := r.ReadShort()
	return r.take(int(n))
}

// ReadStringList reads a [string list].
func (r *Reader) ReadStringList() []string {
	n := r.ReadShort()
	out := make([]string, 0, n)
	for i := uint16(0); i < n; i++ {
		out = append(out, r.ReadString())
	}
	return out
}

// ReadStringMap reads a [string map].
func (r *Reader) ReadStringMap() map[string]string {
	n := r.ReadShort()
	out := make(map[string]string, n)
	for i := uint16(0); i < n; i++ {
		k := r.ReadString()
		out[k] = r.ReadString()
	}
	return out
}

// ReadStringMultimap reads a [string multimap].
func (r *Reader) ReadStringMultimap() map[string][]string {
	n := r.ReadShort()
	out := make(map[string][]string, n)
	for i := uint16(0); i < n; i++ {
		k := r.ReadString()
		out[k] = r.ReadStringList()
	}
	return out
}

// ReadInet reads an [inet]: a length-prefixed IP address followed by a port.
func (r *Reader) ReadInet() (net.IP, int32) {
	n := r.ReadByte()
	ip := r.take(int(n))
	port := r.ReadInt()
	return net.IP(ip), port
}

// ReadUUID reads a [uuid]: 16 raw bytes.
func (r *Reader) ReadUUID() [16]byte {
	var out [16]byte
	b := r.take(16)
	copy(out[:], b)
	return out
}

// Writer encodes CQL primitives into an internal buffer.
type Writer struct {
	buf bytes.Buffer
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated encoded bytes.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// WriteRaw appends raw bytes verbatim.
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

// WriteByte writes a [byte]. Present to satisfy io.ByteWriter.
func (w *Writer) WriteByte(b byte) error {
	w.buf.WriteByte(b)
	return nil
}

// WriteShort writes a [short].
func (w *Writer) WriteShort(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

// WriteInt writes an [int].
func (w *Writer) WriteInt(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

// WriteLong writes a [long].
func (w *Writer) WriteLong(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	w.buf.Write(b[:])
}

// WriteString writes a [string].
func (w *Writer) WriteString(s string) {
	w.WriteShort(uint16(len(s)))
	w.buf.WriteString(s)
}

// WriteLongString writes a [long string].
func (w *Writer) WriteLongString(s string) {
	w.WriteInt(int32(len(s)))
	w.buf.WriteString(s)
}

// WriteBytes writes a [bytes] value. A nil value encodes as NULL (length
// -1); use WriteUnset to encode the UNSET marker (length -2) instead.
func (w *Writer) WriteBytes(v []byte) {
	if v == nil {
		w.WriteInt(-1)
		return
	}
	w.WriteInt(int32(len(v)))
	w.buf.Write(v)
}

// UnsetValue is a marker for "don't bind this value", distinct from NULL.
// No Writer method accepts it; the UNSET encoding is written by WriteUnset
// (or carried by a Value built with UnsetVal).
var UnsetValue = struct{}{}

// WriteUnset writes the UNSET [bytes] marker (length -2, no payload).
func (w *Writer) WriteUnset() {
	w.WriteInt(-2)
}

// WriteShortBytes writes a [short bytes] value.
func (w *Writer) WriteShortBytes(v []byte) {
	w.WriteShort(uint16(len(v)))
	w.buf.Write(v)
}

// WriteStringList writes a [string list].
func (w *Writer) WriteStringList(list []string) {
	w.WriteShort(uint16(len(list)))
	for _, s := range list {
		w.WriteString(s)
	}
}

// WriteStringMap writes a [string map].
func (w *Writer) WriteStringMap(m map[string]string) {
	w.WriteShort(uint16(len(m)))
	for k, v := range m {
		w.WriteString(k)
		w.WriteString(v)
	}
}

// WriteStringMultimap writes a [string multimap].
func (w *Writer) WriteStringMultimap(m map[string][]string) {
	w.WriteShort(uint16(len(m)))
	for k, v := range m {
		w.WriteString(k)
		w.WriteStringList(v)
	}
}

// WriteInet writes an [inet].
func (w *Writer) WriteInet(ip net.IP, port int32) {
	v4 := ip.To4()
	if v4 != nil {
		w.WriteByte(4)
		w.buf.Write(v4)
	} else {
		w.WriteByte(16)
		w.buf.Write(ip.To16())
	}
	w.WriteInt(port)
}

// WriteUUID writes a [uuid].
func (w *Writer) WriteUUID(id [16]byte) {
	w.buf.Write(id[:])
}

// WriteCollectionCount writes the [int] element count shared by the wire
// encoding of CQL lists, sets, and the key/value pair count of maps.
func (w *Writer) WriteCollectionCount(n int) {
	w.WriteInt(int32(n))
}
