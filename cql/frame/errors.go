package frame

import "errors"

// ErrInvalidFrame is returned when frame bytes don't parse as valid CQL v4,
// e.g. an out-of-range consistency level or a truncated collection.
var ErrInvalidFrame = errors.New("frame: invalid frame")

// ErrShortBuffer is returned when a decoder runs out of bytes mid-value.
var ErrShortBuffer = errors.New("frame: short buffer")
