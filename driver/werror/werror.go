// Package werror defines the error taxonomy a worker sees when its request
// fails: a structured CQL server error, an I/O failure, a lost connection,
// an overloaded stream pool, a missing ring, or a response that failed to
// decode. Retry policy dispatches on these kinds (see driver.DefaultPolicy).
package werror

import (
	"errors"
	"fmt"

	"github.com/cqlshard/driver/cql/frame"
)

// ErrNoStatement is returned when a reporter receives an UNPREPARED error for
// a statement whose text is no longer in the prepared-statement side table.
var ErrNoStatement = errors.New("werror: no cached statement text for unprepared id")

// ErrStreamSpaceExhausted is returned by transport/stage construction when
// appendsNum*reporterCount would overflow the int16 stream id space.
var ErrStreamSpaceExhausted = errors.New("werror: stream id space exhausted")

// Kind discriminates the error taxonomy surfaced to a Worker.
type Kind int

const (
	// KindCql wraps a structured server ERROR response.
	KindCql Kind = iota
	// KindIo is a socket or frame-level failure.
	KindIo
	// KindOverload means no free stream id was available and the caller
	// elected not to wait.
	KindOverload
	// KindLost means the connection died with the request in flight.
	KindLost
	// KindNoRing means the ring isn't built yet, or no replica is reachable.
	KindNoRing
	// KindDecode means the response bytes failed to parse.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindCql:
		return "cql"
	case KindIo:
		return "io"
	case KindOverload:
		return "overload"
	case KindLost:
		return "lost"
	case KindNoRing:
		return "no_ring"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// WorkerError is the error type a Worker's HandleError receives.
type WorkerError struct {
	Kind Kind
	Cql  *frame.ErrorBody // set when Kind == KindCql
	Err  error            // wrapped cause for Io/Lost/NoRing/Decode
}

func (e *WorkerError) Error() string {
	if e.Kind == KindCql && e.Cql != nil {
		return fmt.Sprintf("werror: %s: %s", e.Kind, e.Cql.Error())
	}
	if e.Err != nil {
		return fmt.Sprintf("werror: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("werror: %s", e.Kind)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// Cql wraps a structured CQL server error.
func Cql(body *frame.ErrorBody) *WorkerError {
	return &WorkerError{Kind: KindCql, Cql: body}
}

// Io wraps a socket or frame-level I/O failure.
func Io(err error) *WorkerError {
	return &WorkerError{Kind: KindIo, Err: fmt.Errorf("io: %w", err)}
}

// Overload reports stream-pool exhaustion with no-wait requested.
func Overload() *WorkerError {
	return &WorkerError{Kind: KindOverload}
}

// Lost reports a connection that died with the request in flight.
func Lost(err error) *WorkerError {
	return &WorkerError{Kind: KindLost, Err: fmt.Errorf("lost: %w", err)}
}

// NoRing reports an unbuilt ring or no reachable replica.
func NoRing(err error) *WorkerError {
	return &WorkerError{Kind: KindNoRing, Err: err}
}

// Decode reports a response that failed to parse.
func Decode(err error) *WorkerError {
	return &WorkerError{Kind: KindDecode, Err: fmt.Errorf("decode: %w", err)}
}

// IsUnprepared reports whether e is a CQL Unprepared server error.
func IsUnprepared(e *WorkerError) bool {
	return e != nil && e.Kind == KindCql && e.Cql != nil && e.Cql.Code == frame.ErrorUnprepared
}
