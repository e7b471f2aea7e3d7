package driver

import (
	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/driver/werror"
)

// RetryDecision is what a Worker's HandleError tells the caller to do next.
type RetryDecision int

const (
	// DecisionSurface hands the error back to the caller; no further retry.
	DecisionSurface RetryDecision = iota
	// DecisionRetry re-dispatches on the same reporter/stage (a fresh stream
	// is assigned, same replica).
	DecisionRetry
	// DecisionRetryGlobal re-routes through the ring to a different replica.
	DecisionRetryGlobal
)

// DefaultPolicy implements the spec's default retry classification for a
// *werror.WorkerError, per §4.8/§7: transient+targeted codes retry on the
// same stage, transient+systemic errors retry globally, everything else
// surfaces.
func DefaultPolicy(err *werror.WorkerError) RetryDecision {
	switch err.Kind {
	case werror.KindCql:
		if err.Cql == nil {
			return DecisionSurface
		}
		switch err.Cql.Code {
		case frame.ErrorOverloaded, frame.ErrorIsBootstrapping, frame.ErrorTruncateError,
			frame.ErrorServerError, frame.ErrorWriteFailure, frame.ErrorReadFailure,
			frame.ErrorReadTimeout, frame.ErrorWriteTimeout:
			return DecisionRetry
		default:
			// SyntaxError/Invalid/Unauthorized/ConfigError/AlreadyExists and
			// anything else structural surface immediately. Unprepared is
			// handled transparently inside transport/reporter and should
			// never reach this policy.
			return DecisionSurface
		}
	case werror.KindIo, werror.KindLost, werror.KindOverload:
		return DecisionRetryGlobal
	case werror.KindNoRing:
		return DecisionSurface
	default:
		return DecisionSurface
	}
}
