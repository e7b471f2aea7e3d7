package driver

import (
	"fmt"
	"sync"

	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/driver/werror"
	"github.com/cqlshard/driver/metrics"
)

// worker is the concrete reporter.Worker behind every Request. It owns the
// encoded payload (so it can re-dispatch on retry without re-encoding),
// the statement text (for the reporter's transparent UNPREPARED reprepare),
// and the retry bookkeeping the spec's default policy needs.
type worker struct {
	router    *Router
	metrics   *metrics.Registry
	statement string
	partition []byte
	payload   []byte
	policy    func(*werror.WorkerError) RetryDecision

	mu          sync.Mutex
	retriesLeft int
	excluded    map[string]bool
	current     *target
	sink        func(*Outcome)
	done        chan *Outcome
}

// newWorker builds a worker ready for its first dispatch.
func newWorker(router *Router, m *metrics.Registry, statement string, partition, payload []byte, retries int) *worker {
	return &worker{
		router:      router,
		metrics:     m,
		statement:   statement,
		partition:   partition,
		payload:     payload,
		policy:      DefaultPolicy,
		retriesLeft: retries,
		excluded:    make(map[string]bool),
		done:        make(chan *Outcome, 1),
	}
}

// HandleResponse implements reporter.Worker.
func (w *worker) HandleResponse(op frame.OpCode, body []byte) {
	resp, err := frame.DecodeResponse(op, body)
	if err != nil {
		w.finish(&Outcome{Op: op, Err: werror.Decode(err)})
		return
	}
	result, ok := resp.(*frame.ResultBody)
	if !ok {
		w.finish(&Outcome{Op: op, Err: fmt.Errorf("driver: unexpected response opcode %s", op)})
		return
	}
	w.finish(&Outcome{Op: op, Result: result})
}

// HandleError implements reporter.Worker, applying w.policy to decide
// whether to retry on the same stage, re-route globally through the ring,
// or surface the error to the caller.
func (w *worker) HandleError(err *werror.WorkerError) {
	decision := w.policy(err)
	if w.metrics != nil && decision != DecisionSurface {
		w.mu.Lock()
		left := w.retriesLeft
		w.mu.Unlock()
		if left > 0 {
			w.metrics.IncRetry(err.Kind.String())
		}
	}
	switch decision {
	case DecisionRetry:
		w.retrySame(err)
	case DecisionRetryGlobal:
		w.retryGlobal(err)
	default:
		w.finish(&Outcome{Err: err})
	}
}

// Statement implements reporter.Worker.
func (w *worker) Statement() string { return w.statement }

func (w *worker) retrySame(cause *werror.WorkerError) {
	w.mu.Lock()
	if w.retriesLeft <= 0 {
		w.mu.Unlock()
		w.finish(&Outcome{Err: cause})
		return
	}
	w.retriesLeft--
	rep := w.current.reporter
	w.mu.Unlock()

	if rep == nil {
		w.finish(&Outcome{Err: cause})
		return
	}
	rep.Dispatch(w, append([]byte(nil), w.payload...))
}

func (w *worker) retryGlobal(cause *werror.WorkerError) {
	w.mu.Lock()
	if w.retriesLeft <= 0 {
		w.mu.Unlock()
		w.finish(&Outcome{Err: cause})
		return
	}
	w.retriesLeft--
	if w.current != nil {
		w.excluded[w.current.nodeID] = true
	}
	excluded := make(map[string]bool, len(w.excluded))
	for k, v := range w.excluded {
		excluded[k] = v
	}
	w.mu.Unlock()

	t, err := w.router.Route(w.partition, excluded)
	if err != nil {
		w.finish(&Outcome{Err: werror.NoRing(err)})
		return
	}
	w.mu.Lock()
	w.current = t
	w.mu.Unlock()
	t.reporter.Dispatch(w, append([]byte(nil), w.payload...))
}

func (w *worker) finish(o *Outcome) {
	w.mu.Lock()
	sink := w.sink
	w.mu.Unlock()
	if sink != nil {
		sink(o)
	}
	select {
	case w.done <- o:
	default:
	}
}

// dispatch routes the worker to its first target and sends the payload.
func (w *worker) dispatch() error {
	t, err := w.router.Route(w.partition, nil)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.current = t
	w.mu.Unlock()
	t.reporter.Dispatch(w, append([]byte(nil), w.payload...))
	return nil
}
