// Package reporter implements the per-connection stream multiplexer: a
// reporter owns a disjoint, contiguous block of CQL stream ids, assigns a
// free id to each outgoing request, and matches each incoming response back
// to the worker that issued it.
package reporter

import (
	"context"
	"fmt"

	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/driver/werror"
)

// Worker is a per-request object a caller hands to Dispatch. Exactly one
// worker is live per in-flight stream.
type Worker interface {
	// HandleResponse is invoked with the decoded response opcode and raw
	// (already decompressed) body on a successful round trip.
	HandleResponse(op frame.OpCode, body []byte)
	// HandleError is invoked once for any terminal failure. The retry
	// policy living above this package (driver) decides whether to
	// re-Dispatch using the same or a different reporter.
	HandleError(err *werror.WorkerError)
	// Statement returns the CQL text this worker's request was built from,
	// so the reporter can rebuild a PREPARE frame after an UNPREPARED error.
	// Returns "" if not applicable (e.g. the worker already is a Prepare).
	Statement() string
}

// ReporterFor computes which reporter owns stream, given the per-connection
// block size (appendsNum). This is a pure function of the pool layout.
func ReporterFor(stream frame.StreamID, appendsNum int) int {
	return int(stream) / appendsNum
}

type reqEvent struct {
	worker  Worker
	payload []byte
}

type respEvent struct {
	header frame.Header
	body   []byte
}

type errEvent struct {
	err    error
	stream frame.StreamID
}

type sessionEventKind int

const (
	sessionNew sessionEventKind = iota
	sessionService
	sessionShutdown
)

type sessionEvent struct {
	kind   sessionEventKind
	sender chan<- frame.StreamID
}

// Config parameterizes one Reporter's slice of the connection's stream pool.
type Config struct {
	// Base is the first stream id in this reporter's block.
	Base frame.StreamID
	// Count is the block size (appendsNum); Base..Base+Count-1 belong to
	// this reporter.
	Count int
	// OverloadOnFull, when true, fails the dispatched worker with
	// werror.Overload() (via its HandleError) when the block is exhausted,
	// instead of queuing the request event in the inbox.
	OverloadOnFull bool
	// Obs, if set, is notified on every change to the reporter's free-stream
	// count (metrics wiring). Nil is a valid no-op.
	Obs Observer
}

// Observer receives free-stream-count updates as streams are assigned and
// released, so the ambient metrics stack can track pool occupancy without
// this package importing it directly.
type Observer interface {
	SetFreeStreams(n int)
}

// Reporter is one goroutine's worth of stream-id bookkeeping for a single
// connection. Construct with New, then run it with Run in its own goroutine.
type Reporter struct {
	id      int
	cfg     Config
	payload *Payload
	prep    *prepcache.Cache

	inbox   chan any
	free    []frame.StreamID
	workers map[frame.StreamID]Worker
	// pendingPrepare tracks, per stream, the worker whose Execute triggered
	// an UNPREPARED retry so it can be resubmitted once the PREPARE
	// completes.
	pendingPrepare map[frame.StreamID]*pendingRetry

	sender  chan<- frame.StreamID
	session int
}

type pendingRetry struct {
	worker     Worker
	payload    []byte
	statement  string
}

// New builds a Reporter over its assigned stream block. prep is consulted to
// rebuild PREPARE frames after UNPREPARED errors.
func New(id int, cfg Config, payload *Payload, prep *prepcache.Cache) *Reporter {
	free := make([]frame.StreamID, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		free[i] = cfg.Base + frame.StreamID(i)
	}
	return &Reporter{
		id:             id,
		cfg:            cfg,
		payload:        payload,
		prep:           prep,
		inbox:          make(chan any, cfg.Count*4),
		free:           free,
		workers:        make(map[frame.StreamID]Worker, cfg.Count),
		pendingPrepare: make(map[frame.StreamID]*pendingRetry),
	}
}

// Dispatch assigns a free stream to payload (patching bytes [2:4) with the
// chosen stream id), stores worker against it, and notifies the sender. If
// the block is exhausted, the request event queues on the inbox (default)
// or the worker is immediately failed with werror.Overload (OverloadOnFull).
func (r *Reporter) Dispatch(worker Worker, payload []byte) {
	r.inbox <- reqEvent{worker: worker, payload: payload}
}

// Deliver hands a decoded response frame to the reporter owning its stream.
func (r *Reporter) Deliver(h frame.Header, body []byte) {
	r.inbox <- respEvent{header: h, body: body}
}

// Fail reports a transport-level failure (decode or I/O) for stream.
func (r *Reporter) Fail(stream frame.StreamID, err error) {
	r.inbox <- errEvent{err: err, stream: stream}
}

// AnnounceSender breaks the reporter/sender construction cycle: the sender
// announces its inbox only once it is running, instead of reporters holding
// a handle to it from construction time.
func (r *Reporter) AnnounceSender(senderInbox chan<- frame.StreamID) {
	r.inbox <- sessionEvent{kind: sessionNew, sender: senderInbox}
}

// Shutdown drains every in-flight worker with werror.Lost and stops Run.
func (r *Reporter) Shutdown() {
	r.inbox <- sessionEvent{kind: sessionShutdown}
}

// Run processes the reporter's inbox until ctx is done or a shutdown event
// is handled. It must run in its own goroutine for the lifetime of the
// connection.
func (r *Reporter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.drainLost(ctx.Err())
			return
		case ev := <-r.inbox:
			if r.handle(ev) {
				return
			}
		}
	}
}

func (r *Reporter) handle(ev any) (stop bool) {
	switch e := ev.(type) {
	case reqEvent:
		r.handleReq(e)
	case respEvent:
		r.handleResp(e)
	case errEvent:
		r.handleErr(e)
	case sessionEvent:
		switch e.kind {
		case sessionNew:
			r.sender = e.sender
		case sessionShutdown:
			r.drainLost(fmt.Errorf("reporter: shutdown"))
			return true
		}
	}
	return false
}

func (r *Reporter) handleReq(e reqEvent) {
	if len(r.free) == 0 {
		if r.cfg.OverloadOnFull {
			e.worker.HandleError(werror.Overload())
			return
		}
		// Back-pressure: the inbox itself is the queue (buffered to
		// Count*4); re-push blocks only if the inbox is also full, which
		// signals a caller that isn't honoring backpressure upstream.
		r.inbox <- e
		return
	}
	stream := r.free[len(r.free)-1]
	r.free = r.free[:len(r.free)-1]
	r.notifyFree()

	frame.SetStream(e.payload, stream)
	r.payload.Set(stream, e.payload)
	r.workers[stream] = e.worker

	if r.sender == nil {
		// Sender hasn't announced itself yet (session still initializing);
		// requeue until AnnounceSender runs.
		r.release(stream)
		r.inbox <- e
		return
	}
	r.sender <- stream
}

func (r *Reporter) handleResp(e respEvent) {
	stream := e.header.Stream
	worker, ok := r.workers[stream]
	if !ok {
		return
	}
	delete(r.workers, stream)

	if e.header.OpCode == frame.OpError {
		resp, err := frame.DecodeResponse(frame.OpError, e.body)
		if err != nil {
			r.release(stream)
			worker.HandleError(werror.Decode(err))
			return
		}
		errBody := resp.(*frame.ErrorBody)
		we := werror.Cql(errBody)
		if werror.IsUnprepared(we) {
			originalPayload := append([]byte(nil), r.payload.Get(stream)...)
			r.release(stream)
			r.retryUnprepared(worker, errBody, originalPayload)
			return
		}
		r.release(stream)
		worker.HandleError(we)
		return
	}
	r.release(stream)
	worker.HandleResponse(e.header.OpCode, e.body)
}

func (r *Reporter) handleErr(e errEvent) {
	worker, ok := r.workers[e.stream]
	if !ok {
		return
	}
	delete(r.workers, e.stream)
	r.release(e.stream)
	worker.HandleError(werror.Io(e.err))
}

// retryUnprepared reconstructs a PREPARE frame from the cached statement
// text and transparently retries the original worker (with its original
// payload, reassigned a fresh stream) once the PREPARE completes.
func (r *Reporter) retryUnprepared(worker Worker, errBody *frame.ErrorBody, originalPayload []byte) {
	statement, ok := r.prep.StatementFor(errBody.UnpreparedID)
	if !ok {
		statement = worker.Statement()
	}
	if statement == "" {
		worker.HandleError(&werror.WorkerError{Kind: werror.KindDecode, Err: werror.ErrNoStatement})
		return
	}

	w := frame.NewWriter()
	frame.Prepare{Statement: statement}.WriteBody(w)
	h := frame.NewRequestHeader(frame.OpPrepare)
	h.BodyLen = uint32(w.Len())
	buf := h.Encode(make([]byte, 0, frame.HeaderSize+w.Len()))
	buf = append(buf, w.Bytes()...)

	prepWorker := &prepareThenRetryWorker{
		reporter:        r,
		original:        worker,
		statement:       statement,
		originalPayload: originalPayload,
	}
	r.Dispatch(prepWorker, buf)
}

func (r *Reporter) release(stream frame.StreamID) {
	r.free = append(r.free, stream)
	r.payload.Release(stream)
	r.notifyFree()
}

func (r *Reporter) notifyFree() {
	if r.cfg.Obs != nil {
		r.cfg.Obs.SetFreeStreams(len(r.free))
	}
}

// drainLost fails every in-flight worker with werror.Lost and empties the
// worker table; called on shutdown or fatal disconnect.
func (r *Reporter) drainLost(cause error) {
	for stream, worker := range r.workers {
		worker.HandleError(werror.Lost(cause))
		delete(r.workers, stream)
		r.release(stream)
	}
}

// prepareThenRetryWorker is the internal worker wrapping a transparent
// PREPARE issued after an UNPREPARED response, so the original caller's
// worker never sees the intermediate PREPARE round trip.
type prepareThenRetryWorker struct {
	reporter        *Reporter
	original        Worker
	statement       string
	originalPayload []byte
}

func (w *prepareThenRetryWorker) HandleResponse(op frame.OpCode, body []byte) {
	if op != frame.OpResult {
		w.original.HandleError(werror.Decode(fmt.Errorf("prepare retry: unexpected opcode %s", op)))
		return
	}
	resp, err := frame.DecodeResponse(op, body)
	if err != nil {
		w.original.HandleError(werror.Decode(err))
		return
	}
	result, ok := resp.(*frame.ResultBody)
	if !ok || result.Prepared == nil {
		w.original.HandleError(werror.Decode(fmt.Errorf("prepare retry: non-prepared result")))
		return
	}
	w.reporter.prep.MarkPrepared(w.statement, result.Prepared.ID, fmt.Sprintf("reporter-%d", w.reporter.id))
	// Re-enqueue the original worker with its original payload; the
	// reporter assigns it a fresh stream, so the caller never observes the
	// intermediate UNPREPARED/PREPARE round trip.
	w.reporter.Dispatch(w.original, w.originalPayload)
}

func (w *prepareThenRetryWorker) HandleError(err *werror.WorkerError) {
	w.original.HandleError(err)
}

func (w *prepareThenRetryWorker) Statement() string { return w.statement }
