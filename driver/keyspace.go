package driver

import (
	"context"
	"fmt"

	"github.com/cqlshard/driver/cql/frame"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/driver/werror"
	"github.com/cqlshard/driver/transport/stage"
)

// Keyspace is the per-keyspace handle a caller builds statements against. It
// carries the default consistency and retry budget new Requests inherit.
type Keyspace struct {
	session *Session
	name    string

	DefaultConsistency frame.Consistency
	DefaultRetries     int
}

// Select builds a Request for stmt (a SELECT), partitioned by partitionKey
// (the already-serialized, order-preserving composite partition key — see
// cql/partitioner.BuildPartitionKey).
func (k *Keyspace) Select(stmt string, partitionKey []byte, values ...frame.Value) *Request {
	return k.newRequest(stmt, partitionKey, values)
}

// Insert builds a Request for stmt (an INSERT).
func (k *Keyspace) Insert(stmt string, partitionKey []byte, values ...frame.Value) *Request {
	return k.newRequest(stmt, partitionKey, values)
}

// Update builds a Request for stmt (an UPDATE).
func (k *Keyspace) Update(stmt string, partitionKey []byte, values ...frame.Value) *Request {
	return k.newRequest(stmt, partitionKey, values)
}

// Delete builds a Request for stmt (a DELETE).
func (k *Keyspace) Delete(stmt string, partitionKey []byte, values ...frame.Value) *Request {
	return k.newRequest(stmt, partitionKey, values)
}

// Batch builds a BATCH Request out of the given frame.BatchEntry values.
// All entries route together using the partitionKey argument.
func (k *Keyspace) Batch(kind frame.BatchKind, partitionKey []byte, entries ...frame.BatchEntry) *Request {
	req := &frame.Batch{Kind: kind, Entries: entries, Consistency: k.DefaultConsistency}
	return &Request{
		keyspace:     k,
		partitionKey: partitionKey,
		req:          req,
		retries:      k.DefaultRetries,
	}
}

func (k *Keyspace) newRequest(stmt string, partitionKey []byte, values []frame.Value) *Request {
	return &Request{
		keyspace:     k,
		partitionKey: partitionKey,
		statement:    stmt,
		values:       values,
		retries:      k.DefaultRetries,
	}
}

// Prepare issues a PREPARE of stmt through shard 0 of every known node whose
// shard-0 stage is running with a reporter attached, and populates the shared
// prepared-statement cache, so an Execute referencing stmt on those nodes
// does not pay the UNPREPARED round trip. Other nodes are skipped.
func (k *Keyspace) Prepare(ctx context.Context, stmt string) error {
	return k.session.prepareOnAllNodes(ctx, stmt)
}

// Request is a single built-but-not-yet-sent operation, returned by a
// Keyspace's builder methods. Exactly one of SendLocal/SendGlobal/WithHandle
// dispatches it; Request is not reusable across dispatches.
type Request struct {
	keyspace     *Keyspace
	partitionKey []byte
	statement    string
	values       []frame.Value
	req          frame.Request // set directly for Batch; built lazily otherwise
	consistency  frame.Consistency
	retries      int
}

// WithConsistency overrides the keyspace's default consistency for this
// request only.
func (r *Request) WithConsistency(c frame.Consistency) *Request {
	r.consistency = c
	return r
}

// WithRetries overrides the keyspace's default retry budget for this
// request only.
func (r *Request) WithRetries(n int) *Request {
	r.retries = n
	return r
}

func (r *Request) consistencyOrDefault() frame.Consistency {
	if r.consistency != 0 {
		return r.consistency
	}
	if r.keyspace.DefaultConsistency != 0 {
		return r.keyspace.DefaultConsistency
	}
	return frame.ConsistencyLocalQuorum
}

// build resolves r into an encodable frame.Request, preferring EXECUTE over
// QUERY when the statement is already known to be prepared on any node.
func (r *Request) build() (frame.Request, string) {
	if r.req != nil {
		return r.req, ""
	}
	params := frame.QueryParams{Consistency: r.consistencyOrDefault(), Values: r.values}
	if entry, ok := r.keyspace.session.prep.Get(r.statement); ok {
		return frame.Execute{PreparedID: entry.ID, Params: params}, r.statement
	}
	return frame.Query{Statement: r.statement, Params: params}, r.statement
}

// SendLocal dispatches the request and returns without waiting for a
// response. The returned error is only a dispatch-time routing failure;
// errors that occur after dispatch are dropped. Intended for fire-and-forget
// writes where the caller tracks success via a separate read path.
func (r *Request) SendLocal(ctx context.Context) error {
	w := r.startWorker(nil)
	return w.dispatch()
}

// SendGlobal dispatches the request and blocks until a terminal Outcome is
// available or ctx is done.
func (r *Request) SendGlobal(ctx context.Context) (*Outcome, error) {
	w := r.startWorker(nil)
	if err := w.dispatch(); err != nil {
		return nil, err
	}
	select {
	case o := <-w.done:
		return o, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WithHandle dispatches the request asynchronously, invoking sink exactly
// once with the terminal Outcome. The returned error is only a dispatch-time
// routing failure (no ring, no reachable replica); delivery failures surface
// through sink.
func (r *Request) WithHandle(sink func(*Outcome)) error {
	w := r.startWorker(sink)
	return w.dispatch()
}

func (r *Request) startWorker(sink func(*Outcome)) *worker {
	sess := r.keyspace.session
	freq, statement := r.build()
	payload := encode(freq)
	w := newWorker(sess.router, sess.metrics, statement, r.partitionKey, payload, r.retries)
	w.sink = sink
	return w
}

// prepareOnAllNodes is grounded on the reporter's own transparent-PREPARE
// path (Reporter.retryUnprepared in transport/reporter), reused here to eagerly populate prepcache rather
// than waiting for the first UNPREPARED.
func (s *Session) prepareOnAllNodes(ctx context.Context, stmt string) error {
	nodes := s.cluster.Nodes()
	if len(nodes) == 0 {
		return werror.NoRing(fmt.Errorf("driver: no nodes known"))
	}
	for _, n := range nodes {
		st := n.Stage(0)
		if st == nil || st.State() != stage.StateRunning {
			continue
		}
		rep := st.Reporter(0)
		if rep == nil {
			continue
		}
		done := make(chan struct{})
		pw := &prepareWorker{cache: s.prep, nodeID: n.ID(), statement: stmt, done: done}

		w := frame.NewWriter()
		frame.Prepare{Statement: stmt}.WriteBody(w)
		h := frame.NewRequestHeader(frame.OpPrepare)
		h.BodyLen = uint32(w.Len())
		buf := h.Encode(make([]byte, 0, frame.HeaderSize+w.Len()))
		buf = append(buf, w.Bytes()...)

		rep.Dispatch(pw, buf)
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// prepareWorker is the one-shot reporter.Worker used by prepareOnAllNodes.
type prepareWorker struct {
	cache     *prepcache.Cache
	nodeID    string
	statement string
	done      chan struct{}
}

func (w *prepareWorker) HandleResponse(op frame.OpCode, body []byte) {
	defer close(w.done)
	if op != frame.OpResult {
		return
	}
	resp, err := frame.DecodeResponse(op, body)
	if err != nil {
		return
	}
	result, ok := resp.(*frame.ResultBody)
	if !ok || result.Prepared == nil {
		return
	}
	w.cache.MarkPrepared(w.statement, result.Prepared.ID, w.nodeID)
}

func (w *prepareWorker) HandleError(*werror.WorkerError) { close(w.done) }
func (w *prepareWorker) Statement() string               { return w.statement }
