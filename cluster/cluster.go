// Package cluster tracks the driver's node set, publishes token-ring
// snapshots, and keeps the ring converged with a periodic rebuild alongside
// any push-driven rebuild.
package cluster

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cqlshard/driver/cluster/ring"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/transport/node"
)

// MetricsSink is the subset of metrics.Registry this package reports to.
type MetricsSink interface {
	ObserveRingRebuild(d time.Duration)
	SetRingNodeCount(n int)
}

// TopologyEvent is an internal notification of a node set change; it has no
// wire schema since the WebSocket admin surface that would otherwise carry
// it is out of scope.
type TopologyEvent struct {
	Kind   TopologyEventKind
	NodeID string
}

// TopologyEventKind discriminates TopologyEvent.Kind.
type TopologyEventKind int

const (
	NodeAdded TopologyEventKind = iota
	NodeRemoved
)

// TokenOwner resolves a node+shard's owned tokens and datacenter, normally
// by querying system.local/system.peers; abstracted behind an interface so
// BuildRing can be unit-tested without a live connection.
type TokenOwner interface {
	OwnedTokens(ctx context.Context, n *node.Node) (datacenter string, tokens []ring.Endpoint, err error)
}

// Cluster owns the node set and publishes ring snapshots.
type Cluster struct {
	prep *prepcache.Cache

	mu    sync.Mutex
	nodes map[string]*node.Node

	ringPtr atomic.Pointer[ring.Ring]
	owner   TokenOwner
	metrics MetricsSink

	events chan TopologyEvent
	cron   *cron.Cron
}

// New builds an empty Cluster. owner resolves topology for BuildRing.
func New(owner TokenOwner) *Cluster {
	return &Cluster{
		prep:   &prepcache.Cache{},
		nodes:  make(map[string]*node.Node),
		owner:  owner,
		events: make(chan TopologyEvent, 64),
	}
}

// WithMetrics attaches a metrics sink that BuildRing reports rebuild
// duration and node count to. Returns c for chaining.
func (c *Cluster) WithMetrics(m MetricsSink) *Cluster {
	c.metrics = m
	return c
}

// PrepCache returns the process-wide prepared-statement cache shared by
// every node's reporters.
func (c *Cluster) PrepCache() *prepcache.Cache { return c.prep }

// AddNode registers n. A subsequent BuildRing call is required to publish
// it into the ring.
func (c *Cluster) AddNode(n *node.Node) {
	c.mu.Lock()
	c.nodes[n.ID()] = n
	c.mu.Unlock()
	c.emit(TopologyEvent{Kind: NodeAdded, NodeID: n.ID()})
}

// RemoveNode drops a node from the set. A subsequent BuildRing call is
// required to publish its removal into the ring.
func (c *Cluster) RemoveNode(id string) {
	c.mu.Lock()
	delete(c.nodes, id)
	c.mu.Unlock()
	c.emit(TopologyEvent{Kind: NodeRemoved, NodeID: id})
}

func (c *Cluster) emit(ev TopologyEvent) {
	select {
	case c.events <- ev:
	default:
	}
}

// Events exposes the topology-change notification channel.
func (c *Cluster) Events() <-chan TopologyEvent { return c.events }

// Node returns the registered node by id, or nil if unknown. Used by the
// request router to turn a ring.Endpoint's NodeID back into a dispatchable
// *node.Node.
func (c *Cluster) Node(id string) *node.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nodes[id]
}

// Nodes returns a snapshot slice of every currently registered node.
func (c *Cluster) Nodes() []*node.Node {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*node.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		out = append(out, n)
	}
	return out
}

// Ring returns the currently published ring snapshot, or nil if BuildRing
// has never run.
func (c *Cluster) Ring() *ring.Ring {
	return c.ringPtr.Load()
}

// BuildRing queries every node's owned tokens and datacenter, then
// atomically publishes a new ring snapshot using strategy.
func (c *Cluster) BuildRing(ctx context.Context, strategy ring.Strategy) error {
	start := time.Now()
	c.mu.Lock()
	nodes := make([]*node.Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		nodes = append(nodes, n)
	}
	c.mu.Unlock()

	var endpoints []ring.Endpoint
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		dc, eps, err := c.owner.OwnedTokens(ctx, n)
		if err != nil {
			return fmt.Errorf("cluster: build ring: node %s: %w", n.ID(), err)
		}
		for i := range eps {
			eps[i].Datacenter = dc
		}
		endpoints = append(endpoints, eps...)
		seen[n.ID()] = struct{}{}
	}

	c.ringPtr.Store(ring.New(endpoints, strategy))
	if c.metrics != nil {
		c.metrics.ObserveRingRebuild(time.Since(start))
		c.metrics.SetRingNodeCount(len(seen))
	}
	return nil
}

// StartPeriodicRebuild schedules a recurring BuildRing call (default every
// 60s) so topology drift that doesn't arrive as a push event still
// converges. Returns a stop function.
func (c *Cluster) StartPeriodicRebuild(ctx context.Context, strategy ring.Strategy, schedule string) (func(), error) {
	if schedule == "" {
		schedule = "@every 60s"
	}
	sched := cron.New()
	_, err := sched.AddFunc(schedule, func() {
		_ = c.BuildRing(ctx, strategy)
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: schedule ring rebuild: %w", err)
	}
	sched.Start()
	c.cron = sched
	return func() { sched.Stop() }, nil
}
