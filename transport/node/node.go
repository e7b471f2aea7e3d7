// Package node supervises every shard's Stage for one host, rolling up
// aggregate connection status for the cluster layer above it.
package node

import (
	"context"
	"sync"

	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/transport/stage"
)

// Status summarizes a node's aggregate shard connectivity.
type Status int

const (
	// StatusDown means no shard is Running.
	StatusDown Status = iota
	// StatusDegraded means some but not all shards are Running.
	StatusDegraded
	// StatusUp means every shard is Running.
	StatusUp
)

func (s Status) String() string {
	switch s {
	case StatusDown:
		return "down"
	case StatusDegraded:
		return "degraded"
	case StatusUp:
		return "up"
	default:
		return "unknown"
	}
}

// Config parameterizes a Node: one Stage per shard of Host.
type Config struct {
	ID         string
	Host       string
	ShardCount int
	CommonPort int
	ShardPort  int
	AppendsNum int
	Compression string
	DialOpts   stage.Config // template copied per shard; Shard/ShardCount are overwritten
}

// Node owns ShardCount stages for one host.
type Node struct {
	cfg    Config
	prep   *prepcache.Cache
	stages []*stage.Stage

	mu sync.Mutex
}

// New builds one Stage per shard.
func New(cfg Config, prep *prepcache.Cache) (*Node, error) {
	n := &Node{cfg: cfg, prep: prep, stages: make([]*stage.Stage, cfg.ShardCount)}
	for shard := 0; shard < cfg.ShardCount; shard++ {
		stageCfg := cfg.DialOpts
		stageCfg.Host = cfg.Host
		stageCfg.Shard = shard
		stageCfg.ShardCount = cfg.ShardCount
		stageCfg.CommonPort = cfg.CommonPort
		stageCfg.ShardPort = cfg.ShardPort
		stageCfg.AppendsNum = cfg.AppendsNum
		stageCfg.Compression = cfg.Compression
		if stageCfg.ReporterCount == 0 {
			stageCfg.ReporterCount = 1
		}
		s, err := stage.New(stageCfg, prep)
		if err != nil {
			return nil, err
		}
		n.stages[shard] = s
	}
	return n, nil
}

// ID returns the node's identifier (used as the ring/prepcache node key).
func (n *Node) ID() string { return n.cfg.ID }

// Stage returns the stage for shard, or nil if out of range.
func (n *Node) Stage(shard int) *stage.Stage {
	n.mu.Lock()
	defer n.mu.Unlock()
	if shard < 0 || shard >= len(n.stages) {
		return nil
	}
	return n.stages[shard]
}

// Run starts every shard's stage goroutine and blocks until ctx is done.
func (n *Node) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, s := range n.stages {
		s := s
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx)
		}()
	}
	wg.Wait()
}

// Status rolls up the node's per-shard stage states into an aggregate.
func (n *Node) Status() Status {
	n.mu.Lock()
	stages := n.stages
	n.mu.Unlock()

	running := 0
	for _, s := range stages {
		if s.State() == stage.StateRunning {
			running++
		}
	}
	switch {
	case running == 0:
		return StatusDown
	case running == len(stages):
		return StatusUp
	default:
		return StatusDegraded
	}
}
