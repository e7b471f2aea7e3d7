// Package ring models the token ring: an ordered sequence of (token, node,
// shard) endpoints and the replication strategies that turn a token into a
// replica set. Snapshots are immutable; cluster.Cluster swaps them atomically
// so readers never observe a torn ring.
package ring

import (
	"errors"
	"sort"

	"github.com/cqlshard/driver/cql/partitioner"
)

// ErrNoRing is returned by Lookup when a ring hasn't been published yet.
var ErrNoRing = errors.New("ring: no ring built")

// Endpoint is one ring position: a token owned by a specific shard of a
// specific node.
type Endpoint struct {
	Token      partitioner.Token
	NodeID     string
	ShardID    int
	Datacenter string
}

// Strategy computes the replica set for a token from a ring's ordered
// endpoints, starting at the first endpoint whose token is >= target.
type Strategy interface {
	Replicas(endpoints []Endpoint, startIdx int) []Endpoint
}

// SimpleStrategy picks the next RF distinct nodes walking the ring forward,
// ignoring datacenter.
type SimpleStrategy struct {
	ReplicationFactor int
}

func (s SimpleStrategy) Replicas(endpoints []Endpoint, startIdx int) []Endpoint {
	if len(endpoints) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, s.ReplicationFactor)
	out := make([]Endpoint, 0, s.ReplicationFactor)
	for i := 0; i < len(endpoints) && len(out) < s.ReplicationFactor; i++ {
		ep := endpoints[(startIdx+i)%len(endpoints)]
		if _, dup := seen[ep.NodeID]; dup {
			continue
		}
		seen[ep.NodeID] = struct{}{}
		out = append(out, ep)
	}
	return out
}

// NetworkTopologyStrategy picks a per-datacenter replication factor, walking
// the ring forward and filling each DC's quota independently.
type NetworkTopologyStrategy struct {
	DCReplicationFactor map[string]int
}

func (s NetworkTopologyStrategy) Replicas(endpoints []Endpoint, startIdx int) []Endpoint {
	if len(endpoints) == 0 {
		return nil
	}
	want := 0
	for _, n := range s.DCReplicationFactor {
		want += n
	}
	seenNode := make(map[string]struct{})
	dcCount := make(map[string]int, len(s.DCReplicationFactor))
	out := make([]Endpoint, 0, want)
	for i := 0; i < len(endpoints) && len(out) < want; i++ {
		ep := endpoints[(startIdx+i)%len(endpoints)]
		if _, dup := seenNode[ep.NodeID]; dup {
			continue
		}
		rf, tracked := s.DCReplicationFactor[ep.Datacenter]
		if !tracked || dcCount[ep.Datacenter] >= rf {
			continue
		}
		seenNode[ep.NodeID] = struct{}{}
		dcCount[ep.Datacenter]++
		out = append(out, ep)
	}
	return out
}

// Ring is an immutable, token-ordered snapshot of the cluster's endpoints.
// Build with New; never mutate a published Ring in place.
type Ring struct {
	endpoints []Endpoint
	strategy  Strategy
}

// New sorts endpoints by token and pairs them with a replication strategy.
func New(endpoints []Endpoint, strategy Strategy) *Ring {
	sorted := make([]Endpoint, len(endpoints))
	copy(sorted, endpoints)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Token < sorted[j].Token })
	return &Ring{endpoints: sorted, strategy: strategy}
}

// Endpoints returns the ring's sorted endpoints. The returned slice must not
// be mutated by the caller.
func (r *Ring) Endpoints() []Endpoint {
	return r.endpoints
}

// Lookup returns the replica endpoints owning token, per the ring's
// replication strategy, starting at the first endpoint with Token >= token
// (wrapping to the first endpoint if token exceeds every owned token).
func (r *Ring) Lookup(token partitioner.Token) ([]Endpoint, error) {
	if r == nil || len(r.endpoints) == 0 {
		return nil, ErrNoRing
	}
	idx := sort.Search(len(r.endpoints), func(i int) bool {
		return r.endpoints[i].Token >= token
	})
	if idx == len(r.endpoints) {
		idx = 0
	}
	return r.strategy.Replicas(r.endpoints, idx), nil
}
