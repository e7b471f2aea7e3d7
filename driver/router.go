package driver

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/dgryski/go-rendezvous"

	"github.com/cqlshard/driver/cluster"
	"github.com/cqlshard/driver/cluster/ring"
	"github.com/cqlshard/driver/cql/partitioner"
	"github.com/cqlshard/driver/driver/werror"
	"github.com/cqlshard/driver/transport/reporter"
	"github.com/cqlshard/driver/transport/stage"
)

// target is a fully resolved dispatch point for one request attempt.
type target struct {
	nodeID   string
	shard    int
	reporter *reporter.Reporter
}

// Router turns a partition key into a dispatchable (stage, reporter),
// walking the cluster's published ring and picking among the owning
// replicas. Grounded on spec §4.8 "Routing": ring lookup under the
// keyspace's replication strategy, then pick first reachable, with a
// rendezvous-hash tie-break for sticky load distribution across equally
// ranked replicas (the dgryski/go-rendezvous wiring named in SPEC_FULL.md's
// domain stack).
type Router struct {
	cluster *cluster.Cluster

	mu        sync.Mutex
	roundRobin map[string]*uint64 // "nodeID/shard" -> next reporter index
}

// NewRouter builds a Router over cl's published ring.
func NewRouter(cl *cluster.Cluster) *Router {
	return &Router{cluster: cl, roundRobin: make(map[string]*uint64)}
}

// Route resolves partitionKey to a dispatchable target, excluding any node
// id present in excluded (used by RetryGlobal to avoid re-trying a replica
// that just failed).
func (r *Router) Route(partitionKey []byte, excluded map[string]bool) (*target, error) {
	rg := r.cluster.Ring()
	if rg == nil {
		return nil, werror.NoRing(fmt.Errorf("driver: ring not built yet"))
	}

	token := partitioner.HashToken(partitionKey)
	replicas, err := rg.Lookup(token)
	if err != nil {
		return nil, werror.NoRing(err)
	}

	tried := make(map[string]bool, len(excluded)+len(replicas))
	for k, v := range excluded {
		tried[k] = v
	}

	for {
		ep, ok := r.pickReplica(partitionKey, replicas, tried)
		if !ok {
			return nil, werror.NoRing(fmt.Errorf("driver: no reachable replica for token %d", token))
		}
		tried[ep] = true

		n := r.cluster.Node(ep)
		if n == nil {
			continue
		}
		shard := shardFor(replicas, ep)
		st := n.Stage(shard)
		if st == nil || st.State() != stage.StateRunning {
			continue
		}
		idx := r.nextReporterIndex(ep, shard, st.ReporterCount())
		rep := st.Reporter(idx)
		if rep == nil {
			continue
		}
		return &target{nodeID: ep, shard: shard, reporter: rep}, nil
	}
}

func shardFor(replicas []ring.Endpoint, nodeID string) int {
	for _, ep := range replicas {
		if ep.NodeID == nodeID {
			return ep.ShardID
		}
	}
	return 0
}

// pickReplica reorders the still-untried replicas with a rendezvous hash
// keyed by the partition key, so repeated requests for the same key stick
// to the same replica (cache-friendly on the server) while different keys
// spread evenly across the replica set. Returns ok=false once every
// replica has been tried.
func (r *Router) pickReplica(partitionKey []byte, replicas []ring.Endpoint, tried map[string]bool) (string, bool) {
	candidates := make([]string, 0, len(replicas))
	for _, ep := range replicas {
		if tried[ep.NodeID] {
			continue
		}
		candidates = append(candidates, ep.NodeID)
	}
	if len(candidates) == 0 {
		return "", false
	}
	rv := rendezvous.New(candidates, fnvHash)
	return rv.Get(string(partitionKey)), true
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

func (r *Router) nextReporterIndex(nodeID string, shard, count int) int {
	if count <= 1 {
		return 0
	}
	key := fmt.Sprintf("%s/%d", nodeID, shard)
	r.mu.Lock()
	counter, ok := r.roundRobin[key]
	if !ok {
		counter = new(uint64)
		r.roundRobin[key] = counter
	}
	r.mu.Unlock()
	n := atomic.AddUint64(counter, 1)
	return int(n % uint64(count))
}
