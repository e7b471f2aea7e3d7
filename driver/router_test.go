package driver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlshard/driver/cluster"
	"github.com/cqlshard/driver/cluster/ring"
	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/transport/node"
	"github.com/cqlshard/driver/transport/reporter"
	"github.com/cqlshard/driver/transport/stage"
)

type fakeTokenOwner struct {
	tokens map[string][]ring.Endpoint
}

func (f *fakeTokenOwner) OwnedTokens(_ context.Context, n *node.Node) (string, []ring.Endpoint, error) {
	return "dc1", f.tokens[n.ID()], nil
}

// runningNode builds a one-shard node and force-sets its stage straight to
// StateRunning with a single reporter, bypassing the real TCP handshake so
// the router can be exercised without a live server.
func runningNode(t *testing.T, id string, prep *prepcache.Cache) *node.Node {
	n, err := node.New(node.Config{ID: id, Host: "127.0.0.1", ShardCount: 1, AppendsNum: 16, DialOpts: stage.Config{ReporterCount: 1}}, prep)
	require.NoError(t, err)
	forceStageRunningWithReporter(t, n.Stage(0))
	return n
}

func TestRouterRouteReturnsReachableReplica(t *testing.T) {
	prep := &prepcache.Cache{}
	owner := &fakeTokenOwner{tokens: map[string][]ring.Endpoint{
		"n1": {{Token: 0, NodeID: "n1", ShardID: 0}},
		"n2": {{Token: 1000, NodeID: "n2", ShardID: 0}},
	}}
	cl := cluster.New(owner)
	cl.AddNode(runningNode(t, "n1", prep))
	cl.AddNode(runningNode(t, "n2", prep))
	require.NoError(t, cl.BuildRing(context.Background(), ring.SimpleStrategy{ReplicationFactor: 2}))

	r := NewRouter(cl)
	target, err := r.Route([]byte("some-key"), nil)
	require.NoError(t, err)
	require.NotNil(t, target.reporter)
	require.Contains(t, []string{"n1", "n2"}, target.nodeID)
}

func TestRouterRouteExcludesTriedReplicas(t *testing.T) {
	prep := &prepcache.Cache{}
	owner := &fakeTokenOwner{tokens: map[string][]ring.Endpoint{
		"n1": {{Token: 0, NodeID: "n1", ShardID: 0}},
		"n2": {{Token: 1000, NodeID: "n2", ShardID: 0}},
	}}
	cl := cluster.New(owner)
	cl.AddNode(runningNode(t, "n1", prep))
	cl.AddNode(runningNode(t, "n2", prep))
	require.NoError(t, cl.BuildRing(context.Background(), ring.SimpleStrategy{ReplicationFactor: 2}))

	r := NewRouter(cl)
	first, err := r.Route([]byte("k"), nil)
	require.NoError(t, err)

	second, err := r.Route([]byte("k"), map[string]bool{first.nodeID: true})
	require.NoError(t, err)
	require.NotEqual(t, first.nodeID, second.nodeID)
}

func TestRouterRouteErrorsWithoutRing(t *testing.T) {
	cl := cluster.New(&fakeTokenOwner{})
	r := NewRouter(cl)
	_, err := r.Route([]byte("k"), nil)
	require.Error(t, err)
}

func TestRouterRouteErrorsWhenEveryReplicaExcluded(t *testing.T) {
	prep := &prepcache.Cache{}
	owner := &fakeTokenOwner{tokens: map[string][]ring.Endpoint{
		"n1": {{Token: 0, NodeID: "n1", ShardID: 0}},
	}}
	cl := cluster.New(owner)
	cl.AddNode(runningNode(t, "n1", prep))
	require.NoError(t, cl.BuildRing(context.Background(), ring.SimpleStrategy{ReplicationFactor: 1}))

	r := NewRouter(cl)
	_, err := r.Route([]byte("k"), map[string]bool{"n1": true})
	require.Error(t, err)
}

func TestRouterNextReporterIndexRoundRobins(t *testing.T) {
	r := NewRouter(cluster.New(&fakeTokenOwner{}))
	a := r.nextReporterIndex("n1", 0, 3)
	b := r.nextReporterIndex("n1", 0, 3)
	c := r.nextReporterIndex("n1", 0, 3)
	d := r.nextReporterIndex("n1", 0, 3)
	require.ElementsMatch(t, []int{0, 1, 2}, []int{a, b, c})
	require.Equal(t, a, d)
}

// forceStageRunningWithReporter bypasses the real connection handshake so
// the router can be exercised without a live server.
func forceStageRunningWithReporter(t *testing.T, s *stage.Stage) {
	t.Helper()
	rep := reporter.New(0, reporter.Config{Base: 0, Count: 16}, reporter.NewPayload(16), &prepcache.Cache{})
	s.SetRunningForTest([]*reporter.Reporter{rep})
}
