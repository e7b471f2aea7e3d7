package node

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/transport/stage"
)

func TestNewBuildsOneStagePerShard(t *testing.T) {
	n, err := New(Config{ID: "n1", Host: "127.0.0.1", ShardCount: 3, AppendsNum: 32}, &prepcache.Cache{})
	require.NoError(t, err)
	require.NotNil(t, n.Stage(0))
	require.NotNil(t, n.Stage(2))
	require.Nil(t, n.Stage(3))
}

func TestStatusDownWhenNoShardRunning(t *testing.T) {
	n, err := New(Config{ID: "n1", Host: "127.0.0.1", ShardCount: 2, AppendsNum: 32}, &prepcache.Cache{})
	require.NoError(t, err)
	require.Equal(t, StatusDown, n.Status())
}

func TestStatusStringCoversAllValues(t *testing.T) {
	require.Equal(t, "down", StatusDown.String())
	require.Equal(t, "degraded", StatusDegraded.String())
	require.Equal(t, "up", StatusUp.String())
}

func TestNodeIDReturnsConfiguredID(t *testing.T) {
	n, err := New(Config{ID: "n42", Host: "h", ShardCount: 1, AppendsNum: 16}, &prepcache.Cache{})
	require.NoError(t, err)
	require.Equal(t, "n42", n.ID())
	require.Equal(t, stage.StateInitializing, n.Stage(0).State())
}
