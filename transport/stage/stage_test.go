package stage

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cqlshard/driver/driver/prepcache"
	"github.com/cqlshard/driver/driver/werror"
)

func TestNewRejectsStreamSpaceOverflow(t *testing.T) {
	_, err := New(Config{AppendsNum: 1 << 10, ReporterCount: 1 << 10}, &prepcache.Cache{})
	require.ErrorIs(t, err, werror.ErrStreamSpaceExhausted)
}

func TestNewRejectsZeroWidth(t *testing.T) {
	_, err := New(Config{AppendsNum: 0, ReporterCount: 4}, &prepcache.Cache{})
	require.ErrorIs(t, err, werror.ErrStreamSpaceExhausted)
}

func TestNewAcceptsValidLayout(t *testing.T) {
	s, err := New(Config{AppendsNum: 128, ReporterCount: 4}, &prepcache.Cache{})
	require.NoError(t, err)
	require.Equal(t, StateInitializing, s.State())
}

func TestStateStringCoversAllStates(t *testing.T) {
	require.Equal(t, "initializing", StateInitializing.String())
	require.Equal(t, "maintenance", StateMaintenance.String())
	require.Equal(t, "running", StateRunning.String())
	require.Equal(t, "stopping", StateStopping.String())
}
