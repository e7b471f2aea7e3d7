package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaultsWithNoSources(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	require.Equal(t, 9042, cfg.CommonPort)
	require.Equal(t, 19042, cfg.ShardPortBase)
	require.Equal(t, "@every 60s", cfg.RingRefresh)
}

func TestLoadMergesYamlSeedOverEnvDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "seed.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
contact_points: ["10.0.0.1", "10.0.0.2"]
common_port: 9142
keyspaces:
  - name: ks1
    replication_factor: 3
`), 0o644))

	cfg, err := Load("", yamlPath)
	require.NoError(t, err)
	require.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.ContactPoints)
	require.Equal(t, 9142, cfg.CommonPort)
	require.Len(t, cfg.Keyspaces, 1)
	require.Equal(t, 3, cfg.Keyspaces[0].ReplicationFactor)
}

func TestSplitCSVIgnoresEmptyFields(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, splitCSV("a,,b,"))
}
