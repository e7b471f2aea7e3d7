// Package config loads a SessionConfig from environment variables (with an
// optional local .env file via joho/godotenv) and an optional YAML seed
// file (gopkg.in/yaml.v3) for static contact points, per-keyspace
// replication factors, and shard-port ranges, following the two-tier
// env+file convention used for cluster seed config in nishisan-dev-n-backup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SessionConfig is the driver's top-level configuration: contact points,
// shard-port layout, authentication, and per-keyspace replication.
type SessionConfig struct {
	ContactPoints []string          `yaml:"contact_points"`
	CommonPort    int               `yaml:"common_port"`
	ShardPortBase int               `yaml:"shard_port_base"`
	Compression   string            `yaml:"compression"`
	DialTimeout   time.Duration     `yaml:"dial_timeout"`
	Auth          AuthConfig        `yaml:"auth"`
	Keyspaces     []KeyspaceSeed    `yaml:"keyspaces"`
	RingRefresh   string            `yaml:"ring_refresh_schedule"`
}

// AuthConfig selects the PasswordAuthenticator credentials, if any. Empty
// Username means AllowAllAuthenticator.
type AuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KeyspaceSeed describes one keyspace's static replication settings.
type KeyspaceSeed struct {
	Name              string         `yaml:"name"`
	ReplicationFactor int            `yaml:"replication_factor"`
	DCReplication     map[string]int `yaml:"dc_replication_factor"`
}

// Load reads env vars (after optionally loading envFile with godotenv) and
// merges a YAML seed file on top. Either source may be empty: envFile=""
// skips .env loading, yamlPath="" skips the YAML overlay.
func Load(envFile, yamlPath string) (*SessionConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
	}

	cfg := fromEnv()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("config: read yaml seed: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml seed: %w", err)
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func fromEnv() *SessionConfig {
	cfg := &SessionConfig{}
	if v := os.Getenv("CQLSHARD_CONTACT_POINTS"); v != "" {
		cfg.ContactPoints = splitCSV(v)
	}
	if v := os.Getenv("CQLSHARD_COMMON_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CommonPort = n
		}
	}
	if v := os.Getenv("CQLSHARD_SHARD_PORT_BASE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ShardPortBase = n
		}
	}
	cfg.Compression = os.Getenv("CQLSHARD_COMPRESSION")
	cfg.Auth.Username = os.Getenv("CQLSHARD_AUTH_USERNAME")
	cfg.Auth.Password = os.Getenv("CQLSHARD_AUTH_PASSWORD")
	return cfg
}

func (c *SessionConfig) applyDefaults() {
	if c.CommonPort == 0 {
		c.CommonPort = 9042
	}
	if c.ShardPortBase == 0 {
		c.ShardPortBase = 19042
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.RingRefresh == "" {
		c.RingRefresh = "@every 60s"
	}
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
