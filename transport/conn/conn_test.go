package conn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEphemeralPortForShardSatisfiesModulus(t *testing.T) {
	for shard := 0; shard < 4; shard++ {
		for attempt := 0; attempt < 5; attempt++ {
			port := ephemeralPortForShard(shard, 4, attempt)
			require.Equal(t, shard, port%4)
			require.GreaterOrEqual(t, port, 49152)
		}
	}
}

func TestEphemeralPortForShardAdvancesByShardCountOnRetry(t *testing.T) {
	p0 := ephemeralPortForShard(1, 3, 0)
	p1 := ephemeralPortForShard(1, 3, 1)
	require.Equal(t, 3, p1-p0)
}

func TestAllowAllAuthenticatorRespondsWithSingleZeroByteToken(t *testing.T) {
	a := AllowAllAuthenticator{}
	resp := a.Respond("org.apache.cassandra.auth.AllowAllAuthenticator")
	require.Equal(t, []byte{0}, resp.Token)
}

func TestPasswordAuthenticatorRespondsWithCredentials(t *testing.T) {
	a := PasswordAuthenticator{Username: "u", Password: "p"}
	resp := a.Respond("org.apache.cassandra.auth.PasswordAuthenticator")
	require.Equal(t, []byte{0, 'u', 0, 'p'}, resp.Token)
}
