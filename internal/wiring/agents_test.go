package wiring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaosduck/chaos-agents/internal/agent/relational"
	"github.com/chaosduck/chaos-agents/internal/agent/remotehost"
	"github.com/chaosduck/chaos-agents/internal/domain"
)

func TestBuildAgentRelational(t *testing.T) {
	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		TargetConfig: map[string]any{
			"connection_url": "postgres://localhost/test",
			"db_type":        "postgres",
		},
	}
	a, err := BuildAgent(cfg)
	require.NoError(t, err)
	assert.Equal(t, domain.RelationalDB, a.Domain())
	rel, ok := a.(*relational.Agent)
	require.True(t, ok)
	_ = rel
}

func TestBuildAgentRemoteHostDefaultsDiscoveryEnabled(t *testing.T) {
	cfg := domain.ExperimentConfig{
		Target: domain.RemoteHost,
		TargetConfig: map[string]any{
			"hosts": []any{
				map[string]any{
					"host":             "10.0.0.1",
					"username":         "chaos",
					"auth":             "key",
					"private_key_path": "/tmp/key",
				},
			},
		},
	}
	a, err := BuildAgent(cfg)
	require.NoError(t, err)
	rh, ok := a.(*remotehost.Agent)
	require.True(t, ok)
	_ = rh

	var c remotehost.Config
	require.NoError(t, decode(cfg.TargetConfig, &c))
	assert.True(t, c.Discovery.Enabled)
}

func TestBuildAgentUnknownTarget(t *testing.T) {
	_, err := BuildAgent(domain.ExperimentConfig{Target: "bogus"})
	assert.Error(t, err)
}
