package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSkillInvocation_EffectiveCount(t *testing.T) {
	assert.Equal(t, 1, SkillInvocation{}.EffectiveCount())
	assert.Equal(t, 1, SkillInvocation{Count: 0}.EffectiveCount())
	assert.Equal(t, 1, SkillInvocation{Count: -1}.EffectiveCount())
	assert.Equal(t, 5, SkillInvocation{Count: 5}.EffectiveCount())
}

func TestExperimentConfig_UnmarshalYAML_ParsesDurationString(t *testing.T) {
	raw := `
name: insert-load
target: relational_db
target_config:
  connection_url: "postgres://localhost/chaos"
skills:
  - skill_name: insert_load
    params:
      rows_per_table: 5
    count: 2
duration: 30s
parallel: true
resource_filters:
  - "^orders_.*"
`
	var cfg ExperimentConfig
	require.NoError(t, yaml.Unmarshal([]byte(raw), &cfg))

	assert.Equal(t, "insert-load", cfg.Name)
	assert.Equal(t, RelationalDB, cfg.Target)
	assert.Equal(t, 30*time.Second, cfg.Duration)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, []string{"^orders_.*"}, cfg.ResourceFilters)
	require.Len(t, cfg.Skills, 1)
	assert.Equal(t, "insert_load", cfg.Skills[0].SkillName)
	assert.Equal(t, 2, cfg.Skills[0].EffectiveCount())
}

func TestExperimentConfig_UnmarshalYAML_EmptyDuration(t *testing.T) {
	var cfg ExperimentConfig
	require.NoError(t, yaml.Unmarshal([]byte(`name: x
target: cluster
`), &cfg))
	assert.Equal(t, time.Duration(0), cfg.Duration)
}

func TestExperimentConfig_UnmarshalYAML_BadDuration(t *testing.T) {
	var cfg ExperimentConfig
	err := yaml.Unmarshal([]byte(`name: x
target: cluster
duration: "not-a-duration"
`), &cfg)
	assert.Error(t, err)
}

func TestExperimentConfig_MarshalYAML_RoundTrips(t *testing.T) {
	cfg := ExperimentConfig{
		Name:     "roundtrip",
		Target:   DocumentDB,
		Duration: 5 * time.Minute,
		Skills: []SkillInvocation{
			{SkillName: "find_load", Params: map[string]any{"query_count": 3}},
		},
	}

	out, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var parsed ExperimentConfig
	require.NoError(t, yaml.Unmarshal(out, &parsed))

	assert.Equal(t, cfg.Name, parsed.Name)
	assert.Equal(t, cfg.Target, parsed.Target)
	assert.Equal(t, cfg.Duration, parsed.Duration)
	require.Len(t, parsed.Skills, 1)
	assert.Equal(t, "find_load", parsed.Skills[0].SkillName)
}

func TestNewExperiment(t *testing.T) {
	cfg := ExperimentConfig{Name: "e1", Target: RemoteHost}
	exp := NewExperiment(cfg)

	assert.NotEqual(t, [16]byte{}, exp.ID)
	assert.Equal(t, ExperimentPending, exp.Status)
	assert.NotNil(t, exp.RollbackLog)
	assert.Equal(t, 0, exp.RollbackLog.Len())
	assert.Nil(t, exp.StartedAt)
	assert.Nil(t, exp.CompletedAt)
}

func TestExperiment_MarkFailed_KeepsFirstReason(t *testing.T) {
	exp := NewExperiment(ExperimentConfig{})
	exp.MarkFailed("first failure")
	exp.MarkFailed("second failure")

	assert.Equal(t, ExperimentFailed, exp.Status)
	assert.Equal(t, "first failure", exp.FailureReason)
}
