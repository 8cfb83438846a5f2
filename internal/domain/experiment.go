package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SkillInvocation names one skill call within an experiment, with its
// params blob and repeat count.
type SkillInvocation struct {
	SkillName string         `yaml:"skill_name"`
	Params    map[string]any `yaml:"params,omitempty"`
	Count     int            `yaml:"count,omitempty"`
}

// EffectiveCount returns Count, defaulting to 1 when unset.
func (i SkillInvocation) EffectiveCount() int {
	if i.Count <= 0 {
		return 1
	}
	return i.Count
}

// ExperimentConfig is the declarative description of one chaos run, loaded
// from YAML.
type ExperimentConfig struct {
	Name            string            `yaml:"name"`
	Target          TargetDomain      `yaml:"target"`
	TargetConfig    map[string]any    `yaml:"target_config,omitempty"`
	Skills          []SkillInvocation `yaml:"skills"`
	Duration        time.Duration     `yaml:"duration"`
	Parallel        bool              `yaml:"parallel,omitempty"`
	ResourceFilters []string          `yaml:"resource_filters,omitempty"`
}

// experimentConfigAlias mirrors ExperimentConfig but carries Duration as a
// YAML duration string ("30s", "5m", "1h") per spec §6, rather than relying
// on a numeric nanosecond encoding.
type experimentConfigAlias struct {
	Name            string            `yaml:"name"`
	Target          TargetDomain      `yaml:"target"`
	TargetConfig    map[string]any    `yaml:"target_config,omitempty"`
	Skills          []SkillInvocation `yaml:"skills"`
	Duration        string            `yaml:"duration"`
	Parallel        bool              `yaml:"parallel,omitempty"`
	ResourceFilters []string          `yaml:"resource_filters,omitempty"`
}

// UnmarshalYAML parses the human-readable duration string form used by the
// declarative config (see spec §6) into a time.Duration.
func (c *ExperimentConfig) UnmarshalYAML(value *yaml.Node) error {
	var alias experimentConfigAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	c.Name = alias.Name
	c.Target = alias.Target
	c.TargetConfig = alias.TargetConfig
	c.Skills = alias.Skills
	c.Parallel = alias.Parallel
	c.ResourceFilters = alias.ResourceFilters
	if alias.Duration == "" {
		c.Duration = 0
		return nil
	}
	d, err := time.ParseDuration(alias.Duration)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", alias.Duration, err)
	}
	c.Duration = d
	return nil
}

// MarshalYAML renders Duration back to its string form so a round-tripped
// ExperimentConfig matches the declarative config shape.
func (c ExperimentConfig) MarshalYAML() (any, error) {
	return experimentConfigAlias{
		Name:            c.Name,
		Target:          c.Target,
		TargetConfig:    c.TargetConfig,
		Skills:          c.Skills,
		Duration:        c.Duration.String(),
		Parallel:        c.Parallel,
		ResourceFilters: c.ResourceFilters,
	}, nil
}

// ExperimentStatus tracks where a run is in its lifecycle. FailureReason is
// only meaningful when Status is ExperimentFailed.
type ExperimentStatus string

const (
	ExperimentPending     ExperimentStatus = "pending"
	ExperimentDiscovering ExperimentStatus = "discovering"
	ExperimentExecuting   ExperimentStatus = "executing"
	ExperimentWaitingDur  ExperimentStatus = "waiting_duration"
	ExperimentRollingBack ExperimentStatus = "rolling_back"
	ExperimentCompleted   ExperimentStatus = "completed"
	ExperimentFailed      ExperimentStatus = "failed"
)

// Experiment is one run's mutable runtime state.
type Experiment struct {
	ID            uuid.UUID
	Config        ExperimentConfig
	Status        ExperimentStatus
	FailureReason string
	StartedAt     *time.Time
	CompletedAt   *time.Time
	RollbackLog   *RollbackLog
}

// NewExperiment creates a fresh experiment with a new ID and Pending status.
func NewExperiment(cfg ExperimentConfig) *Experiment {
	return &Experiment{
		ID:          uuid.New(),
		Config:      cfg,
		Status:      ExperimentPending,
		RollbackLog: NewRollbackLog(),
	}
}

func (e *Experiment) MarkFailed(reason string) {
	e.Status = ExperimentFailed
	if e.FailureReason == "" {
		e.FailureReason = reason
	}
}
