// Package wiring decodes an experiment's declarative target_config (spec
// §6) into the concrete Config type each domain package expects and builds
// that domain's Agent for registration on the orchestrator. This keeps the
// HTTP layer from needing a compile-time dependency on every agent
// package's Config shape.
package wiring

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/agent/cluster"
	"github.com/chaosduck/chaos-agents/internal/agent/document"
	"github.com/chaosduck/chaos-agents/internal/agent/relational"
	"github.com/chaosduck/chaos-agents/internal/agent/remotehost"
	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/chaosduck/chaos-agents/internal/orchestrator"
)

// decode re-marshals a target_config map (already decoded once from the
// experiment's own YAML/JSON body into map[string]any) to YAML bytes and
// unmarshals it into dst, so each agent's Config struct can reuse the
// yaml tags and custom UnmarshalYAML it already defines.
func decode(raw map[string]any, dst any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal target_config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode target_config: %w", err)
	}
	return nil
}

// BuildAgent decodes cfg.TargetConfig into the Config type for cfg.Target
// and constructs the matching domain.Agent. It does not initialize the
// agent; callers call Initialize themselves so they can surface a
// connection error distinctly from a bad-config error.
func BuildAgent(cfg domain.ExperimentConfig) (domain.Agent, error) {
	switch cfg.Target {
	case domain.RelationalDB:
		var c relational.Config
		if err := decode(cfg.TargetConfig, &c); err != nil {
			return nil, err
		}
		return relational.New(c), nil
	case domain.DocumentDB:
		var c document.Config
		if err := decode(cfg.TargetConfig, &c); err != nil {
			return nil, err
		}
		return document.New(c), nil
	case domain.Cluster:
		var c cluster.Config
		if err := decode(cfg.TargetConfig, &c); err != nil {
			return nil, err
		}
		return cluster.New(c), nil
	case domain.RemoteHost:
		var c remotehost.Config
		if err := decode(cfg.TargetConfig, &c); err != nil {
			return nil, err
		}
		return remotehost.New(c), nil
	default:
		return nil, fmt.Errorf("unknown target domain %q", cfg.Target)
	}
}

// Register builds the agent for cfg.Target and registers it on orch.
// RunExperiment itself calls Initialize/Shutdown around the run, so this
// only needs to get the right *configured* agent into the registry first.
// The orchestrator's agent registry is a single map keyed by domain (see
// orchestrator.RegisterAgent), so two concurrent experiments against the
// same target domain will race on which agent's Config ends up registered;
// callers that need per-request isolation must serialize experiments per
// domain themselves (spec §6 does not specify concurrent multi-tenant
// targeting of the same domain).
func Register(orch *orchestrator.Orchestrator, cfg domain.ExperimentConfig) error {
	a, err := BuildAgent(cfg)
	if err != nil {
		return err
	}
	orch.RegisterAgent(a)
	return nil
}
