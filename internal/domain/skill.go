// Package domain holds the core types shared by every agent and skill:
// the target-domain enumeration, the skill and agent contracts, the
// rollback log, and the experiment runtime model.
package domain

import "fmt"

// TargetDomain is the closed set of systems an agent can adapt to.
type TargetDomain string

const (
	RelationalDB TargetDomain = "relational_db"
	DocumentDB   TargetDomain = "document_db"
	Cluster      TargetDomain = "cluster"
	RemoteHost   TargetDomain = "remote_host"
)

func (d TargetDomain) String() string {
	return string(d)
}

// SkillDescriptor is the static metadata a skill exposes.
type SkillDescriptor struct {
	Name        string
	Description string
	Target      TargetDomain
	Reversible  bool
}

// SkillContext is the per-invocation value passed to a skill. Shared is the
// agent's connection resource (pool, client, session, clientset); each
// skill knows the concrete type it expects and type-asserts it. Params is
// the structured invocation payload parsed from the experiment config.
type SkillContext struct {
	Shared any
	Params map[string]any
}

// Skill is a single reversible chaos action.
type Skill interface {
	Descriptor() SkillDescriptor
	ValidateParams(params map[string]any) error
	Execute(ctx *SkillContext) (RollbackHandle, error)
	Rollback(ctx *SkillContext, handle RollbackHandle) error
}

// ParamString reads a string parameter with a default.
func ParamString(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return def
}

// ParamInt reads an integer parameter (accepting float64 from decoded YAML)
// with a default.
func ParamInt(params map[string]any, key string, def int) int {
	v, ok := params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return def
}

// ParamStringSlice reads a []string parameter, tolerating []any from YAML
// decoding.
func ParamStringSlice(params map[string]any, key string) []string {
	v, ok := params[key]
	if !ok {
		return nil
	}
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, item := range vals {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ConfigError reports a malformed skill invocation discovered before any
// side effect occurred.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string { return "configuration error: " + e.Msg }

func NewConfigError(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}
