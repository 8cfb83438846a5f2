package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"gopkg.in/yaml.v3"
)

// Config holds the server's environment-driven configuration. The engine
// itself takes all target connectivity from each experiment's
// target_config; this is only what the HTTP surface and agent defaults
// need before any experiment is loaded.
type Config struct {
	// Server
	ServerPort string

	// CORS
	CORSAllowOrigin string

	// Kubernetes
	KubeConfig string
}

// Load reads configuration from environment variables with sensible defaults
func Load() *Config {
	return &Config{
		ServerPort:      envOrDefault("SERVER_PORT", "8080"),
		CORSAllowOrigin: envOrDefault("CORS_ALLOW_ORIGIN", "http://localhost:5173"),
		KubeConfig:      envOrDefault("KUBECONFIG", ""),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// EnvInt reads an integer environment variable with a fallback
func EnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// ChaosConfig is the top-level YAML document a caller authors (or the
// out-of-scope planner/wizard emits) to describe one or more experiment
// runs.
type ChaosConfig struct {
	Experiments []domain.ExperimentConfig `yaml:"experiments"`
}

// ScheduledExperiment wraps an ExperimentConfig with the cron schedule the
// out-of-scope daemon collaborator uses to trigger runs. The core only
// consumes the embedded ExperimentConfig; Schedule/Enabled pass through
// unused by anything in this module.
type ScheduledExperiment struct {
	Experiment domain.ExperimentConfig `yaml:"experiment"`
	Schedule   string                  `yaml:"schedule"`
	Enabled    bool                    `yaml:"enabled"`
}

// DaemonSettings configures the out-of-scope scheduling daemon.
// HealthBind is accepted for shape-compatibility with the source config
// but nothing in this module binds to it.
type DaemonSettings struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	HealthBind    string `yaml:"health_bind,omitempty"`
}

// DaemonConfig is the scheduled-config shape from spec §6. It is parsed
// here so a daemon collaborator can reuse this loader, but nothing in this
// module acts on Schedule/Settings.
type DaemonConfig struct {
	Experiments []ScheduledExperiment `yaml:"experiments"`
	Settings    DaemonSettings        `yaml:"settings"`
}

// LoadChaosConfig parses a ChaosConfig document from raw YAML bytes.
func LoadChaosConfig(data []byte) (*ChaosConfig, error) {
	var cfg ChaosConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse chaos config: %w", err)
	}
	return &cfg, nil
}

// LoadChaosConfigFile reads and parses a ChaosConfig document from disk.
func LoadChaosConfigFile(path string) (*ChaosConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chaos config %s: %w", path, err)
	}
	return LoadChaosConfig(data)
}
