package remotehost

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// excludedServices is the hard-coded exclusion list: sshd, systemd, dbus,
// the network stack, the firewall, and this tool's own process name, plus
// whatever the config adds.
var excludedServices = []string{
	"sshd", "ssh", "systemd", "dbus", "dbus-broker",
	"NetworkManager", "network", "firewalld", "iptables", "ufw",
	"chaos-agents",
}

// DiscoveryConfig controls the remote-host agent's discovery phase.
type DiscoveryConfig struct {
	Enabled         bool     `yaml:"enabled"`
	ExcludeServices []string `yaml:"exclude_services,omitempty"`
}

// Config is the remote-host target_config shape from spec §6.
type Config struct {
	Hosts     []HostConfig    `yaml:"hosts"`
	Discovery DiscoveryConfig `yaml:"discovery,omitempty"`
}

// configAlias mirrors Config for UnmarshalYAML, letting Discovery.Enabled
// default to true (spec §6: "discovery:{enabled=true, ...}") rather than
// Go's zero-value false when the key is omitted entirely.
type configAlias struct {
	Hosts     []HostConfig `yaml:"hosts"`
	Discovery *struct {
		Enabled         *bool    `yaml:"enabled"`
		ExcludeServices []string `yaml:"exclude_services,omitempty"`
	} `yaml:"discovery"`
}

func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var alias configAlias
	if err := value.Decode(&alias); err != nil {
		return err
	}
	c.Hosts = alias.Hosts
	c.Discovery = DiscoveryConfig{Enabled: true}
	if alias.Discovery != nil {
		if alias.Discovery.Enabled != nil {
			c.Discovery.Enabled = *alias.Discovery.Enabled
		}
		c.Discovery.ExcludeServices = alias.Discovery.ExcludeServices
	}
	return nil
}

// Agent adapts the RemoteHost target domain: one persistent SSH session
// per configured host.
type Agent struct {
	cfg      Config
	sessions map[string]*Session
	order    []string
	status   domain.AgentStatus
	skills   map[string]domain.Skill
}

func New(cfg Config) *Agent {
	return &Agent{cfg: cfg, status: domain.AgentUninitialized, skills: buildSkills()}
}

func (a *Agent) Domain() domain.TargetDomain { return domain.RemoteHost }
func (a *Agent) Name() string                { return "remote_host" }
func (a *Agent) Status() domain.AgentStatus  { return a.status }

// Initialize opens an SSH session for every configured host; connectivity
// is verified by the dial handshake itself.
func (a *Agent) Initialize(ctx context.Context) error {
	sessions := make(map[string]*Session, len(a.cfg.Hosts))
	order := make([]string, 0, len(a.cfg.Hosts))
	for _, h := range a.cfg.Hosts {
		sess, err := Dial(h)
		if err != nil {
			for _, opened := range sessions {
				_ = opened.Close()
			}
			a.status = domain.AgentFailed
			return fmt.Errorf("dial host %s: %w", h.Host, err)
		}
		sessions[h.Host] = sess
		order = append(order, h.Host)
	}
	a.sessions = sessions
	a.order = order
	a.status = domain.AgentReady
	return nil
}

// Discover runs three sequential remote commands per host: a systemctl
// running-unit listing (filtered against the exclusion list), a listening-
// socket listing via ss with a netstat fallback, and a df filesystem
// listing with virtual filesystems skipped.
func (a *Agent) Discover(ctx context.Context) ([]domain.DiscoveredResource, error) {
	if !a.cfg.Discovery.Enabled {
		return nil, nil
	}
	exclude := mergeExclusions(a.cfg.Discovery.ExcludeServices)

	var resources []domain.DiscoveredResource
	for _, host := range a.order {
		sess := a.sessions[host]

		services, err := discoverServices(sess, exclude)
		if err != nil {
			return nil, domain.DiscoveryError("discover services on %s: %v", host, err)
		}
		for _, svc := range services {
			resources = append(resources, domain.ServerResource{Type: domain.ServerResourceService, Host: host, Name: svc})
		}

		ports, err := discoverListeningPorts(sess)
		if err != nil {
			return nil, domain.DiscoveryError("discover ports on %s: %v", host, err)
		}
		for _, p := range ports {
			resources = append(resources, domain.ServerResource{Type: domain.ServerResourceService, Host: host, Name: p})
		}

		mounts, err := discoverFilesystems(sess)
		if err != nil {
			return nil, domain.DiscoveryError("discover filesystems on %s: %v", host, err)
		}
		for _, m := range mounts {
			resources = append(resources, domain.ServerResource{Type: domain.ServerResourceDisk, Host: host, Name: m})
		}
	}
	return resources, nil
}

func mergeExclusions(extra []string) map[string]bool {
	set := make(map[string]bool, len(excludedServices)+len(extra))
	for _, s := range excludedServices {
		set[s] = true
	}
	for _, s := range extra {
		set[s] = true
	}
	return set
}

// discoverServices lists running systemd units, filtered against exclude.
func discoverServices(sess *Session, exclude map[string]bool) ([]string, error) {
	out, err := sess.Run("systemctl list-units --type=service --state=running --no-legend --plain")
	if err != nil {
		return nil, err
	}
	var services []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimSuffix(fields[0], ".service")
		if exclude[name] {
			continue
		}
		services = append(services, name)
	}
	return services, nil
}

// discoverListeningPorts lists listening sockets via ss, falling back to
// netstat when ss is unavailable, returning each socket as "address:port".
// The owning process is not extracted.
func discoverListeningPorts(sess *Session) ([]string, error) {
	out, err := sess.Run("ss -tlnp 2>/dev/null || netstat -tlnp 2>/dev/null")
	if err != nil && out == "" {
		return nil, err
	}
	var ports []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}
		addr := fields[3]
		idx := strings.LastIndex(addr, ":")
		if idx < 0 {
			continue
		}
		portStr := addr[idx+1:]
		if _, err := strconv.Atoi(portStr); err != nil {
			continue
		}
		ports = append(ports, fmt.Sprintf("%s:%s", addr[:idx], portStr))
	}
	return ports, nil
}

// virtualFilesystemTypes are skipped during df discovery, per spec §4.7.
var virtualFilesystemTypes = map[string]bool{
	"tmpfs": true, "devtmpfs": true, "proc": true, "sysfs": true,
	"cgroup": true, "cgroup2": true, "overlay": true, "squashfs": true,
}

// discoverFilesystems lists real mounted filesystems via df -T.
func discoverFilesystems(sess *Session) ([]string, error) {
	out, err := sess.Run("df -T 2>/dev/null || df")
	if err != nil && out == "" {
		return nil, err
	}
	var mounts []string
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		fsType := fields[1]
		if virtualFilesystemTypes[fsType] {
			continue
		}
		mountPoint := fields[len(fields)-1]
		mounts = append(mounts, mountPoint)
	}
	return mounts, nil
}

func (a *Agent) Skills() []domain.Skill {
	out := make([]domain.Skill, 0, len(a.skills))
	for _, s := range a.skills {
		out = append(out, s)
	}
	return out
}

func (a *Agent) SkillByName(name string) (domain.Skill, bool) {
	s, ok := a.skills[name]
	return s, ok
}

// BuildContext hands the skill the agent itself as the shared handle;
// skills resolve the host they target from params["host"] (defaulting to
// the first configured host) and call Agent.sessionFor.
func (a *Agent) BuildContext(params map[string]any) (*domain.SkillContext, error) {
	if a.sessions == nil {
		return nil, domain.ConnectionError(fmt.Errorf("agent not initialized"))
	}
	return &domain.SkillContext{Shared: a, Params: params}, nil
}

func (a *Agent) Shutdown(ctx context.Context) error {
	for _, sess := range a.sessions {
		_ = sess.Close()
	}
	a.sessions = nil
	a.status = domain.AgentUninitialized
	return nil
}

// sessionFor resolves the SSH session a skill should use: the host named
// in params, or the first configured host when none is given.
func (a *Agent) sessionFor(params map[string]any) (*Session, error) {
	host := domain.ParamString(params, "host", "")
	if host == "" {
		if len(a.order) == 0 {
			return nil, fmt.Errorf("no hosts configured")
		}
		host = a.order[0]
	}
	sess, ok := a.sessions[host]
	if !ok {
		return nil, fmt.Errorf("no session for host %q", host)
	}
	return sess, nil
}

func agentFromContext(ctx *domain.SkillContext) (*Agent, error) {
	a, ok := ctx.Shared.(*Agent)
	if !ok {
		return nil, domain.ConnectionError(fmt.Errorf("expected *remotehost.Agent in skill context"))
	}
	return a, nil
}
