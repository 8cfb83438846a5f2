// Package remotehost implements the chaos agent for a fleet of remote
// hosts reached over an encrypted shell (SSH). Each configured host gets
// its own persistent *ssh.Client opened at Initialize; skills that need a
// dedicated command channel open a fresh ssh.Session off that client
// rather than dialing a new TCP connection, matching spec §4.2's "may open
// a new session" note.
package remotehost

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// AuthKind selects how a host authenticates.
type AuthKind string

const (
	AuthKey      AuthKind = "key"
	AuthPassword AuthKind = "password"
)

// HostConfig is one entry of the remote-host target_config's `hosts` list
// (spec §6).
type HostConfig struct {
	Host     string   `yaml:"host"`
	Port     int      `yaml:"port,omitempty"`
	Username string   `yaml:"username"`
	Auth     AuthKind `yaml:"auth"`
	// PrivateKeyPath is read when Auth is AuthKey; Password when AuthPassword.
	// The source config's `auth: key{private_key_path} | password{password}`
	// discriminated union is flattened here since Go has no tagged-union
	// type; Auth picks which of the two fields below applies.
	PrivateKeyPath string `yaml:"private_key_path,omitempty"`
	Password       string `yaml:"password,omitempty"`
}

// EffectivePort defaults to 22 when unset.
func (h HostConfig) EffectivePort() int {
	if h.Port <= 0 {
		return 22
	}
	return h.Port
}

func (h HostConfig) address() string {
	return fmt.Sprintf("%s:%d", h.Host, h.EffectivePort())
}

func (h HostConfig) clientConfig() (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod
	switch h.Auth {
	case AuthPassword:
		authMethods = append(authMethods, ssh.Password(h.Password))
	default:
		keyData, err := os.ReadFile(h.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read private key %s: %w", h.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(keyData)
		if err != nil {
			return nil, fmt.Errorf("parse private key %s: %w", h.PrivateKeyPath, err)
		}
		authMethods = append(authMethods, ssh.PublicKeys(signer))
	}

	return &ssh.ClientConfig{
		User:            h.Username,
		Auth:            authMethods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         10 * time.Second,
	}, nil
}

// Session wraps one host's persistent SSH client.
type Session struct {
	host   string
	client *ssh.Client
}

// Dial opens a host's SSH connection.
func Dial(cfg HostConfig) (*Session, error) {
	clientCfg, err := cfg.clientConfig()
	if err != nil {
		return nil, err
	}
	client, err := ssh.Dial("tcp", cfg.address(), clientCfg)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.address(), err)
	}
	return &Session{host: cfg.Host, client: client}, nil
}

// Run executes cmd over a fresh ssh.Session channel (multiplexed on the
// same TCP connection) and returns combined stdout+stderr.
func (s *Session) Run(cmd string) (string, error) {
	sess, err := s.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("open session on %s: %w", s.host, err)
	}
	defer sess.Close()

	var out bytes.Buffer
	sess.Stdout = &out
	sess.Stderr = &out
	if err := sess.Run(cmd); err != nil {
		return out.String(), fmt.Errorf("run %q on %s: %w (output: %s)", cmd, s.host, err, out.String())
	}
	return out.String(), nil
}

// NewSession opens a dedicated ssh.Session a skill can hold onto for a
// long-running or background command (spec §4.2's "may open a new
// session" note, and §5's "a dedicated connection" for lock-holder-style
// skills).
func (s *Session) NewSession() (*ssh.Session, error) {
	return s.client.NewSession()
}

func (s *Session) Close() error {
	return s.client.Close()
}
