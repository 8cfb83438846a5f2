package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a ChaosError the way the orchestrator needs to
// decide whether run_experiment returns an error or a report: Config and
// Connection failures abort before execution begins, the rest are folded
// into the report's outcome.
type ErrorKind int

const (
	KindConfiguration ErrorKind = iota
	KindConnection
	KindDiscovery
	KindSkillExecution
	KindRollbackFailed
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindDiscovery:
		return "discovery"
	case KindSkillExecution:
		return "skill_execution"
	case KindRollbackFailed:
		return "rollback_failed"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ChaosError is the single error type surfaced across agents and the
// orchestrator. It wraps an underlying cause and tags it with a Kind so
// callers can branch on failure category without string matching.
type ChaosError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *ChaosError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChaosError) Unwrap() error { return e.Cause }

func NewChaosError(kind ErrorKind, message string, cause error) *ChaosError {
	return &ChaosError{Kind: kind, Message: message, Cause: cause}
}

func ConfigurationError(format string, args ...any) error {
	return &ChaosError{Kind: KindConfiguration, Message: fmt.Sprintf(format, args...)}
}

func ConnectionError(cause error) error {
	return &ChaosError{Kind: KindConnection, Message: "connection failed", Cause: cause}
}

func DiscoveryError(format string, args ...any) error {
	return &ChaosError{Kind: KindDiscovery, Message: fmt.Sprintf(format, args...)}
}

func SkillExecutionError(skillName string, cause error) error {
	return &ChaosError{Kind: KindSkillExecution, Message: "skill execution failed: " + skillName, Cause: cause}
}

func RollbackFailedError(skillName string, cause error) error {
	return &ChaosError{Kind: KindRollbackFailed, Message: "rollback failed: " + skillName, Cause: cause}
}

func TimeoutError(d time.Duration) error {
	return &ChaosError{Kind: KindTimeout, Message: fmt.Sprintf("experiment timeout after %s", d)}
}

// AsChaosError unwraps err looking for a *ChaosError, the way callers
// branch on Kind.
func AsChaosError(err error) (*ChaosError, bool) {
	var ce *ChaosError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
