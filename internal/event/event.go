// Package event defines the experiment lifecycle events the orchestrator
// emits and the sinks that consume them.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the seven event variants the orchestrator can emit.
// Ordering invariant: Started, (SkillExecuted)*, DurationWaitBegin?,
// RollbackStarted, (RollbackStepCompleted)*, Failed?, Completed (Completed
// is always last; Failed precedes it when the run failed). A failure during
// agent initialization or discovery emits Started, Failed and nothing more.
type Kind string

const (
	Started              Kind = "started"
	SkillExecuted        Kind = "skill_executed"
	DurationWaitBegin    Kind = "duration_wait_begin"
	RollbackStarted      Kind = "rollback_started"
	RollbackStepComplete Kind = "rollback_step_completed"
	Completed            Kind = "completed"
	Failed               Kind = "failed"
)

// Event is a single lifecycle notification for one experiment run. Only
// the fields relevant to Kind are populated; the rest are zero values.
type Event struct {
	Kind         Kind          `json:"kind"`
	ExperimentID uuid.UUID     `json:"experiment_id"`
	At           time.Time     `json:"at,omitempty"`
	SkillName    string        `json:"skill_name,omitempty"`
	Success      bool          `json:"success,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Error        string        `json:"error,omitempty"`
}

func NewStarted(id uuid.UUID, at time.Time) Event {
	return Event{Kind: Started, ExperimentID: id, At: at}
}

func NewSkillExecuted(id uuid.UUID, name string, success bool) Event {
	return Event{Kind: SkillExecuted, ExperimentID: id, SkillName: name, Success: success}
}

func NewDurationWaitBegin(id uuid.UUID, d time.Duration) Event {
	return Event{Kind: DurationWaitBegin, ExperimentID: id, Duration: d}
}

func NewRollbackStarted(id uuid.UUID) Event {
	return Event{Kind: RollbackStarted, ExperimentID: id}
}

func NewRollbackStepCompleted(id uuid.UUID, name string, success bool) Event {
	return Event{Kind: RollbackStepComplete, ExperimentID: id, SkillName: name, Success: success}
}

func NewCompleted(id uuid.UUID, at time.Time) Event {
	return Event{Kind: Completed, ExperimentID: id, At: at}
}

func NewFailed(id uuid.UUID, reason string) Event {
	return Event{Kind: Failed, ExperimentID: id, Error: reason}
}

// Sink receives every event the orchestrator emits. Implementations must
// not block the orchestrator for long; ChannelSink's whole purpose is to
// decouple a slow consumer from the run loop.
type Sink interface {
	Emit(e Event)
}
