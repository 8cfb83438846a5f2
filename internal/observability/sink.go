package observability

import "github.com/chaosduck/chaos-agents/internal/event"

// EventSink adapts the orchestrator's event stream onto Prometheus counters,
// so rollback-step outcomes are observable without the orchestrator itself
// depending on this package.
type EventSink struct {
	metrics *Metrics
}

func NewEventSink(metrics *Metrics) *EventSink {
	return &EventSink{metrics: metrics}
}

func (s *EventSink) Emit(e event.Event) {
	if e.Kind != event.RollbackStepComplete {
		return
	}
	status := "ok"
	if !e.Success {
		status = "failed"
	}
	s.metrics.RecordRollback(status)
}
