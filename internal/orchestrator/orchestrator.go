// Package orchestrator drives the experiment state machine: it selects the
// agent for an experiment's target domain, walks the declared skill
// invocations, holds the soak window, and replays the rollback log in
// reverse, always, regardless of how execution went.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/chaosduck/chaos-agents/internal/event"
)

// CancelFlag is a per-experiment atomic cancellation switch an observer
// (e.g. a UI signal handler) may set. It is checked at the soak sleep and
// between skill invocations; rollback always runs regardless of its state.
type CancelFlag struct {
	set atomic.Bool
}

// Cancel flips the flag. Safe to call from any goroutine, any number of
// times.
func (f *CancelFlag) Cancel() { f.set.Store(true) }

// IsCancelled reports whether Cancel has been called.
func (f *CancelFlag) IsCancelled() bool { return f.set.Load() }

// agentEntry pairs a registered agent with the RWMutex the orchestrator
// takes a write-lock on during Initialize/Discover and a read-lock on
// during execute/rollback, per spec §5's agent access rule.
type agentEntry struct {
	mu    sync.RWMutex
	agent domain.Agent
}

// Orchestrator owns the agent registry and event sink fanout for however
// many experiments are run against it over its lifetime. It holds no
// per-experiment state itself; RunExperiment is safe to call repeatedly
// (and, since each call only takes the targeted agent's lock, concurrently
// for different target domains).
type Orchestrator struct {
	mu     sync.RWMutex
	agents map[domain.TargetDomain]*agentEntry
	sinks  []event.Sink
}

// New creates an empty Orchestrator; agents and sinks are added before the
// first RunExperiment call.
func New() *Orchestrator {
	return &Orchestrator{
		agents: make(map[domain.TargetDomain]*agentEntry),
	}
}

// RegisterAgent adds an agent, keyed by its Domain(). Registering a second
// agent for the same domain replaces the first.
func (o *Orchestrator) RegisterAgent(a domain.Agent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.agents[a.Domain()] = &agentEntry{agent: a}
}

// AddEventSink registers a sink to receive every lifecycle event from
// every future RunExperiment call.
func (o *Orchestrator) AddEventSink(s event.Sink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sinks = append(o.sinks, s)
}

type sinkCtxKey struct{}

// WithSink attaches an additional sink that only receives events emitted
// during calls made with the returned context, on top of every globally
// registered sink. Used by callers (e.g. an SSE handler) that need the
// event stream for one specific RunExperiment call without subscribing to
// every other concurrent run.
func WithSink(ctx context.Context, s event.Sink) context.Context {
	return context.WithValue(ctx, sinkCtxKey{}, s)
}

func (o *Orchestrator) emit(ctx context.Context, e event.Event) {
	o.mu.RLock()
	sinks := o.sinks
	o.mu.RUnlock()
	for _, s := range sinks {
		s.Emit(e)
	}
	if extra, ok := ctx.Value(sinkCtxKey{}).(event.Sink); ok {
		extra.Emit(e)
	}
}

func (o *Orchestrator) lookupAgent(target domain.TargetDomain) (*agentEntry, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	entry, ok := o.agents[target]
	if !ok {
		return nil, domain.ConfigurationError("no agent registered for target domain %q", target)
	}
	return entry, nil
}

// RunExperiment drives one experiment's full lifecycle per spec §4.3. It
// returns an error only for Configuration/Connection/Discovery failures
// encountered before the execute phase begins; once skills start
// executing, the outcome is encoded in the returned report instead.
func (o *Orchestrator) RunExperiment(ctx context.Context, cfg domain.ExperimentConfig, cancel *CancelFlag) (*domain.ExperimentReport, error) {
	if cancel == nil {
		cancel = &CancelFlag{}
	}

	entry, err := o.lookupAgent(cfg.Target)
	if err != nil {
		return nil, err
	}

	exp := domain.NewExperiment(cfg)
	o.emit(ctx, event.NewStarted(exp.ID, time.Now()))

	entry.mu.Lock()
	initErr := entry.agent.Initialize(ctx)
	entry.mu.Unlock()
	if initErr != nil {
		wrapped := domain.ConnectionError(initErr)
		o.emit(ctx, event.NewFailed(exp.ID, wrapped.Error()))
		return nil, wrapped
	}
	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelShutdown()
		entry.mu.Lock()
		if err := entry.agent.Shutdown(shutdownCtx); err != nil {
			log.Printf("experiment %s: agent shutdown error: %v", exp.ID, err)
		}
		entry.mu.Unlock()
	}()

	exp.Status = domain.ExperimentDiscovering
	entry.mu.Lock()
	resources, discErr := entry.agent.Discover(ctx)
	entry.mu.Unlock()
	if discErr != nil {
		wrapped := domain.DiscoveryError("discovery failed: %v", discErr)
		o.emit(ctx, event.NewFailed(exp.ID, wrapped.Error()))
		return nil, wrapped
	}

	report := &domain.ExperimentReport{
		ExperimentID:        exp.ID,
		ExperimentName:      cfg.Name,
		TargetDomain:        cfg.Target,
		DiscoveredResources: domain.SummarizeResources(resources),
	}

	exp.Status = domain.ExperimentExecuting
	now := time.Now()
	exp.StartedAt = &now

	o.executeSkills(ctx, exp, entry, cancel, report)

	executionFailed := exp.Status == domain.ExperimentFailed

	if !executionFailed && !cancel.IsCancelled() {
		exp.Status = domain.ExperimentWaitingDur
		o.emit(ctx, event.NewDurationWaitBegin(exp.ID, cfg.Duration))
		o.waitSoak(ctx, cfg.Duration, cancel)
	}
	if cancel.IsCancelled() && exp.Status != domain.ExperimentFailed {
		exp.MarkFailed("cancelled")
	}

	o.rollback(ctx, exp, entry, report)

	completed := time.Now()
	exp.CompletedAt = &completed
	report.StartedAt = exp.StartedAt
	report.CompletedAt = exp.CompletedAt
	report.SoakDuration = cfg.Duration

	if exp.Status == domain.ExperimentFailed {
		o.emit(ctx, event.NewFailed(exp.ID, exp.FailureReason))
	}
	if exp.Status != domain.ExperimentFailed {
		exp.Status = domain.ExperimentCompleted
	}
	report.Status = exp.Status
	o.emit(ctx, event.NewCompleted(exp.ID, completed))

	return report, nil
}

// executeSkills walks the invocation list in config order. It stops at the
// first failed repetition (of any skill) but leaves every handle already
// pushed by earlier successes on the log for rollback.
func (o *Orchestrator) executeSkills(ctx context.Context, exp *domain.Experiment, entry *agentEntry, cancel *CancelFlag, report *domain.ExperimentReport) {
	entry.mu.RLock()
	defer entry.mu.RUnlock()

	for _, inv := range exp.Config.Skills {
		if cancel.IsCancelled() {
			return
		}

		skill, ok := entry.agent.SkillByName(inv.SkillName)
		if !ok {
			exp.MarkFailed(fmt.Sprintf("skill not found: %s", inv.SkillName))
			report.SkillExecutions = append(report.SkillExecutions, domain.SkillExecutionRecord{
				SkillName: inv.SkillName,
				Success:   false,
				Error:     exp.FailureReason,
			})
			o.emit(ctx, event.NewSkillExecuted(exp.ID, inv.SkillName, false))
			return
		}

		if err := skill.ValidateParams(inv.Params); err != nil {
			exp.MarkFailed(fmt.Sprintf("invalid params for %s: %v", inv.SkillName, err))
			report.SkillExecutions = append(report.SkillExecutions, domain.SkillExecutionRecord{
				SkillName: inv.SkillName,
				Success:   false,
				Error:     exp.FailureReason,
			})
			o.emit(ctx, event.NewSkillExecuted(exp.ID, inv.SkillName, false))
			return
		}

		for rep := 0; rep < inv.EffectiveCount(); rep++ {
			if cancel.IsCancelled() {
				return
			}

			skillCtx, buildErr := entry.agent.BuildContext(inv.Params)
			if buildErr != nil {
				exp.MarkFailed(fmt.Sprintf("build context for %s: %v", inv.SkillName, buildErr))
				report.SkillExecutions = append(report.SkillExecutions, domain.SkillExecutionRecord{
					SkillName: inv.SkillName,
					Success:   false,
					Error:     exp.FailureReason,
				})
				o.emit(ctx, event.NewSkillExecuted(exp.ID, inv.SkillName, false))
				return
			}

			start := time.Now()
			handle, execErr := skill.Execute(skillCtx)
			duration := time.Since(start)

			if execErr != nil {
				exp.MarkFailed(fmt.Sprintf("skill %s execution failed: %v", inv.SkillName, execErr))
				report.SkillExecutions = append(report.SkillExecutions, domain.SkillExecutionRecord{
					SkillName: inv.SkillName,
					Success:   false,
					Duration:  duration,
					Error:     execErr.Error(),
				})
				o.emit(ctx, event.NewSkillExecuted(exp.ID, inv.SkillName, false))
				return
			}

			exp.RollbackLog.Push(handle)
			report.SkillExecutions = append(report.SkillExecutions, domain.SkillExecutionRecord{
				SkillName: inv.SkillName,
				Success:   true,
				Duration:  duration,
			})
			o.emit(ctx, event.NewSkillExecuted(exp.ID, inv.SkillName, true))
		}
	}
}

func (o *Orchestrator) waitSoak(ctx context.Context, d time.Duration, cancel *CancelFlag) {
	if d <= 0 {
		return
	}
	const pollInterval = 100 * time.Millisecond
	deadline := time.Now().Add(d)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		if cancel.IsCancelled() || time.Now().After(deadline) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// rollback replays the log in strict reverse insertion order. It always
// runs exactly once per experiment and never aborts early: a failed step
// is logged and recorded, then the next is attempted (spec invariant 2/3,
// testable property "rollback totality").
func (o *Orchestrator) rollback(ctx context.Context, exp *domain.Experiment, entry *agentEntry, report *domain.ExperimentReport) {
	o.emit(ctx, event.NewRollbackStarted(exp.ID))

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	for _, handle := range exp.RollbackLog.IterReverse() {
		skill, ok := entry.agent.SkillByName(handle.SkillName)
		if !ok {
			report.RollbackSteps = append(report.RollbackSteps, domain.RollbackStepRecord{
				SkillName: handle.SkillName,
				Success:   false,
				Error:     "skill not found",
			})
			o.emit(ctx, event.NewRollbackStepCompleted(exp.ID, handle.SkillName, false))
			continue
		}

		skillCtx, buildErr := entry.agent.BuildContext(nil)
		if buildErr != nil {
			report.RollbackSteps = append(report.RollbackSteps, domain.RollbackStepRecord{
				SkillName: handle.SkillName,
				Success:   false,
				Error:     fmt.Sprintf("build context: %v", buildErr),
			})
			o.emit(ctx, event.NewRollbackStepCompleted(exp.ID, handle.SkillName, false))
			continue
		}

		start := time.Now()
		err := skill.Rollback(skillCtx, handle)
		duration := time.Since(start)

		if err != nil {
			log.Printf("experiment %s: rollback of %s (handle %s) failed: %v", exp.ID, handle.SkillName, handle.ID, err)
			report.RollbackSteps = append(report.RollbackSteps, domain.RollbackStepRecord{
				SkillName: handle.SkillName,
				Success:   false,
				Duration:  duration,
				Error:     err.Error(),
			})
			o.emit(ctx, event.NewRollbackStepCompleted(exp.ID, handle.SkillName, false))
			continue
		}

		report.RollbackSteps = append(report.RollbackSteps, domain.RollbackStepRecord{
			SkillName: handle.SkillName,
			Success:   true,
			Duration:  duration,
		})
		o.emit(ctx, event.NewRollbackStepCompleted(exp.ID, handle.SkillName, true))
	}
}
