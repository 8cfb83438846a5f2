package orchestrator

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/chaosduck/chaos-agents/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResource satisfies domain.DiscoveredResource for orchestrator tests.
type fakeResource struct{ name string }

func (r fakeResource) ResourceType() string { return "fake" }
func (r fakeResource) ResourceName() string { return r.name }

// fakeSkill lets each test script failures, undo-state capture, and
// rollback outcomes without a real backend.
type fakeSkill struct {
	name        string
	failExecute bool
	failRollback bool
	executed    *int
	rolledBack  *[]string
}

func (s *fakeSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{Name: s.name, Target: domain.RelationalDB, Reversible: true}
}

func (s *fakeSkill) ValidateParams(params map[string]any) error { return nil }

func (s *fakeSkill) Execute(ctx *domain.SkillContext) (domain.RollbackHandle, error) {
	if s.failExecute {
		return domain.RollbackHandle{}, fmt.Errorf("forced execute failure")
	}
	if s.executed != nil {
		*s.executed++
	}
	return domain.RollbackHandle{ID: fmt.Sprintf("%s-%d", s.name, *s.executed), SkillName: s.name, CreatedAt: time.Now()}, nil
}

func (s *fakeSkill) Rollback(ctx *domain.SkillContext, handle domain.RollbackHandle) error {
	if s.rolledBack != nil {
		*s.rolledBack = append(*s.rolledBack, handle.ID)
	}
	if s.failRollback {
		return fmt.Errorf("forced rollback failure")
	}
	return nil
}

// fakeAgent implements domain.Agent in memory.
type fakeAgent struct {
	domainTag     domain.TargetDomain
	skills        map[string]domain.Skill
	initErr       error
	discoverErr   error
	initCalls     int
	shutdownCalls int
}

func newFakeAgent(skills ...domain.Skill) *fakeAgent {
	m := make(map[string]domain.Skill)
	for _, s := range skills {
		m[s.Descriptor().Name] = s
	}
	return &fakeAgent{domainTag: domain.RelationalDB, skills: m}
}

func (a *fakeAgent) Domain() domain.TargetDomain { return a.domainTag }
func (a *fakeAgent) Name() string                { return "fake-agent" }
func (a *fakeAgent) Status() domain.AgentStatus  { return domain.AgentReady }

func (a *fakeAgent) Initialize(ctx context.Context) error {
	a.initCalls++
	return a.initErr
}

func (a *fakeAgent) Discover(ctx context.Context) ([]domain.DiscoveredResource, error) {
	if a.discoverErr != nil {
		return nil, a.discoverErr
	}
	return []domain.DiscoveredResource{fakeResource{name: "t1"}}, nil
}

func (a *fakeAgent) Skills() []domain.Skill {
	out := make([]domain.Skill, 0, len(a.skills))
	for _, s := range a.skills {
		out = append(out, s)
	}
	return out
}

func (a *fakeAgent) SkillByName(name string) (domain.Skill, bool) {
	s, ok := a.skills[name]
	return s, ok
}

func (a *fakeAgent) BuildContext(params map[string]any) (*domain.SkillContext, error) {
	return &domain.SkillContext{Shared: a, Params: params}, nil
}

func (a *fakeAgent) Shutdown(ctx context.Context) error {
	a.shutdownCalls++
	return nil
}

// recordingSink captures every emitted event kind in order.
type recordingSink struct {
	kinds []event.Kind
}

func (s *recordingSink) Emit(e event.Event) { s.kinds = append(s.kinds, e.Kind) }

func TestRunExperimentHappyPath(t *testing.T) {
	executed := 0
	var rolled []string
	skill := &fakeSkill{name: "insert_load", executed: &executed, rolledBack: &rolled}
	agent := newFakeAgent(skill)

	o := New()
	o.RegisterAgent(agent)
	sink := &recordingSink{}
	o.AddEventSink(sink)

	cfg := domain.ExperimentConfig{
		Name:   "happy",
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "insert_load", Count: 1},
		},
		Duration: 10 * time.Millisecond,
	}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentCompleted, report.Status)
	assert.Len(t, report.SkillExecutions, 1)
	assert.True(t, report.SkillExecutions[0].Success)
	assert.Len(t, report.RollbackSteps, 1)
	assert.True(t, report.RollbackSteps[0].Success)
	assert.Equal(t, 1, agent.initCalls)
	assert.Equal(t, 1, agent.shutdownCalls)
	assert.Len(t, rolled, 1)

	assert.Equal(t, []event.Kind{
		event.Started, event.SkillExecuted, event.DurationWaitBegin,
		event.RollbackStarted, event.RollbackStepComplete, event.Completed,
	}, sink.kinds)
}

func TestRunExperimentUnknownTargetReturnsConfigError(t *testing.T) {
	o := New()
	cfg := domain.ExperimentConfig{Target: domain.Cluster}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, report)
	ce, ok := domain.AsChaosError(err)
	require.True(t, ok)
	assert.Equal(t, domain.KindConfiguration, ce.Kind)
}

func TestRunExperimentSkillFailureMidSequenceStillRollsBackPriorSuccesses(t *testing.T) {
	executed := 0
	var rolled []string
	insertSkill := &fakeSkill{name: "insert_load", executed: &executed, rolledBack: &rolled}
	failingSkill := &fakeSkill{name: "config_change", failExecute: true, executed: new(int)}
	agent := newFakeAgent(insertSkill, failingSkill)

	o := New()
	o.RegisterAgent(agent)

	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "insert_load", Count: 1},
			{SkillName: "config_change", Count: 1},
		},
		Duration: time.Minute,
	}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentFailed, report.Status)
	require.Len(t, report.SkillExecutions, 2)
	assert.True(t, report.SkillExecutions[0].Success)
	assert.False(t, report.SkillExecutions[1].Success)
	require.Len(t, report.RollbackSteps, 1)
	assert.Equal(t, "insert_load", report.RollbackSteps[0].SkillName)
	assert.True(t, report.RollbackSteps[0].Success)
}

func TestRunExperimentRollbackStepFailureDoesNotAbortSubsequentSteps(t *testing.T) {
	executedA, executedB, executedC := 0, 0, 0
	var rolled []string
	skillA := &fakeSkill{name: "a", executed: &executedA, rolledBack: &rolled}
	skillB := &fakeSkill{name: "b", executed: &executedB, rolledBack: &rolled, failRollback: true}
	skillC := &fakeSkill{name: "c", executed: &executedC, rolledBack: &rolled}
	agent := newFakeAgent(skillA, skillB, skillC)

	o := New()
	o.RegisterAgent(agent)

	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "a", Count: 1},
			{SkillName: "b", Count: 1},
			{SkillName: "c", Count: 1},
		},
		Duration: time.Millisecond,
	}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.Len(t, report.RollbackSteps, 3)
	// reverse insertion order: c, b, a
	assert.Equal(t, "c", report.RollbackSteps[0].SkillName)
	assert.True(t, report.RollbackSteps[0].Success)
	assert.Equal(t, "b", report.RollbackSteps[1].SkillName)
	assert.False(t, report.RollbackSteps[1].Success)
	assert.Equal(t, "a", report.RollbackSteps[2].SkillName)
	assert.True(t, report.RollbackSteps[2].Success)
}

func TestRunExperimentCountSemantics(t *testing.T) {
	executed := 0
	var rolled []string
	skill := &fakeSkill{name: "insert_load", executed: &executed, rolledBack: &rolled}
	agent := newFakeAgent(skill)

	o := New()
	o.RegisterAgent(agent)

	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "insert_load", Count: 4},
		},
		Duration: time.Millisecond,
	}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Len(t, report.SkillExecutions, 4)
	assert.Len(t, report.RollbackSteps, 4)
}

func TestRunExperimentEmptyLogProducesZeroRollbackSteps(t *testing.T) {
	failingSkill := &fakeSkill{name: "config_change", failExecute: true, executed: new(int)}
	agent := newFakeAgent(failingSkill)

	o := New()
	o.RegisterAgent(agent)

	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "config_change", Count: 1},
		},
		Duration: time.Minute,
	}

	report, err := o.RunExperiment(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ExperimentFailed, report.Status)
	assert.Len(t, report.RollbackSteps, 0)
}

func TestRunExperimentCancellationDuringSoakSkipsWaitAndStillRollsBack(t *testing.T) {
	executed := 0
	var rolled []string
	skill := &fakeSkill{name: "insert_load", executed: &executed, rolledBack: &rolled}
	agent := newFakeAgent(skill)

	o := New()
	o.RegisterAgent(agent)

	cancel := &CancelFlag{}
	cfg := domain.ExperimentConfig{
		Target: domain.RelationalDB,
		Skills: []domain.SkillInvocation{
			{SkillName: "insert_load", Count: 1},
		},
		Duration: time.Hour,
	}

	// Cancel immediately after the call starts by flipping it in a goroutine
	// racing the execute phase; since execute is effectively instantaneous
	// here, cancel before calling to exercise the soak-skip path directly.
	cancel.Cancel()

	start := time.Now()
	report, err := o.RunExperiment(context.Background(), cfg, cancel)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Less(t, elapsed, 5*time.Second)
	assert.Equal(t, domain.ExperimentFailed, report.Status)
	assert.Len(t, report.RollbackSteps, 0)
}
