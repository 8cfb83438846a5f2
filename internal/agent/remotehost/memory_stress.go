package remotehost

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type memoryStressSkill struct{}

func (s *memoryStressSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "memory_stress",
		Description: "Launch a background stress-ng memory load on the host",
		Target:      domain.RemoteHost,
		Reversible:  true,
	}
}

func (s *memoryStressSkill) ValidateParams(params map[string]any) error {
	if domain.ParamInt(params, "workers", 1) <= 0 {
		return domain.NewConfigError("memory_stress: workers must be positive")
	}
	if domain.ParamString(params, "memory", "") == "" {
		return domain.NewConfigError("memory_stress: memory is required")
	}
	return nil
}

type memoryStressUndoState struct {
	Host    string `yaml:"host"`
	PIDFile string `yaml:"pid_file"`
}

func (s *memoryStressSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	sess, err := agent.sessionFor(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("memory_stress: %w", err)
	}

	workers := domain.ParamInt(skillCtx.Params, "workers", 1)
	memory := domain.ParamString(skillCtx.Params, "memory", "256M")
	pidFile := fmt.Sprintf("/tmp/chaos_memory_stress_%s.pid", uuid.NewString()[:8])

	cmd := fmt.Sprintf(
		"nohup stress-ng --vm %d --vm-bytes %s --timeout %s >/dev/null 2>&1 & echo $! > %s",
		workers, memory, stressTimeout, pidFile,
	)
	if _, err := sess.Run(cmd); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("memory_stress: launch: %w", err)
	}

	return newHandle("memory_stress", memoryStressUndoState{Host: hostOf(skillCtx.Params, agent), PIDFile: pidFile})
}

func (s *memoryStressSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo memoryStressUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("memory_stress rollback: decode undo state: %w", err)
	}
	sess, ok := agent.sessions[undo.Host]
	if !ok {
		return fmt.Errorf("memory_stress rollback: no session for host %q", undo.Host)
	}
	cmd := fmt.Sprintf(
		"kill $(cat %s 2>/dev/null) 2>/dev/null; pkill -f 'stress-ng --vm' 2>/dev/null; rm -f %s",
		undo.PIDFile, undo.PIDFile,
	)
	_, _ = sess.Run(cmd)
	return nil
}
