package remotehost

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type cpuStressSkill struct{}

func (s *cpuStressSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "cpu_stress",
		Description: "Launch a background stress-ng CPU load on the host",
		Target:      domain.RemoteHost,
		Reversible:  true,
	}
}

func (s *cpuStressSkill) ValidateParams(params map[string]any) error {
	if domain.ParamInt(params, "workers", 1) <= 0 {
		return domain.NewConfigError("cpu_stress: workers must be positive")
	}
	return nil
}

// stressTimeout bounds how long a launched stress-ng process runs on its
// own, in case rollback never happens.
const stressTimeout = "3600s"

type cpuStressUndoState struct {
	Host    string `yaml:"host"`
	PIDFile string `yaml:"pid_file"`
}

func (s *cpuStressSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	sess, err := agent.sessionFor(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("cpu_stress: %w", err)
	}

	workers := domain.ParamInt(skillCtx.Params, "workers", 1)
	pidFile := fmt.Sprintf("/tmp/chaos_cpu_stress_%s.pid", uuid.NewString()[:8])

	cmd := fmt.Sprintf(
		"nohup stress-ng --cpu %d --timeout %s >/dev/null 2>&1 & echo $! > %s",
		workers, stressTimeout, pidFile,
	)
	if _, err := sess.Run(cmd); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("cpu_stress: launch: %w", err)
	}

	return newHandle("cpu_stress", cpuStressUndoState{Host: hostOf(skillCtx.Params, agent), PIDFile: pidFile})
}

func (s *cpuStressSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo cpuStressUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("cpu_stress rollback: decode undo state: %w", err)
	}
	sess, ok := agent.sessions[undo.Host]
	if !ok {
		return fmt.Errorf("cpu_stress rollback: no session for host %q", undo.Host)
	}
	cmd := fmt.Sprintf(
		"kill $(cat %s 2>/dev/null) 2>/dev/null; pkill -f 'stress-ng --cpu' 2>/dev/null; rm -f %s",
		undo.PIDFile, undo.PIDFile,
	)
	// best effort: the process may have already exited on its own timeout
	_, _ = sess.Run(cmd)
	return nil
}
