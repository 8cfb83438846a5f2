package remotehost

import (
	"fmt"
	"log"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type serviceStopSkill struct{}

func (s *serviceStopSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "service_stop",
		Description: "Stop a sample of running systemd services",
		Target:      domain.RemoteHost,
		Reversible:  true,
	}
}

func (s *serviceStopSkill) ValidateParams(params map[string]any) error { return nil }

type serviceStopUndoState struct {
	Host     string   `yaml:"host"`
	Services []string `yaml:"services"`
}

func (s *serviceStopSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	sess, err := agent.sessionFor(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("service_stop: %w", err)
	}

	targets := domain.ParamStringSlice(skillCtx.Params, "services")
	if len(targets) == 0 {
		maxServices := domain.ParamInt(skillCtx.Params, "max_services", 1)
		discovered, err := discoverServices(sess, mergeExclusions(nil))
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("service_stop: discover services: %w", err)
		}
		if maxServices < len(discovered) {
			discovered = discovered[:maxServices]
		}
		targets = discovered
	}

	var stopped []string
	for _, svc := range targets {
		if _, err := sess.Run(fmt.Sprintf("systemctl stop %s", svc)); err != nil {
			log.Printf("service_stop: failed to stop %s: %v", svc, err)
			continue
		}
		stopped = append(stopped, svc)
	}

	return newHandle("service_stop", serviceStopUndoState{Host: hostOf(skillCtx.Params, agent), Services: stopped})
}

func (s *serviceStopSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo serviceStopUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("service_stop rollback: decode undo state: %w", err)
	}
	sess, ok := agent.sessions[undo.Host]
	if !ok {
		return fmt.Errorf("service_stop rollback: no session for host %q", undo.Host)
	}
	for _, svc := range undo.Services {
		if _, err := sess.Run(fmt.Sprintf("systemctl start %s", svc)); err != nil {
			return fmt.Errorf("service_stop rollback: start %s: %w", svc, err)
		}
	}
	return nil
}

// hostOf resolves the host name a skill actually ran against, for undo
// state, mirroring Agent.sessionFor's own default-to-first-host logic.
func hostOf(params map[string]any, agent *Agent) string {
	host := domain.ParamString(params, "host", "")
	if host != "" {
		return host
	}
	if len(agent.order) > 0 {
		return agent.order[0]
	}
	return ""
}
