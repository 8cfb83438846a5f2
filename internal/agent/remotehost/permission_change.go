package remotehost

import (
	"fmt"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type permissionChangeSkill struct{}

func (s *permissionChangeSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "permission_change",
		Description: "Change the mode of target paths, restoring the originals on rollback",
		Target:      domain.RemoteHost,
		Reversible:  true,
	}
}

func (s *permissionChangeSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "mode", "") == "" {
		return domain.NewConfigError("permission_change: mode is required")
	}
	return nil
}

// commonConfigPaths are probed when no explicit paths are given.
var commonConfigPaths = []string{
	"/etc/passwd", "/etc/hosts", "/etc/ssh/sshd_config",
	"/etc/nginx/nginx.conf", "/etc/resolv.conf",
}

type permissionUndoEntry struct {
	Path         string `yaml:"path"`
	OriginalMode string `yaml:"original_mode"`
}

type permissionUndoState struct {
	Host    string                 `yaml:"host"`
	Entries []permissionUndoEntry `yaml:"entries"`
}

func (s *permissionChangeSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	sess, err := agent.sessionFor(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("permission_change: %w", err)
	}

	mode := domain.ParamString(skillCtx.Params, "mode", "")
	paths := domain.ParamStringSlice(skillCtx.Params, "paths")
	if len(paths) == 0 {
		paths = commonConfigPaths
	}

	var entries []permissionUndoEntry
	for _, path := range paths {
		originalMode, ok := statMode(sess, path)
		if !ok {
			continue
		}
		if _, err := sess.Run(fmt.Sprintf("chmod %s %s", mode, path)); err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("permission_change: chmod %s: %w", path, err)
		}
		entries = append(entries, permissionUndoEntry{Path: path, OriginalMode: originalMode})
	}

	return newHandle("permission_change", permissionUndoState{Host: hostOf(skillCtx.Params, agent), Entries: entries})
}

// statMode reads a path's current mode using GNU stat syntax, falling back
// to BSD stat syntax. Returns ok=false when the path doesn't exist.
func statMode(sess *Session, path string) (string, bool) {
	out, err := sess.Run(fmt.Sprintf("stat -c %%a %s 2>/dev/null || stat -f %%Lp %s 2>/dev/null", path, path))
	mode := strings.TrimSpace(out)
	if err != nil || mode == "" {
		return "", false
	}
	return mode, true
}

func (s *permissionChangeSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo permissionUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("permission_change rollback: decode undo state: %w", err)
	}
	sess, ok := agent.sessions[undo.Host]
	if !ok {
		return fmt.Errorf("permission_change rollback: no session for host %q", undo.Host)
	}
	for _, e := range undo.Entries {
		if _, err := sess.Run(fmt.Sprintf("chmod %s %s", e.OriginalMode, e.Path)); err != nil {
			return fmt.Errorf("permission_change rollback: chmod %s: %w", e.Path, err)
		}
	}
	return nil
}
