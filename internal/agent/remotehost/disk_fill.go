package remotehost

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type diskFillSkill struct{}

func (s *diskFillSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "disk_fill",
		Description: "Create a large file under a target mount to simulate disk pressure",
		Target:      domain.RemoteHost,
		Reversible:  true,
	}
}

func (s *diskFillSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "target_mount", "") == "" {
		return domain.NewConfigError("disk_fill: target_mount is required")
	}
	if _, err := parseSizeBytes(domain.ParamString(params, "size", "100MB")); err != nil {
		return domain.NewConfigError("disk_fill: %v", err)
	}
	return nil
}

type diskFillUndoState struct {
	Host string `yaml:"host"`
	Path string `yaml:"path"`
}

var sizePattern = regexp.MustCompile(`(?i)^(\d+)\s*(gb|g|mb|m)$`)

// parseSizeBytes accepts NGB/NMB/NG/NM, per spec §4.7.
func parseSizeBytes(size string) (int64, error) {
	m := sizePattern.FindStringSubmatch(strings.TrimSpace(size))
	if m == nil {
		return 0, fmt.Errorf("invalid size %q: expected NGB/NMB/NG/NM", size)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, err
	}
	unit := strings.ToLower(m[2])
	if unit == "gb" || unit == "g" {
		return n * 1024 * 1024 * 1024, nil
	}
	return n * 1024 * 1024, nil
}

func (s *diskFillSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	sess, err := agent.sessionFor(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("disk_fill: %w", err)
	}

	targetMount := domain.ParamString(skillCtx.Params, "target_mount", "/")
	sizeBytes, err := parseSizeBytes(domain.ParamString(skillCtx.Params, "size", "100MB"))
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("disk_fill: %w", err)
	}

	path := strings.TrimSuffix(targetMount, "/") + "/chaos_disk_fill.tmp"
	cmd := fmt.Sprintf(
		"fallocate -l %d %s 2>/dev/null || dd if=/dev/zero of=%s bs=1M count=%d",
		sizeBytes, path, path, sizeBytes/(1024*1024),
	)
	if _, err := sess.Run(cmd); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("disk_fill: create file: %w", err)
	}

	return newHandle("disk_fill", diskFillUndoState{Host: hostOf(skillCtx.Params, agent), Path: path})
}

func (s *diskFillSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	agent, err := agentFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo diskFillUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("disk_fill rollback: decode undo state: %w", err)
	}
	sess, ok := agent.sessions[undo.Host]
	if !ok {
		return fmt.Errorf("disk_fill rollback: no session for host %q", undo.Host)
	}
	if _, err := sess.Run(fmt.Sprintf("rm -f %s", undo.Path)); err != nil {
		return fmt.Errorf("disk_fill rollback: remove %s: %w", undo.Path, err)
	}
	return nil
}
