package relational

import (
	"context"
	"fmt"
	"log"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// followerReadsSkill is YugabyteDB-specific: it toggles follower reads and
// staleness settings, testing how the application handles eventual
// consistency when reads are served from replicas.
type followerReadsSkill struct{ dbType DbType }

func (s *followerReadsSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "follower_reads",
		Description: "Toggle YugabyteDB follower reads to test eventual consistency behavior",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *followerReadsSkill) ValidateParams(params map[string]any) error { return nil }

type followerReadsUndoState struct {
	OriginalFollowerRead string `yaml:"original_follower_read"`
	OriginalStaleness    string `yaml:"original_staleness"`
}

func (s *followerReadsSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	if s.dbType != Yugabyte {
		return domain.RollbackHandle{}, domain.NewConfigError("follower_reads is only supported for YugabyteDB")
	}
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	enable := true
	if v, ok := skillCtx.Params["enable"]; ok {
		if b, ok := v.(bool); ok {
			enable = b
		}
	}
	staleness := domain.ParamString(skillCtx.Params, "staleness", "30000ms")

	var origFollower, origStaleness string
	if err := conn.QueryRow(ctx, "SHOW yb_read_from_followers").Scan(&origFollower); err != nil {
		origFollower = "off"
	}
	if err := conn.QueryRow(ctx, "SHOW yb_follower_read_staleness_ms").Scan(&origStaleness); err != nil {
		origStaleness = "30000"
	}

	enableStr := "off"
	if enable {
		enableStr = "on"
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET yb_read_from_followers = '%s'", enableStr)); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("follower_reads: set yb_read_from_followers: %w", err)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET yb_follower_read_staleness_ms = '%s'", staleness)); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("follower_reads: set yb_follower_read_staleness_ms: %w", err)
	}

	log.Printf("follower_reads: changed from %q to %q, staleness %s", origFollower, enableStr, staleness)

	return newHandle("follower_reads", followerReadsUndoState{
		OriginalFollowerRead: origFollower, OriginalStaleness: origStaleness,
	})
}

func (s *followerReadsSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo followerReadsUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("follower_reads rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET yb_read_from_followers = '%s'", undo.OriginalFollowerRead)); err != nil {
		log.Printf("follower_reads rollback: restore yb_read_from_followers failed: %v", err)
	} else {
		log.Printf("follower_reads rollback: yb_read_from_followers restored to %q", undo.OriginalFollowerRead)
	}
	if _, err := conn.Exec(ctx, fmt.Sprintf("SET yb_follower_read_staleness_ms = '%s'", undo.OriginalStaleness)); err != nil {
		log.Printf("follower_reads rollback: restore yb_follower_read_staleness_ms failed: %v", err)
	} else {
		log.Printf("follower_reads rollback: yb_follower_read_staleness_ms restored to %q", undo.OriginalStaleness)
	}
	return nil
}
