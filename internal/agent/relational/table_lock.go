package relational

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type tableLockSkill struct{ dbType DbType }

func (s *tableLockSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "table_lock",
		Description: "Acquire table-level locks to simulate lock contention",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *tableLockSkill) ValidateParams(params map[string]any) error {
	return validateLockMode(domain.ParamString(params, "lock_mode", "ACCESS EXCLUSIVE"))
}

type tableLockUndoState struct {
	BackendPID   int32    `yaml:"backend_pid"`
	LockedTables []string `yaml:"locked_tables"`
	LockMode     string   `yaml:"lock_mode"`
	DbType       string   `yaml:"db_type"`
}

func (s *tableLockSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	lockMode := strings.ToUpper(domain.ParamString(skillCtx.Params, "lock_mode", "ACCESS EXCLUSIVE"))
	tables := resolveTables(ctx, conn, domain.ParamStringSlice(skillCtx.Params, "tables"))

	dedicated, err := conn.Dedicated(ctx)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("table_lock: acquire connection: %w", err)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			dedicated.Release()
		}
	}()

	if _, err := dedicated.Exec(ctx, "BEGIN"); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("table_lock: BEGIN: %w", err)
	}

	var locked []string
	for _, t := range tables {
		var lockSQL string
		if s.dbType == Mysql {
			mode := "READ"
			if strings.Contains(lockMode, "EXCLUSIVE") {
				mode = "WRITE"
			}
			lockSQL = fmt.Sprintf("LOCK TABLES `%s` %s", t.name, mode)
		} else {
			lockSQL = fmt.Sprintf("LOCK TABLE %s IN %s MODE NOWAIT", qualifiedName(t.schema, t.name), lockMode)
		}
		if _, err := dedicated.Exec(ctx, lockSQL); err != nil {
			log.Printf("table_lock: failed to lock %s, skipping: %v", t.name, err)
			continue
		}
		locked = append(locked, qualifiedName(t.schema, t.name))
	}

	if len(locked) == 0 {
		_, _ = dedicated.Exec(ctx, "ROLLBACK")
		return domain.RollbackHandle{}, fmt.Errorf("table_lock: no tables could be locked")
	}

	pid, err := dedicated.BackendPID(ctx, s.dbType)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("table_lock: %w", err)
	}

	// Hand the dedicated connection to a background keepalive task so the
	// locks outlive Execute's return; it exits (and releases) once the
	// connection errors, matching the spec's ~30s keepalive convention.
	handedOff = true
	go func(dc DedicatedConn) {
		defer dc.Release()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := dc.Exec(context.Background(), "SELECT 1"); err != nil {
				log.Printf("table_lock: holder connection for pid %d terminated: %v", pid, err)
				return
			}
		}
	}(dedicated)

	log.Printf("table_lock: holding locks on %v via backend pid %d", locked, pid)
	return newHandle("table_lock", tableLockUndoState{
		BackendPID: pid, LockedTables: locked, LockMode: lockMode, DbType: string(s.dbType),
	})
}

func (s *tableLockSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo tableLockUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("table_lock rollback: decode undo state: %w", err)
	}
	if err := terminateBackend(context.Background(), conn, DbType(undo.DbType), undo.BackendPID); err != nil {
		return fmt.Errorf("table_lock rollback: %w", err)
	}
	log.Printf("table_lock rollback: locks on %v released via backend pid %d", undo.LockedTables, undo.BackendPID)
	return nil
}
