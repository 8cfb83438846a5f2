package relational

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type rowLockSkill struct{ dbType DbType }

func (s *rowLockSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "row_lock",
		Description: "Acquire row-level locks (SELECT ... FOR UPDATE) to simulate row contention",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *rowLockSkill) ValidateParams(params map[string]any) error {
	return validateRowLockType(domain.ParamString(params, "lock_type", "FOR UPDATE"))
}

type lockedTableSummary struct {
	Table    string `yaml:"table"`
	Schema   string `yaml:"schema"`
	RowCount int    `yaml:"row_count"`
}

type rowLockUndoState struct {
	BackendPID int32                `yaml:"backend_pid"`
	LockedRows []lockedTableSummary `yaml:"locked_rows"`
	LockType   string               `yaml:"lock_type"`
	DbType     string               `yaml:"db_type"`
}

func (s *rowLockSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	rowsPerTable := domain.ParamInt(skillCtx.Params, "rows_per_table", 100)
	lockType := strings.ToUpper(domain.ParamString(skillCtx.Params, "lock_type", "FOR UPDATE"))
	tables := resolveTables(ctx, conn, domain.ParamStringSlice(skillCtx.Params, "tables"))

	dedicated, err := conn.Dedicated(ctx)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("row_lock: acquire connection: %w", err)
	}
	handedOff := false
	defer func() {
		if !handedOff {
			dedicated.Release()
		}
	}()

	if _, err := dedicated.Exec(ctx, "BEGIN"); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("row_lock: BEGIN: %w", err)
	}

	var locked []lockedTableSummary
	for _, t := range tables {
		pkCol, ok := findPKColumn(ctx, dedicated, s.dbType, t.schema, t.name)
		if !ok {
			log.Printf("row_lock: no primary key found for %s, skipping", t.name)
			continue
		}

		lockSQL := fmt.Sprintf("SELECT * FROM %s ORDER BY %s LIMIT %d %s NOWAIT",
			qualifiedName(t.schema, t.name), pkCol, rowsPerTable, lockType)

		rows, err := dedicated.Query(ctx, lockSQL)
		if err != nil {
			log.Printf("row_lock: failed to lock rows in %s, skipping: %v", t.name, err)
			continue
		}
		count := 0
		for rows.Next() {
			count++
		}
		rows.Close()

		locked = append(locked, lockedTableSummary{Table: t.name, Schema: t.schema, RowCount: count})
	}

	if len(locked) == 0 {
		_, _ = dedicated.Exec(ctx, "ROLLBACK")
		return domain.RollbackHandle{}, fmt.Errorf("row_lock: no rows could be locked")
	}

	pid, err := dedicated.BackendPID(ctx, s.dbType)
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("row_lock: %w", err)
	}

	handedOff = true
	go func(dc DedicatedConn) {
		defer dc.Release()
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := dc.Exec(context.Background(), "SELECT 1"); err != nil {
				log.Printf("row_lock: holder connection for pid %d terminated: %v", pid, err)
				return
			}
		}
	}(dedicated)

	log.Printf("row_lock: holding row locks %v via backend pid %d", locked, pid)
	return newHandle("row_lock", rowLockUndoState{
		BackendPID: pid, LockedRows: locked, LockType: lockType, DbType: string(s.dbType),
	})
}

func (s *rowLockSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo rowLockUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("row_lock rollback: decode undo state: %w", err)
	}
	if err := terminateBackend(context.Background(), conn, DbType(undo.DbType), undo.BackendPID); err != nil {
		return fmt.Errorf("row_lock rollback: %w", err)
	}
	log.Printf("row_lock rollback: locks on %v released via backend pid %d", undo.LockedRows, undo.BackendPID)
	return nil
}
