package relational

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type configChangeSkill struct{ dbType DbType }

func (s *configChangeSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "config_change",
		Description: "Alter database configuration parameters with rollback",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

type configEntry struct {
	Param string
	Value string
}

func parseConfigChanges(params map[string]any) ([]configEntry, error) {
	raw, ok := params["changes"]
	if !ok {
		return nil, domain.NewConfigError("config_change requires a non-empty changes list")
	}
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, domain.NewConfigError("config_change requires a non-empty changes list")
	}
	out := make([]configEntry, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, domain.NewConfigError("config_change: each change must be a {param, value} map")
		}
		param, _ := m["param"].(string)
		value, _ := m["value"].(string)
		if param == "" {
			return nil, domain.NewConfigError("config_change: change entry missing param")
		}
		out = append(out, configEntry{Param: param, Value: value})
	}
	return out, nil
}

func (s *configChangeSkill) ValidateParams(params map[string]any) error {
	_, err := parseConfigChanges(params)
	return err
}

type configUndoEntry struct {
	Param         string `yaml:"param"`
	OriginalValue string `yaml:"original_value"`
	DbType        string `yaml:"db_type"`
}

func (s *configChangeSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	if s.dbType == "" {
		return domain.RollbackHandle{}, domain.NewConfigError("config_change: no dialect configured")
	}
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	changes, err := parseConfigChanges(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	var undo []configUndoEntry
	for _, change := range changes {
		var original string
		var readQuery string
		switch s.dbType {
		case Postgres, Yugabyte:
			readQuery = "SHOW " + change.Param
		case Cockroach:
			readQuery = "SHOW CLUSTER SETTING " + change.Param
		case Mysql:
			readQuery = "SELECT @@" + change.Param
		}
		if err := conn.QueryRow(ctx, readQuery).Scan(&original); err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("config_change: read %s: %w", change.Param, err)
		}

		var alterQuery string
		switch s.dbType {
		case Postgres, Yugabyte:
			alterQuery = fmt.Sprintf("ALTER SYSTEM SET %s = '%s'", change.Param, change.Value)
		case Cockroach:
			alterQuery = fmt.Sprintf("SET CLUSTER SETTING %s = '%s'", change.Param, change.Value)
		case Mysql:
			alterQuery = fmt.Sprintf("SET GLOBAL %s = '%s'", change.Param, change.Value)
		}
		if _, err := conn.Exec(ctx, alterQuery); err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("config_change: set %s: %w", change.Param, err)
		}

		if s.dbType == Postgres || s.dbType == Yugabyte {
			_, _ = conn.Exec(ctx, "SELECT pg_reload_conf()")
		}

		log.Printf("config_change: %s set from %q to %q", change.Param, original, change.Value)
		undo = append(undo, configUndoEntry{Param: change.Param, OriginalValue: original, DbType: string(s.dbType)})
	}

	return newHandle("config_change", undo)
}

func (s *configChangeSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []configUndoEntry
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("config_change rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		lower := strings.ToLower(e.DbType)
		var restoreQuery string
		switch {
		case strings.Contains(lower, "cockroach"):
			restoreQuery = fmt.Sprintf("SET CLUSTER SETTING %s = '%s'", e.Param, e.OriginalValue)
		case strings.Contains(lower, "postgres") || strings.Contains(lower, "yugabyte"):
			restoreQuery = fmt.Sprintf("ALTER SYSTEM SET %s = '%s'", e.Param, e.OriginalValue)
		default:
			restoreQuery = fmt.Sprintf("SET GLOBAL %s = '%s'", e.Param, e.OriginalValue)
		}
		if _, err := conn.Exec(ctx, restoreQuery); err != nil {
			log.Printf("config_change rollback: restore %s failed: %v", e.Param, err)
			continue
		}
		if strings.Contains(lower, "postgres") || strings.Contains(lower, "yugabyte") {
			_, _ = conn.Exec(ctx, "SELECT pg_reload_conf()")
		}
		log.Printf("config_change rollback: %s restored to %q", e.Param, e.OriginalValue)
	}
	return nil
}
