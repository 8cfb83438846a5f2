package relational

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

const updateSentinel = "chaos_modified"

type updateLoadSkill struct{ dbType DbType }

func (s *updateLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "update_load",
		Description: "Overwrite one text column on a sample of rows with a sentinel value, capturing originals for rollback",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *updateLoadSkill) ValidateParams(params map[string]any) error { return nil }

type updateUndoEntry struct {
	Schema        string `yaml:"schema"`
	Table         string `yaml:"table"`
	PKColumn      string `yaml:"pk_column"`
	PKValue       string `yaml:"pk_value"`
	Column        string `yaml:"column"`
	OriginalValue string `yaml:"original_value"`
}

func (s *updateLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	rows := domain.ParamInt(skillCtx.Params, "rows", 100)
	tables := resolveTables(ctx, conn, domain.ParamStringSlice(skillCtx.Params, "tables"))

	var undo []updateUndoEntry
	for _, t := range tables {
		pkCol, ok := findPKColumn(ctx, conn, s.dbType, t.schema, t.name)
		if !ok {
			continue
		}
		textCol, ok := firstTextColumn(ctx, conn, s.dbType, t.schema, t.name, pkCol)
		if !ok {
			continue
		}

		selectQuery := fmt.Sprintf("SELECT %s, %s FROM %s LIMIT %d", pkCol, textCol, qualifiedName(t.schema, t.name), rows)
		resultRows, err := conn.Query(ctx, selectQuery)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("update_load: select from %s: %w", t.name, err)
		}

		type pair struct{ pk, original string }
		var pairs []pair
		for resultRows.Next() {
			var p pair
			if err := resultRows.Scan(&p.pk, &p.original); err != nil {
				resultRows.Close()
				return domain.RollbackHandle{}, err
			}
			pairs = append(pairs, p)
		}
		resultRows.Close()

		for _, p := range pairs {
			updateQuery := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
				qualifiedName(t.schema, t.name), textCol, placeholder(s.dbType, 1), pkCol, placeholder(s.dbType, 2))
			if _, err := conn.Exec(ctx, updateQuery, updateSentinel, p.pk); err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("update_load: update %s: %w", t.name, err)
			}
			undo = append(undo, updateUndoEntry{
				Schema: t.schema, Table: t.name, PKColumn: pkCol,
				PKValue: p.pk, Column: textCol, OriginalValue: p.original,
			})
		}
	}

	return newHandle("update_load", undo)
}

func (s *updateLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []updateUndoEntry
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("update_load rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		query := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s = %s",
			qualifiedName(e.Schema, e.Table), e.Column, placeholder(s.dbType, 1), e.PKColumn, placeholder(s.dbType, 2))
		if _, err := conn.Exec(ctx, query, e.OriginalValue, e.PKValue); err != nil {
			return fmt.Errorf("update_load rollback: restore %s.%s row %s: %w", e.Table, e.Column, e.PKValue, err)
		}
	}
	return nil
}

// firstTextColumn finds the first non-PK text-like column, the same
// convention the original picks a sentinel-writable column with.
func firstTextColumn(ctx context.Context, conn Conn, dbType DbType, schema, table, pkCol string) (string, bool) {
	query := "SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = " +
		placeholder(dbType, 1) + " AND table_name = " + placeholder(dbType, 2) + " AND column_name != " + placeholder(dbType, 3) +
		" ORDER BY ordinal_position"
	rows, err := conn.Query(ctx, query, schema, table, pkCol)
	if err != nil {
		return "", false
	}
	defer rows.Close()
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return "", false
		}
		lower := strings.ToLower(dataType)
		if strings.Contains(lower, "char") || strings.Contains(lower, "text") {
			return name, true
		}
	}
	return "", false
}
