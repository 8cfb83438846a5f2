package relational

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type insertLoadSkill struct{ dbType DbType }

func (s *insertLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "insert_load",
		Description: "Insert synthetic rows into target tables, tracking inserted keys for rollback",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *insertLoadSkill) ValidateParams(params map[string]any) error { return nil }

type insertUndoEntry struct {
	Schema   string   `yaml:"schema"`
	Table    string   `yaml:"table"`
	PKColumn string   `yaml:"pk_column"`
	PKValues []string `yaml:"pk_values"`
}

func (s *insertLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	rowsPerTable := domain.ParamInt(skillCtx.Params, "rows_per_table", 1000)
	tables := resolveTables(ctx, conn, domain.ParamStringSlice(skillCtx.Params, "tables"))

	var undo []insertUndoEntry
	for _, t := range tables {
		pkCol, ok := findPKColumn(ctx, conn, s.dbType, t.schema, t.name)
		if !ok {
			continue
		}
		cols, err := nonPKColumns(ctx, conn, s.dbType, t.schema, t.name, pkCol)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("insert_load: columns for %s.%s: %w", t.schema, t.name, err)
		}
		if len(cols) == 0 {
			continue
		}

		var ids []string
		for seed := 0; seed < rowsPerTable; seed++ {
			values := make([]string, len(cols))
			for i, c := range cols {
				values[i] = generateValue(c.DataType, seed)
			}
			query := fmt.Sprintf(
				"INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
				qualifiedName(t.schema, t.name), columnList(cols), strings.Join(values, ", "), pkCol,
			)
			if s.dbType == Mysql {
				// MySQL has no RETURNING; issue the insert then read LAST_INSERT_ID.
				query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", qualifiedName(t.schema, t.name), columnList(cols), strings.Join(values, ", "))
				if _, err := conn.Exec(ctx, query); err != nil {
					return domain.RollbackHandle{}, fmt.Errorf("insert_load: insert into %s: %w", t.name, err)
				}
				var id int64
				if err := conn.QueryRow(ctx, "SELECT LAST_INSERT_ID()").Scan(&id); err == nil {
					ids = append(ids, strconv.FormatInt(id, 10))
				}
				continue
			}

			var pkVal string
			if err := conn.QueryRow(ctx, query).Scan(&pkVal); err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("insert_load: insert into %s: %w", t.name, err)
			}
			ids = append(ids, pkVal)
		}

		if len(ids) > 0 {
			undo = append(undo, insertUndoEntry{Schema: t.schema, Table: t.name, PKColumn: pkCol, PKValues: ids})
		}
	}

	return newHandle("insert_load", undo)
}

func (s *insertLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []insertUndoEntry
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("insert_load rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		if len(e.PKValues) == 0 {
			continue
		}
		placeholders := make([]string, len(e.PKValues))
		args := make([]any, len(e.PKValues))
		for i, v := range e.PKValues {
			placeholders[i] = placeholder(s.dbType, i+1)
			args[i] = v
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", qualifiedName(e.Schema, e.Table), e.PKColumn, strings.Join(placeholders, ", "))
		if _, err := conn.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("insert_load rollback: delete from %s: %w", e.Table, err)
		}
	}
	return nil
}

// generateValue maps a column's SQL data type to a deterministic literal
// suitable for inlining directly into the INSERT text.
func generateValue(dataType string, seed int) string {
	lower := strings.ToLower(dataType)
	switch {
	case strings.Contains(lower, "int") || strings.Contains(lower, "numeric") || strings.Contains(lower, "float") || strings.Contains(lower, "double") || strings.Contains(lower, "decimal"):
		return strconv.Itoa(seed)
	case strings.Contains(lower, "timestamp") || strings.Contains(lower, "date"):
		return "'2024-01-01 00:00:00'"
	case strings.Contains(lower, "bool"):
		if seed%2 == 0 {
			return "true"
		}
		return "false"
	case strings.Contains(lower, "json"):
		return fmt.Sprintf("'{\"chaos\": %d}'", seed)
	default:
		return fmt.Sprintf("'chaos_%d'", seed)
	}
}

func qualifiedName(schema, table string) string {
	if schema == "" {
		return table
	}
	return schema + "." + table
}

func columnList(cols []domain.ColumnInfo) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return strings.Join(names, ", ")
}

// resolveTables uses the explicit table list when given (assumed public
// schema), otherwise falls back to discovery.
func resolveTables(ctx context.Context, conn Conn, explicit []string) []tableRef {
	if len(explicit) > 0 {
		out := make([]tableRef, len(explicit))
		for i, t := range explicit {
			out[i] = tableRef{schema: "public", name: t}
		}
		return out
	}
	tables, err := discoverUserTables(ctx, conn)
	if err != nil {
		return nil
	}
	return tables
}

func nonPKColumns(ctx context.Context, conn Conn, dbType DbType, schema, table, pkCol string) ([]domain.ColumnInfo, error) {
	query := "SELECT column_name, data_type FROM information_schema.columns WHERE table_schema = " +
		placeholder(dbType, 1) + " AND table_name = " + placeholder(dbType, 2) + " AND column_name != " + placeholder(dbType, 3)
	rows, err := conn.Query(ctx, query, schema, table, pkCol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ColumnInfo
	for rows.Next() {
		var c domain.ColumnInfo
		if err := rows.Scan(&c.Name, &c.DataType); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
