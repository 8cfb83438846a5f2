package relational

import (
	"context"
	"fmt"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

var validTableLockModes = []string{
	"ACCESS SHARE",
	"ROW SHARE",
	"ROW EXCLUSIVE",
	"SHARE UPDATE EXCLUSIVE",
	"SHARE",
	"SHARE ROW EXCLUSIVE",
	"EXCLUSIVE",
	"ACCESS EXCLUSIVE",
}

var validRowLockTypes = []string{
	"FOR UPDATE",
	"FOR NO KEY UPDATE",
	"FOR SHARE",
	"FOR KEY SHARE",
}

func validateLockMode(mode string) error {
	upper := strings.ToUpper(mode)
	for _, m := range validTableLockModes {
		if m == upper {
			return nil
		}
	}
	return domain.NewConfigError("invalid lock mode %q: valid modes are %v", mode, validTableLockModes)
}

func validateRowLockType(lockType string) error {
	upper := strings.ToUpper(lockType)
	for _, t := range validRowLockTypes {
		if t == upper {
			return nil
		}
	}
	return domain.NewConfigError("invalid row lock type %q: valid types are %v", lockType, validRowLockTypes)
}

// queryable is the read/write surface both Conn and DedicatedConn expose;
// helpers that run equally well over either accept this instead.
type queryable interface {
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
}

// discoverUserTables returns up to 5 (schema, table) pairs outside the
// system schemas, used when a skill isn't given an explicit table list.
func discoverUserTables(ctx context.Context, conn queryable) ([]tableRef, error) {
	rows, err := conn.Query(ctx, `SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'mysql', 'performance_schema', 'sys', 'crdb_internal')
		AND table_type = 'BASE TABLE' LIMIT 5`)
	if err != nil {
		return nil, domain.DiscoveryError("list tables: %v", err)
	}
	defer rows.Close()

	var out []tableRef
	for rows.Next() {
		var t tableRef
		if err := rows.Scan(&t.schema, &t.name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// findPKColumn returns the primary-key column name for schema.table, if any.
func findPKColumn(ctx context.Context, conn queryable, dbType DbType, schema, table string) (string, bool) {
	query := `SELECT c.column_name FROM information_schema.columns c
		JOIN information_schema.key_column_usage kcu
			ON c.table_schema = kcu.table_schema AND c.table_name = kcu.table_name AND c.column_name = kcu.column_name
		JOIN information_schema.table_constraints tc
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY' AND c.table_schema = ` + placeholder(dbType, 1) + ` AND c.table_name = ` + placeholder(dbType, 2) + `
		LIMIT 1`

	var col string
	if err := conn.QueryRow(ctx, query, schema, table).Scan(&col); err != nil {
		return "", false
	}
	return col, true
}

// terminateBackend kills the connection holding pid, releasing whatever
// locks it held. MySQL uses KILL; the Postgres-wire family uses
// pg_terminate_backend.
func terminateBackend(ctx context.Context, conn Conn, dbType DbType, pid int32) error {
	if dbType == Mysql {
		if _, err := conn.Exec(ctx, fmt.Sprintf("KILL %d", pid)); err != nil {
			return fmt.Errorf("KILL mysql connection %d: %w", pid, err)
		}
		return nil
	}
	var terminated bool
	if err := conn.QueryRow(ctx, "SELECT pg_terminate_backend("+placeholder(dbType, 1)+")", pid).Scan(&terminated); err != nil {
		return fmt.Errorf("terminate backend pid %d: %w", pid, err)
	}
	return nil
}
