// Package relational implements the chaos agent for Postgres, MySQL, and
// the Postgres-wire-compatible distributed variants (CockroachDB,
// YugabyteDB). Skills talk to the target through the Conn abstraction so
// the same skill code runs over either driver; only SQL dialect differs,
// and that is already branched on by DbType per skill.
package relational

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DbType selects the wire dialect and lock/config syntax a skill uses.
// Postgres, CockroachDB and YugabyteDB all speak the Postgres wire protocol
// and share pgx as a driver; MySQL uses database/sql with the mysql driver.
type DbType string

const (
	Postgres  DbType = "postgres"
	Mysql     DbType = "mysql"
	Cockroach DbType = "cockroach"
	Yugabyte  DbType = "yugabyte"
)

// IsPostgresFamily reports whether t speaks the Postgres wire protocol.
func (t DbType) IsPostgresFamily() bool {
	return t == Postgres || t == Cockroach || t == Yugabyte
}

// Row is the minimal single-row scan surface both drivers satisfy.
type Row interface {
	Scan(dest ...any) error
}

// Rows is the minimal multi-row iteration surface both drivers satisfy.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

// Conn is the shared-handle surface every relational skill operates
// through. It is placed on SkillContext.Shared by Agent.BuildContext.
type Conn interface {
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	// Dedicated checks out an exclusive connection for lock-holding skills.
	// The caller owns its lifetime and must Release it.
	Dedicated(ctx context.Context) (DedicatedConn, error)
}

// DedicatedConn is a single checked-out connection, used by table_lock and
// row_lock to hold locks alive across a background keepalive task.
type DedicatedConn interface {
	QueryRow(ctx context.Context, query string, args ...any) Row
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) (int64, error)
	BackendPID(ctx context.Context, dbType DbType) (int32, error)
	Release()
}

// placeholder renders the positional-parameter marker for the nth
// (1-indexed) bound argument in dbType's dialect.
func placeholder(dbType DbType, n int) string {
	if dbType == Mysql {
		return "?"
	}
	return fmt.Sprintf("$%d", n)
}

// --- pgx-backed implementation (Postgres, CockroachDB, YugabyteDB) ---

type pgxConn struct{ pool *pgxpool.Pool }

func (c pgxConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.pool.QueryRow(ctx, query, args...)
}

func (c pgxConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRowsAdapter{rows}, nil
}

func (c pgxConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgxConn) Dedicated(ctx context.Context) (DedicatedConn, error) {
	conn, err := c.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return pgxDedicatedConn{conn}, nil
}

type pgxRowsAdapter struct{ pgx.Rows }

func (r pgxRowsAdapter) Close() error {
	r.Rows.Close()
	return nil
}

type pgxDedicatedConn struct{ conn *pgxpool.Conn }

func (c pgxDedicatedConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.conn.QueryRow(ctx, query, args...)
}

func (c pgxDedicatedConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := c.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgxRowsAdapter{rows}, nil
}

func (c pgxDedicatedConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.conn.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgxDedicatedConn) BackendPID(ctx context.Context, dbType DbType) (int32, error) {
	var pid int32
	if err := c.conn.QueryRow(ctx, "SELECT pg_backend_pid()").Scan(&pid); err != nil {
		return 0, fmt.Errorf("get backend pid: %w", err)
	}
	return pid, nil
}

func (c pgxDedicatedConn) Release() { c.conn.Release() }
