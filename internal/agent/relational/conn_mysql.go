package relational

import (
	"context"
	"database/sql"
	"fmt"
)

// --- database/sql-backed implementation (MySQL) ---

type sqlConn struct{ db *sql.DB }

func (c sqlConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c sqlConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c sqlConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c sqlConn) Dedicated(ctx context.Context) (DedicatedConn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return sqlDedicatedConn{conn}, nil
}

type sqlDedicatedConn struct{ conn *sql.Conn }

func (c sqlDedicatedConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c sqlDedicatedConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c sqlDedicatedConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := c.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (c sqlDedicatedConn) BackendPID(ctx context.Context, dbType DbType) (int32, error) {
	var id int64
	if err := c.conn.QueryRowContext(ctx, "SELECT CONNECTION_ID()").Scan(&id); err != nil {
		return 0, fmt.Errorf("get connection id: %w", err)
	}
	return int32(id), nil
}

func (c sqlDedicatedConn) Release() { c.conn.Close() }
