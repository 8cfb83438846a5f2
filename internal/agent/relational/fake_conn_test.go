package relational

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// fakeRow satisfies Row over a fixed, pre-scanned value set.
type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.vals) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = fmt.Sprint(r.vals[i])
		case *int32:
			n, _ := strconv.Atoi(fmt.Sprint(r.vals[i]))
			*v = int32(n)
		case *int64:
			n, _ := strconv.ParseInt(fmt.Sprint(r.vals[i]), 10, 64)
			*v = n
		case *bool:
			*v, _ = r.vals[i].(bool)
		}
	}
	return nil
}

// fakeRows iterates a fixed table of rows, each a slice of column values in
// scan order.
type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.data[r.pos-1]
	for i, d := range dest {
		if i >= len(row) {
			break
		}
		switch v := d.(type) {
		case *string:
			*v = fmt.Sprint(row[i])
		case *int:
			n, _ := strconv.Atoi(fmt.Sprint(row[i]))
			*v = n
		}
	}
	return nil
}

func (r *fakeRows) Close() error { return nil }
func (r *fakeRows) Err() error   { return nil }

// fakeConn is an in-memory stand-in for relational.Conn. queryRows maps a
// query substring to the rows it should yield; queryRowVals maps a query
// substring to the single-row values QueryRow returns. execLog records
// every statement handed to Exec, in order, for assertions.
type fakeConn struct {
	queryRows    map[string][][]any
	queryRowVals map[string][]any
	execLog      []string
	execErr      map[string]error
	nextPK       int
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		queryRows:    map[string][][]any{},
		queryRowVals: map[string][]any{},
		execErr:      map[string]error{},
	}
}

func (c *fakeConn) QueryRow(ctx context.Context, query string, args ...any) Row {
	for substr, vals := range c.queryRowVals {
		if strings.Contains(query, substr) {
			return fakeRow{vals: vals}
		}
	}
	c.nextPK++
	return fakeRow{vals: []any{strconv.Itoa(c.nextPK)}}
}

func (c *fakeConn) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	for substr, rows := range c.queryRows {
		if strings.Contains(query, substr) {
			return &fakeRows{data: rows}, nil
		}
	}
	return &fakeRows{}, nil
}

func (c *fakeConn) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	c.execLog = append(c.execLog, query)
	for substr, err := range c.execErr {
		if strings.Contains(query, substr) {
			return 0, err
		}
	}
	return 1, nil
}

func (c *fakeConn) Dedicated(ctx context.Context) (DedicatedConn, error) {
	return nil, fmt.Errorf("fakeConn: dedicated connections not supported in this fake")
}
