package relational

import (
	"testing"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestUpdateLoadSkill_ExecuteThenRollback exercises S2: after rollback, the
// original values are restored exactly.
func TestUpdateLoadSkill_ExecuteThenRollback(t *testing.T) {
	conn := newFakeConn()
	conn.queryRowVals["key_column_usage"] = []any{"id"}
	conn.queryRows["information_schema.columns"] = [][]any{{"note", "text"}}
	conn.queryRows["SELECT id, note FROM public.orders"] = [][]any{
		{"1", "a"}, {"2", "b"}, {"3", "c"},
	}

	s := &updateLoadSkill{dbType: Postgres}
	skillCtx := &domain.SkillContext{
		Shared: conn,
		Params: map[string]any{"rows": 3, "tables": []any{"orders"}},
	}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo []updateUndoEntry
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	require.Len(t, undo, 3)
	assert.Equal(t, "a", undo[0].OriginalValue)
	assert.Equal(t, "1", undo[0].PKValue)

	// The sentinel write happened during Execute.
	var sentinelWrites int
	for _, q := range conn.execLog {
		if q == "UPDATE public.orders SET note = $1 WHERE id = $2" {
			sentinelWrites++
		}
	}
	assert.Equal(t, 3, sentinelWrites)

	conn.execLog = nil
	require.NoError(t, s.Rollback(skillCtx, handle))
	require.Len(t, conn.execLog, 3)
	for _, q := range conn.execLog {
		assert.Equal(t, "UPDATE public.orders SET note = $1 WHERE id = $2", q)
	}
}

func TestFirstTextColumn(t *testing.T) {
	conn := newFakeConn()
	conn.queryRows["information_schema.columns"] = [][]any{
		{"amount", "numeric"},
		{"note", "text"},
	}
	col, ok := firstTextColumn(nil, conn, Postgres, "public", "orders", "id")
	assert.True(t, ok)
	assert.Equal(t, "note", col)
}

func TestFirstTextColumn_NoneFound(t *testing.T) {
	conn := newFakeConn()
	conn.queryRows["information_schema.columns"] = [][]any{{"amount", "numeric"}}
	_, ok := firstTextColumn(nil, conn, Postgres, "public", "orders", "id")
	assert.False(t, ok)
}
