package relational

import (
	"testing"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSelectLoadSkill_ReadOnly verifies select_load issues read queries and
// its rollback is a documented no-op (no Exec calls at all).
func TestSelectLoadSkill_ReadOnly(t *testing.T) {
	conn := newFakeConn()
	s := &selectLoadSkill{dbType: Postgres}
	skillCtx := &domain.SkillContext{
		Shared: conn,
		Params: map[string]any{"query_count": 6, "tables": []any{"orders"}},
	}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo selectUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	assert.Equal(t, 6, undo.QueriesIssued)
	assert.Empty(t, conn.execLog)

	require.NoError(t, s.Rollback(skillCtx, handle))
	assert.Empty(t, conn.execLog)
}

func TestSelectLoadSkill_NoTables(t *testing.T) {
	conn := newFakeConn()
	s := &selectLoadSkill{dbType: Postgres}
	skillCtx := &domain.SkillContext{Shared: conn, Params: map[string]any{}}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)
	var undo selectUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	assert.Equal(t, 0, undo.QueriesIssued)
}
