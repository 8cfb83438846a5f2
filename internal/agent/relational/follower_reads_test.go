package relational

import (
	"testing"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowerReadsSkill_WrongDialect(t *testing.T) {
	s := &followerReadsSkill{dbType: Postgres}
	_, err := s.Execute(&domain.SkillContext{Shared: newFakeConn(), Params: map[string]any{}})
	assert.Error(t, err)
}

func TestFollowerReadsSkill_ExecuteThenRollback(t *testing.T) {
	conn := newFakeConn()
	conn.queryRowVals["yb_read_from_followers"] = []any{"off"}
	conn.queryRowVals["yb_follower_read_staleness_ms"] = []any{"30000"}

	s := &followerReadsSkill{dbType: Yugabyte}
	skillCtx := &domain.SkillContext{
		Shared: conn,
		Params: map[string]any{"enable": true, "staleness": "5000ms"},
	}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo followerReadsUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	assert.Equal(t, "off", undo.OriginalFollowerRead)
	assert.Equal(t, "30000", undo.OriginalStaleness)

	require.Contains(t, conn.execLog, "SET yb_read_from_followers = 'on'")
	require.Contains(t, conn.execLog, "SET yb_follower_read_staleness_ms = '5000ms'")

	conn.execLog = nil
	require.NoError(t, s.Rollback(skillCtx, handle))
	assert.Contains(t, conn.execLog, "SET yb_read_from_followers = 'off'")
	assert.Contains(t, conn.execLog, "SET yb_follower_read_staleness_ms = '30000'")
}
