package relational

import (
	"testing"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigChanges(t *testing.T) {
	changes, err := parseConfigChanges(map[string]any{
		"changes": []any{
			map[string]any{"param": "max_connections", "value": "200"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []configEntry{{Param: "max_connections", Value: "200"}}, changes)
}

func TestParseConfigChanges_Errors(t *testing.T) {
	_, err := parseConfigChanges(map[string]any{})
	assert.Error(t, err)

	_, err = parseConfigChanges(map[string]any{"changes": []any{}})
	assert.Error(t, err)

	_, err = parseConfigChanges(map[string]any{"changes": []any{"not-a-map"}})
	assert.Error(t, err)

	_, err = parseConfigChanges(map[string]any{"changes": []any{map[string]any{"value": "x"}}})
	assert.Error(t, err)
}

// TestConfigChangeSkill_ExecuteThenRollback verifies the config_change skill
// captures the exact original string and restores it verbatim.
func TestConfigChangeSkill_ExecuteThenRollback(t *testing.T) {
	conn := newFakeConn()
	conn.queryRowVals["SHOW statement_timeout"] = []any{"30s"}

	s := &configChangeSkill{dbType: Postgres}
	skillCtx := &domain.SkillContext{
		Shared: conn,
		Params: map[string]any{
			"changes": []any{map[string]any{"param": "statement_timeout", "value": "5s"}},
		},
	}

	require.NoError(t, s.ValidateParams(skillCtx.Params))

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo []configUndoEntry
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	require.Len(t, undo, 1)
	assert.Equal(t, "statement_timeout", undo[0].Param)
	assert.Equal(t, "30s", undo[0].OriginalValue)

	conn.execLog = nil
	require.NoError(t, s.Rollback(skillCtx, handle))
	require.NotEmpty(t, conn.execLog)
	assert.Contains(t, conn.execLog[0], "ALTER SYSTEM SET statement_timeout = '30s'")
}

func TestConfigChangeSkill_Execute_NoDialect(t *testing.T) {
	s := &configChangeSkill{}
	_, err := s.Execute(&domain.SkillContext{Shared: newFakeConn(), Params: map[string]any{
		"changes": []any{map[string]any{"param": "x", "value": "y"}},
	}})
	assert.Error(t, err)
}
