package relational

import (
	"testing"

	"github.com/chaosduck/chaos-agents/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseZoneConfigParams(t *testing.T) {
	_, _, err := parseZoneConfigParams(map[string]any{
		"changes": []any{map[string]any{"param": "num_replicas", "value": "5"}},
	})
	assert.Error(t, err, "target is required")

	target, changes, err := parseZoneConfigParams(map[string]any{
		"target":  "DATABASE chaos",
		"changes": []any{map[string]any{"param": "num_replicas", "value": "5"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "DATABASE chaos", target)
	assert.Equal(t, []configEntry{{Param: "num_replicas", Value: "5"}}, changes)
}

func TestZoneConfigChangeSkill_WrongDialect(t *testing.T) {
	s := &zoneConfigChangeSkill{dbType: Postgres}
	_, err := s.Execute(&domain.SkillContext{Shared: newFakeConn(), Params: map[string]any{
		"target":  "DATABASE chaos",
		"changes": []any{map[string]any{"param": "num_replicas", "value": "5"}},
	}})
	assert.Error(t, err)
}

func TestZoneConfigChangeSkill_ExecuteThenRollback(t *testing.T) {
	conn := newFakeConn()
	conn.queryRowVals["SHOW ZONE CONFIGURATION"] = []any{"ALTER DATABASE chaos CONFIGURE ZONE USING num_replicas = 3"}

	s := &zoneConfigChangeSkill{dbType: Cockroach}
	skillCtx := &domain.SkillContext{
		Shared: conn,
		Params: map[string]any{
			"target":  "DATABASE chaos",
			"changes": []any{map[string]any{"param": "num_replicas", "value": "5"}},
		},
	}

	handle, err := s.Execute(skillCtx)
	require.NoError(t, err)

	var undo zoneConfigUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &undo))
	assert.Equal(t, "DATABASE chaos", undo.Target)
	assert.Equal(t, "ALTER DATABASE chaos CONFIGURE ZONE USING num_replicas = 3", undo.OriginalConfig)

	conn.execLog = nil
	require.NoError(t, s.Rollback(skillCtx, handle))
	require.Len(t, conn.execLog, 1)
	assert.Equal(t, "ALTER DATABASE chaos CONFIGURE ZONE USING num_replicas = 3", conn.execLog[0])
}

func TestZoneConfigChangeSkill_Rollback_NoCapturedConfig_Discards(t *testing.T) {
	conn := newFakeConn()
	s := &zoneConfigChangeSkill{dbType: Cockroach}
	handle, err := newHandle("zone_config_change", zoneConfigUndoState{Target: "TABLE orders"})
	require.NoError(t, err)

	require.NoError(t, s.Rollback(&domain.SkillContext{Shared: conn}, handle))
	require.Len(t, conn.execLog, 1)
	assert.Equal(t, "ALTER TABLE orders CONFIGURE ZONE DISCARD", conn.execLog[0])
}
