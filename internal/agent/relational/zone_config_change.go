package relational

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// zoneConfigChangeSkill is CockroachDB-specific: it changes zone
// configuration (replication factor, GC TTL, range sizes) for a database,
// table, or range.
type zoneConfigChangeSkill struct{ dbType DbType }

func (s *zoneConfigChangeSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "zone_config_change",
		Description: "Change CockroachDB zone configuration (replication factor, GC TTL, range sizes)",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func parseZoneConfigParams(params map[string]any) (string, []configEntry, error) {
	target := domain.ParamString(params, "target", "")
	if target == "" {
		return "", nil, domain.NewConfigError("zone_config_change requires target")
	}
	changes, err := parseConfigChanges(params)
	if err != nil {
		return "", nil, err
	}
	return target, changes, nil
}

func (s *zoneConfigChangeSkill) ValidateParams(params map[string]any) error {
	_, _, err := parseZoneConfigParams(params)
	return err
}

type zoneConfigUndoState struct {
	Target         string `yaml:"target"`
	OriginalConfig string `yaml:"original_config"`
}

func (s *zoneConfigChangeSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	if s.dbType != Cockroach {
		return domain.RollbackHandle{}, domain.NewConfigError("zone_config_change is only supported for CockroachDB")
	}
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	target, changes, err := parseZoneConfigParams(skillCtx.Params)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	var original string
	_ = conn.QueryRow(ctx, "SHOW ZONE CONFIGURATION FOR "+target).Scan(&original)

	overrides := make([]string, len(changes))
	for i, c := range changes {
		overrides[i] = fmt.Sprintf("%s = %s", c.Param, c.Value)
	}
	alterQuery := fmt.Sprintf("ALTER %s CONFIGURE ZONE USING %s", target, strings.Join(overrides, ", "))
	if _, err := conn.Exec(ctx, alterQuery); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("zone_config_change: alter zone for %s: %w", target, err)
	}

	for _, c := range changes {
		log.Printf("zone_config_change: %s %s set to %s", target, c.Param, c.Value)
	}

	return newHandle("zone_config_change", zoneConfigUndoState{Target: target, OriginalConfig: original})
}

func (s *zoneConfigChangeSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo zoneConfigUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("zone_config_change rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	if undo.OriginalConfig == "" {
		if _, err := conn.Exec(ctx, "ALTER "+undo.Target+" CONFIGURE ZONE DISCARD"); err != nil {
			log.Printf("zone_config_change rollback: discard zone config for %s failed: %v", undo.Target, err)
			return nil
		}
		log.Printf("zone_config_change rollback: %s reset to defaults", undo.Target)
		return nil
	}
	if _, err := conn.Exec(ctx, undo.OriginalConfig); err != nil {
		log.Printf("zone_config_change rollback: restore zone config for %s failed: %v", undo.Target, err)
		return nil
	}
	log.Printf("zone_config_change rollback: %s restored", undo.Target)
	return nil
}
