package relational

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// encodeUndo YAML-encodes a skill's undo state for storage on a
// RollbackHandle (spec §3: the log never inspects the payload, but it must
// round-trip through the same encoding used for config).
func encodeUndo(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

func decodeUndo(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}

func newHandle(skillName string, undo any) (domain.RollbackHandle, error) {
	data, err := encodeUndo(undo)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	return domain.RollbackHandle{
		ID:        uuid.NewString(),
		SkillName: skillName,
		CreatedAt: time.Now(),
		UndoState: data,
	}, nil
}

// buildSkills returns the fixed skill set for a relational agent. Dialect-
// specific skills (zone_config_change, follower_reads) are always present;
// they reject execution with a Configuration error when dbType doesn't
// match, the same fail-fast behavior the Rust original gets from only
// constructing those skills for the matching dialect.
func buildSkills(agent *Agent, dbType DbType) map[string]domain.Skill {
	skills := []domain.Skill{
		&insertLoadSkill{dbType: dbType},
		&updateLoadSkill{dbType: dbType},
		&selectLoadSkill{dbType: dbType},
		&configChangeSkill{dbType: dbType},
		&tableLockSkill{dbType: dbType},
		&rowLockSkill{dbType: dbType},
		&zoneConfigChangeSkill{dbType: dbType},
		&followerReadsSkill{dbType: dbType},
	}
	m := make(map[string]domain.Skill, len(skills))
	for _, s := range skills {
		m[s.Descriptor().Name] = s
	}
	return m
}
