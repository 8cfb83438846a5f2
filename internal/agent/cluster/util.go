package cluster

import (
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

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

// generatedName builds the "chaos-<kind>-<id>" names used for objects this
// tool creates, so they're easy to spot and clean up in the cluster.
func generatedName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func buildSkills() map[string]domain.Skill {
	skills := []domain.Skill{
		&podKillSkill{},
		&nodeDrainSkill{},
		&networkChaosSkill{},
		&resourceStressSkill{},
	}
	m := make(map[string]domain.Skill, len(skills))
	for _, s := range skills {
		m[s.Descriptor().Name] = s
	}
	return m
}
