package document

import (
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// optsLimit builds a Find options value capping the result set to n
// documents, used by the load-generating skills that only sample a bounded
// slice of a collection.
func optsLimit(n int) *options.FindOptions {
	lim := int64(n)
	return options.Find().SetLimit(lim)
}

// encodeUndo / decodeUndo mirror the relational agent's opaque YAML
// encoding of undo state (spec §3/§9: one format throughout, the log never
// inspects the payload).
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

// buildSkills returns the document-DB agent's fixed skill set.
func buildSkills() map[string]domain.Skill {
	skills := []domain.Skill{
		&insertLoadSkill{},
		&updateLoadSkill{},
		&findLoadSkill{},
		&indexDropSkill{},
		&profilingChangeSkill{},
		&connectionPoolStressSkill{},
	}
	m := make(map[string]domain.Skill, len(skills))
	for _, s := range skills {
		m[s.Descriptor().Name] = s
	}
	return m
}
