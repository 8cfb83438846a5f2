package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type indexDropSkill struct{}

func (s *indexDropSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "index_drop",
		Description: "Drop indexes from target collections, capturing their specs to rebuild on rollback",
		Target:      domain.DocumentDB,
		Reversible:  true,
	}
}

func (s *indexDropSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "database", "") == "" {
		return domain.NewConfigError("index_drop: database is required")
	}
	return nil
}

type droppedIndex struct {
	Database   string         `yaml:"database"`
	Collection string         `yaml:"collection"`
	Name       string         `yaml:"name"`
	Key        map[string]any `yaml:"key"`
	Unique     bool           `yaml:"unique"`
	Sparse     bool           `yaml:"sparse"`
	TTLSeconds *int32         `yaml:"ttl_seconds,omitempty"`
}

func (s *indexDropSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	database := domain.ParamString(skillCtx.Params, "database", "")
	maxPerCollection := domain.ParamInt(skillCtx.Params, "max_per_collection", 1)
	collections, err := targetCollections(ctx, client, database, domain.ParamStringSlice(skillCtx.Params, "collections"))
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("index_drop: resolve collections: %w", err)
	}

	var undo []droppedIndex
	for _, collName := range collections {
		coll := client.Database(database).Collection(collName)
		cur, err := coll.Indexes().List(ctx)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("index_drop: list indexes on %s.%s: %w", database, collName, err)
		}
		var specs []bson.M
		if err := cur.All(ctx, &specs); err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("index_drop: decode indexes on %s.%s: %w", database, collName, err)
		}

		dropped := 0
		for _, spec := range specs {
			if dropped >= maxPerCollection {
				break
			}
			name, _ := spec["name"].(string)
			if name == "_id_" {
				continue
			}
			keyDoc, _ := spec["key"].(bson.M)
			if _, err := coll.Indexes().DropOne(ctx, name); err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("index_drop: drop %s on %s.%s: %w", name, database, collName, err)
			}
			entry := droppedIndex{
				Database:   database,
				Collection: collName,
				Name:       name,
				Key:        bsonMToMap(keyDoc),
				Unique:     boolField(spec, "unique"),
				Sparse:     boolField(spec, "sparse"),
			}
			if seconds, ok := int32Field(spec, "expireAfterSeconds"); ok {
				entry.TTLSeconds = &seconds
			}
			undo = append(undo, entry)
			dropped++
		}
	}

	return newHandle("index_drop", undo)
}

func (s *indexDropSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []droppedIndex
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("index_drop rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		coll := client.Database(e.Database).Collection(e.Collection)
		keys := bson.D{}
		for k, v := range e.Key {
			keys = append(keys, bson.E{Key: k, Value: v})
		}
		model := mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetName(e.Name).SetUnique(e.Unique).SetSparse(e.Sparse),
		}
		if e.TTLSeconds != nil {
			model.Options.SetExpireAfterSeconds(*e.TTLSeconds)
		}
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("index_drop rollback: recreate %s on %s.%s: %w", e.Name, e.Database, e.Collection, err)
		}
	}
	return nil
}

func bsonMToMap(m bson.M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func boolField(spec bson.M, key string) bool {
	v, ok := spec[key].(bool)
	return ok && v
}

func int32Field(spec bson.M, key string) (int32, bool) {
	switch n := spec[key].(type) {
	case int32:
		return n, true
	case int64:
		return int32(n), true
	case float64:
		return int32(n), true
	}
	return 0, false
}
