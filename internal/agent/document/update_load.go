package document

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type updateLoadSkill struct{}

func (s *updateLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "update_load",
		Description: "Mutate a sample of documents, capturing originals for rollback",
		Target:      domain.DocumentDB,
		Reversible:  true,
	}
}

func (s *updateLoadSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "database", "") == "" {
		return domain.NewConfigError("update_load: database is required")
	}
	return nil
}

type updateUndoEntry struct {
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
	OriginalEJ string `yaml:"original_ej"`
}

func (s *updateLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	database := domain.ParamString(skillCtx.Params, "database", "")
	docsPerCollection := domain.ParamInt(skillCtx.Params, "docs", 50)
	collections, err := targetCollections(ctx, client, database, domain.ParamStringSlice(skillCtx.Params, "collections"))
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("update_load: resolve collections: %w", err)
	}

	var undo []updateUndoEntry
	for _, collName := range collections {
		coll := client.Database(database).Collection(collName)
		cur, err := coll.Find(ctx, bson.M{}, optsLimit(docsPerCollection))
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("update_load: find in %s.%s: %w", database, collName, err)
		}
		var originals []bson.M
		if err := cur.All(ctx, &originals); err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("update_load: decode in %s.%s: %w", database, collName, err)
		}

		for _, orig := range originals {
			ej, err := bson.MarshalExtJSON(orig, false, false)
			if err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("update_load: serialize original: %w", err)
			}
			id := orig["_id"]
			_, err = coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
				"chaos_modified": true,
				"chaos_at":       time.Now().UTC().Format(time.RFC3339),
			}})
			if err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("update_load: update in %s.%s: %w", database, collName, err)
			}
			undo = append(undo, updateUndoEntry{Database: database, Collection: collName, OriginalEJ: string(ej)})
		}
	}

	return newHandle("update_load", undo)
}

func (s *updateLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []updateUndoEntry
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("update_load rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		var orig bson.M
		if err := bson.UnmarshalExtJSON([]byte(e.OriginalEJ), false, &orig); err != nil {
			return fmt.Errorf("update_load rollback: decode original: %w", err)
		}
		coll := client.Database(e.Database).Collection(e.Collection)
		if _, err := coll.ReplaceOne(ctx, bson.M{"_id": orig["_id"]}, orig); err != nil {
			return fmt.Errorf("update_load rollback: replace in %s.%s: %w", e.Database, e.Collection, err)
		}
	}
	return nil
}
