package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type insertLoadSkill struct{}

func (s *insertLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "insert_load",
		Description: "Batch-insert synthetic documents into target collections, tracking inserted ids for rollback",
		Target:      domain.DocumentDB,
		Reversible:  true,
	}
}

func (s *insertLoadSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "database", "") == "" {
		return domain.NewConfigError("insert_load: database is required")
	}
	return nil
}

type insertUndoEntry struct {
	Database   string   `yaml:"database"`
	Collection string   `yaml:"collection"`
	IDs        []string `yaml:"ids"`
}

// chaosDocument is the fixed document shape inserted by this skill: a
// marker flag, an ordinal, a data string, a float, a two-element string
// array, and a nested subdocument.
func chaosDocument(index int) bson.M {
	return bson.M{
		"chaos_test": true,
		"index":      index,
		"data":       fmt.Sprintf("chaos-data-%d", index),
		"value":      float64(index) * 1.5,
		"tags":       []string{"chaos", fmt.Sprintf("seed-%d", index)},
		"nested": bson.M{
			"source": "chaos_orchestrator",
			"seed":   index,
		},
	}
}

func (s *insertLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	database := domain.ParamString(skillCtx.Params, "database", "")
	docsPerCollection := domain.ParamInt(skillCtx.Params, "docs_per_collection", 100)
	collections, err := targetCollections(ctx, client, database, domain.ParamStringSlice(skillCtx.Params, "collections"))
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("insert_load: resolve collections: %w", err)
	}

	var undo []insertUndoEntry
	for _, collName := range collections {
		coll := client.Database(database).Collection(collName)
		docs := make([]any, docsPerCollection)
		for i := 0; i < docsPerCollection; i++ {
			docs[i] = chaosDocument(i)
		}
		res, err := coll.InsertMany(ctx, docs)
		if err != nil {
			return domain.RollbackHandle{}, fmt.Errorf("insert_load: insert into %s.%s: %w", database, collName, err)
		}
		ids := make([]string, 0, len(res.InsertedIDs))
		for _, id := range res.InsertedIDs {
			if oid, ok := id.(primitive.ObjectID); ok {
				ids = append(ids, oid.Hex())
			}
		}
		undo = append(undo, insertUndoEntry{Database: database, Collection: collName, IDs: ids})
	}

	return newHandle("insert_load", undo)
}

func (s *insertLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo []insertUndoEntry
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("insert_load rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	for _, e := range undo {
		if len(e.IDs) == 0 {
			continue
		}
		oids := make([]primitive.ObjectID, 0, len(e.IDs))
		for _, hex := range e.IDs {
			oid, err := primitive.ObjectIDFromHex(hex)
			if err != nil {
				continue
			}
			oids = append(oids, oid)
		}
		coll := client.Database(e.Database).Collection(e.Collection)
		if _, err := coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}}); err != nil {
			return fmt.Errorf("insert_load rollback: delete from %s.%s: %w", e.Database, e.Collection, err)
		}
	}
	return nil
}
