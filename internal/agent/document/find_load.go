package document

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type findLoadSkill struct{}

func (s *findLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "find_load",
		Description: "Generate read load by rotating through scan, count, filter, and aggregation query patterns",
		Target:      domain.DocumentDB,
		Reversible:  false,
	}
}

func (s *findLoadSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "database", "") == "" {
		return domain.NewConfigError("find_load: database is required")
	}
	return nil
}

type findLoadUndoState struct {
	QueriesIssued int `yaml:"queries_issued"`
}

// readPatterns rotates: scan+limit, count, filtered scan, sample+group.
var readPatterns = []func(ctx context.Context, coll *mongo.Collection) error{
	func(ctx context.Context, coll *mongo.Collection) error {
		cur, err := coll.Find(ctx, bson.M{}, optsLimit(25))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
		}
		return cur.Err()
	},
	func(ctx context.Context, coll *mongo.Collection) error {
		_, err := coll.CountDocuments(ctx, bson.M{})
		return err
	},
	func(ctx context.Context, coll *mongo.Collection) error {
		cur, err := coll.Find(ctx, bson.M{"chaos_test": true}, optsLimit(25))
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
		}
		return cur.Err()
	},
	func(ctx context.Context, coll *mongo.Collection) error {
		pipeline := mongo.Pipeline{
			{{Key: "$sample", Value: bson.M{"size": 25}}},
			{{Key: "$group", Value: bson.M{"_id": nil, "count": bson.M{"$sum": 1}}}},
		}
		cur, err := coll.Aggregate(ctx, pipeline)
		if err != nil {
			return err
		}
		defer cur.Close(ctx)
		for cur.Next(ctx) {
		}
		return cur.Err()
	},
}

func (s *findLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	database := domain.ParamString(skillCtx.Params, "database", "")
	queryCount := domain.ParamInt(skillCtx.Params, "query_count", len(readPatterns))
	collections, err := targetCollections(ctx, client, database, domain.ParamStringSlice(skillCtx.Params, "collections"))
	if err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("find_load: resolve collections: %w", err)
	}

	issued := 0
	for _, collName := range collections {
		coll := client.Database(database).Collection(collName)
		for i := 0; i < queryCount; i++ {
			pattern := readPatterns[i%len(readPatterns)]
			if err := pattern(ctx, coll); err != nil {
				return domain.RollbackHandle{}, fmt.Errorf("find_load: query %d against %s.%s: %w", i, database, collName, err)
			}
			issued++
		}
	}

	return newHandle("find_load", findLoadUndoState{QueriesIssued: issued})
}

// Rollback is a no-op: find_load only reads.
func (s *findLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	log.Printf("find_load rollback: no-op, read-only skill")
	return nil
}
