package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type profilingChangeSkill struct{}

func (s *profilingChangeSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "profiling_change",
		Description: "Change the database profiling level and slow-query threshold, restoring the prior setting on rollback",
		Target:      domain.DocumentDB,
		Reversible:  true,
	}
}

func (s *profilingChangeSkill) ValidateParams(params map[string]any) error {
	if domain.ParamString(params, "database", "") == "" {
		return domain.NewConfigError("profiling_change: database is required")
	}
	level := domain.ParamInt(params, "level", -1)
	if level < 0 || level > 2 {
		return domain.NewConfigError("profiling_change: level must be 0, 1, or 2, got %d", level)
	}
	return nil
}

type profilingUndoState struct {
	Database string `yaml:"database"`
	WasLevel int    `yaml:"was_level"`
	WasSlow  int    `yaml:"was_slow_ms"`
}

type profileResult struct {
	Was     int `bson:"was"`
	SlowMS  int `bson:"slowms"`
	OK      int `bson:"ok"`
}

func (s *profilingChangeSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	database := domain.ParamString(skillCtx.Params, "database", "")
	level := domain.ParamInt(skillCtx.Params, "level", 1)
	slowMs := domain.ParamInt(skillCtx.Params, "slow_ms", 100)

	var result profileResult
	cmd := bson.D{{Key: "profile", Value: level}, {Key: "slowms", Value: slowMs}}
	if err := client.Database(database).RunCommand(ctx, cmd).Decode(&result); err != nil {
		return domain.RollbackHandle{}, fmt.Errorf("profiling_change: run profile command on %s: %w", database, err)
	}

	return newHandle("profiling_change", profilingUndoState{
		Database: database,
		WasLevel: result.Was,
		WasSlow:  result.SlowMS,
	})
}

func (s *profilingChangeSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return err
	}
	var undo profilingUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("profiling_change rollback: decode undo state: %w", err)
	}
	ctx := context.Background()
	cmd := bson.D{{Key: "profile", Value: undo.WasLevel}, {Key: "slowms", Value: undo.WasSlow}}
	if err := client.Database(undo.Database).RunCommand(ctx, cmd).Err(); err != nil {
		return fmt.Errorf("profiling_change rollback: restore profile on %s: %w", undo.Database, err)
	}
	return nil
}
