package relational

import (
	"context"
	"fmt"
	"log"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

type selectLoadSkill struct{ dbType DbType }

func (s *selectLoadSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "select_load",
		Description: "Generate read traffic against target tables with rotating query shapes",
		Target:      domain.RelationalDB,
		Reversible:  true,
	}
}

func (s *selectLoadSkill) ValidateParams(params map[string]any) error { return nil }

type selectUndoState struct {
	QueriesIssued int `yaml:"queries_issued"`
}

func (s *selectLoadSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	conn, err := connFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	queryCount := domain.ParamInt(skillCtx.Params, "query_count", 500)
	tables := resolveTables(ctx, conn, domain.ParamStringSlice(skillCtx.Params, "tables"))
	if len(tables) == 0 {
		return newHandle("select_load", selectUndoState{})
	}

	issued := 0
	for i := 0; i < queryCount; i++ {
		t := tables[i%len(tables)]
		name := qualifiedName(t.schema, t.name)
		var query string
		switch i % 3 {
		case 0:
			query = fmt.Sprintf("SELECT * FROM %s LIMIT 50", name)
		case 1:
			query = fmt.Sprintf("SELECT COUNT(*) FROM %s", name)
		default:
			query = fmt.Sprintf("SELECT a.* FROM %s a CROSS JOIN %s b LIMIT 10", name, name)
		}

		rows, err := conn.Query(ctx, query)
		if err != nil {
			continue
		}
		for rows.Next() {
		}
		rows.Close()
		issued++
	}

	return newHandle("select_load", selectUndoState{QueriesIssued: issued})
}

// Rollback is a documented no-op: select_load is read-only.
func (s *selectLoadSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	log.Printf("select_load rollback %s: no-op, read-only skill", handle.ID)
	return nil
}
