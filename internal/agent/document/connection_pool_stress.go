package document

import (
	"context"
	"fmt"
	"log"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// connectionPoolStressSkill opens extra client connections to stress the
// target's connection budget. Per spec §9's conservative alternative, the
// leaked clients are kept in an in-process registry keyed by the handle id
// and closed on rollback, rather than leaked for the process lifetime.
type connectionPoolStressSkill struct {
	mu       sync.Mutex
	holdings map[string][]*mongo.Client
}

func (s *connectionPoolStressSkill) Descriptor() domain.SkillDescriptor {
	return domain.SkillDescriptor{
		Name:        "connection_pool_stress",
		Description: "Open additional client connections to exhaust the connection budget",
		Target:      domain.DocumentDB,
		Reversible:  true,
	}
}

func (s *connectionPoolStressSkill) ValidateParams(params map[string]any) error {
	return nil
}

type poolStressUndoState struct {
	HoldingKey      string `yaml:"holding_key"`
	ConnectionCount int    `yaml:"connection_count"`
	LeakedExternal  bool   `yaml:"leaked_external"`
}

func (s *connectionPoolStressSkill) Execute(skillCtx *domain.SkillContext) (domain.RollbackHandle, error) {
	client, err := clientFromContext(skillCtx)
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	ctx := context.Background()

	count := domain.ParamInt(skillCtx.Params, "count", 10)
	connectionURL := domain.ParamString(skillCtx.Params, "connection_url", "")

	handle, err := newHandle("connection_pool_stress", nil)
	if err != nil {
		return domain.RollbackHandle{}, err
	}

	if connectionURL == "" {
		// No independent URL: force the existing pool to check out `count`
		// connections concurrently via pings, per spec §4.5.
		var wg sync.WaitGroup
		errCh := make(chan error, count)
		for i := 0; i < count; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := client.Ping(ctx, nil); err != nil {
					errCh <- err
				}
			}()
		}
		wg.Wait()
		close(errCh)
		for err := range errCh {
			log.Printf("connection_pool_stress: ping failed during pool stress: %v", err)
		}
		undo, encErr := encodeUndo(poolStressUndoState{HoldingKey: handle.ID, ConnectionCount: count, LeakedExternal: false})
		if encErr != nil {
			return domain.RollbackHandle{}, encErr
		}
		handle.UndoState = undo
		return handle, nil
	}

	clients := make([]*mongo.Client, 0, count)
	for i := 0; i < count; i++ {
		c, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionURL))
		if err != nil {
			for _, opened := range clients {
				_ = opened.Disconnect(ctx)
			}
			return domain.RollbackHandle{}, fmt.Errorf("connection_pool_stress: open connection %d: %w", i, err)
		}
		clients = append(clients, c)
	}

	s.mu.Lock()
	if s.holdings == nil {
		s.holdings = make(map[string][]*mongo.Client)
	}
	s.holdings[handle.ID] = clients
	s.mu.Unlock()

	undo, err := encodeUndo(poolStressUndoState{HoldingKey: handle.ID, ConnectionCount: len(clients), LeakedExternal: true})
	if err != nil {
		return domain.RollbackHandle{}, err
	}
	handle.UndoState = undo
	return handle, nil
}

func (s *connectionPoolStressSkill) Rollback(skillCtx *domain.SkillContext, handle domain.RollbackHandle) error {
	var undo poolStressUndoState
	if err := decodeUndo(handle.UndoState, &undo); err != nil {
		return fmt.Errorf("connection_pool_stress rollback: decode undo state: %w", err)
	}

	if !undo.LeakedExternal {
		log.Printf("connection_pool_stress rollback: pool-internal stress of %d connections released, no durable undo", undo.ConnectionCount)
		return nil
	}

	s.mu.Lock()
	clients := s.holdings[undo.HoldingKey]
	delete(s.holdings, undo.HoldingKey)
	s.mu.Unlock()

	ctx := context.Background()
	for _, c := range clients {
		if err := c.Disconnect(ctx); err != nil {
			log.Printf("connection_pool_stress rollback: disconnect leaked client: %v", err)
		}
	}
	return nil
}
