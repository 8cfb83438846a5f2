// Package document implements the chaos agent for document databases
// (MongoDB-wire-compatible). Skills operate directly on a shared
// *mongo.Client handed out through SkillContext.Shared, following the
// relational agent's pattern of one pooled connection resource per
// Initialize, shared read-only across skill executions.
package document

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/chaosduck/chaos-agents/internal/domain"
)

// systemDatabases are skipped during discovery, per spec §4.5.
var systemDatabases = map[string]bool{
	"admin":  true,
	"local":  true,
	"config": true,
}

// Config is the document target_config shape from spec §6.
type Config struct {
	ConnectionURL string   `yaml:"connection_url"`
	Databases     []string `yaml:"databases,omitempty"`
}

// Agent adapts the DocumentDB target domain.
type Agent struct {
	cfg    Config
	client *mongo.Client
	status domain.AgentStatus
	skills map[string]domain.Skill
}

func New(cfg Config) *Agent {
	return &Agent{cfg: cfg, status: domain.AgentUninitialized, skills: buildSkills()}
}

func (a *Agent) Domain() domain.TargetDomain { return domain.DocumentDB }
func (a *Agent) Name() string                { return "document(mongo)" }
func (a *Agent) Status() domain.AgentStatus  { return a.status }

// Initialize opens the client and verifies connectivity by listing
// databases, per spec §4.2's "for the document DB, list databases".
func (a *Agent) Initialize(ctx context.Context) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(a.cfg.ConnectionURL))
	if err != nil {
		a.status = domain.AgentFailed
		return fmt.Errorf("connect to mongo: %w", err)
	}
	if _, err := client.ListDatabaseNames(ctx, map[string]any{}); err != nil {
		_ = client.Disconnect(ctx)
		a.status = domain.AgentFailed
		return fmt.Errorf("list databases: %w", err)
	}
	a.client = client
	a.status = domain.AgentReady
	return nil
}

// Discover enumerates non-system databases (either the configured allowlist
// or everything ListDatabaseNames returns minus admin/local/config) and,
// within each, non-system collections with their estimated document count.
func (a *Agent) Discover(ctx context.Context) ([]domain.DiscoveredResource, error) {
	dbNames, err := a.targetDatabases(ctx)
	if err != nil {
		return nil, domain.DiscoveryError("list databases: %v", err)
	}

	var resources []domain.DiscoveredResource
	for _, dbName := range dbNames {
		colls, err := a.client.Database(dbName).ListCollectionNames(ctx, map[string]any{})
		if err != nil {
			return nil, domain.DiscoveryError("list collections for %s: %v", dbName, err)
		}
		for _, coll := range colls {
			if isSystemCollection(coll) {
				continue
			}
			count, err := a.client.Database(dbName).Collection(coll).EstimatedDocumentCount(ctx)
			if err != nil {
				count = 0
			}
			resources = append(resources, domain.MongoResource{
				Database:   dbName,
				Collection: coll,
				ApproxDocs: count,
			})
		}
	}
	return resources, nil
}

func (a *Agent) targetDatabases(ctx context.Context) ([]string, error) {
	if len(a.cfg.Databases) > 0 {
		return a.cfg.Databases, nil
	}
	all, err := a.client.ListDatabaseNames(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, name := range all {
		if !systemDatabases[name] {
			out = append(out, name)
		}
	}
	return out, nil
}

func isSystemCollection(name string) bool {
	return len(name) >= 7 && name[:7] == "system."
}

func (a *Agent) Skills() []domain.Skill {
	out := make([]domain.Skill, 0, len(a.skills))
	for _, s := range a.skills {
		out = append(out, s)
	}
	return out
}

func (a *Agent) SkillByName(name string) (domain.Skill, bool) {
	s, ok := a.skills[name]
	return s, ok
}

// BuildContext hands the skill the shared *mongo.Client; skills type-assert
// ctx.Shared.(*mongo.Client).
func (a *Agent) BuildContext(params map[string]any) (*domain.SkillContext, error) {
	if a.client == nil {
		return nil, domain.ConnectionError(fmt.Errorf("agent not initialized"))
	}
	return &domain.SkillContext{Shared: a.client, Params: params}, nil
}

func (a *Agent) Shutdown(ctx context.Context) error {
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			return fmt.Errorf("disconnect mongo client: %w", err)
		}
	}
	a.status = domain.AgentUninitialized
	return nil
}

func clientFromContext(ctx *domain.SkillContext) (*mongo.Client, error) {
	client, ok := ctx.Shared.(*mongo.Client)
	if !ok {
		return nil, domain.ConnectionError(fmt.Errorf("expected *mongo.Client in skill context"))
	}
	return client, nil
}

// targetCollections resolves the collection list a skill should act on:
// the explicit list from params when given, otherwise discovery.
func targetCollections(ctx context.Context, client *mongo.Client, database string, explicit []string) ([]string, error) {
	if len(explicit) > 0 {
		return explicit, nil
	}
	names, err := client.Database(database).ListCollectionNames(ctx, map[string]any{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !isSystemCollection(n) {
			out = append(out, n)
		}
	}
	return out, nil
}
