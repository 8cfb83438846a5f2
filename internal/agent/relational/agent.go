package relational

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/chaosduck/chaos-agents/internal/db"
	"github.com/chaosduck/chaos-agents/internal/domain"
)

// Config is the relational target_config shape from spec §6: a connection
// string, the dialect, and an optional schema allowlist for discovery.
type Config struct {
	ConnectionURL string   `yaml:"connection_url"`
	DbType        DbType   `yaml:"db_type"`
	Schemas       []string `yaml:"schemas,omitempty"`
}

// Agent adapts the RelationalDB target domain: Postgres, MySQL, CockroachDB
// or YugabyteDB behind one connection pool.
type Agent struct {
	cfg    Config
	conn   Conn
	closer func()
	status domain.AgentStatus
	skills map[string]domain.Skill
}

// New builds an Agent and its fixed skill set for cfg.DbType. Some skills
// (zone_config_change, follower_reads) are dialect-specific; they are
// always registered but reject execution with a Configuration error when
// the agent's dialect doesn't match, consistent with the Rust original's
// per-dialect skill registration.
func New(cfg Config) *Agent {
	a := &Agent{cfg: cfg, status: domain.AgentUninitialized}
	a.skills = buildSkills(a, cfg.DbType)
	return a
}

func (a *Agent) Domain() domain.TargetDomain { return domain.RelationalDB }
func (a *Agent) Name() string                { return fmt.Sprintf("relational(%s)", a.cfg.DbType) }
func (a *Agent) Status() domain.AgentStatus  { return a.status }

// Initialize opens the connection pool appropriate to cfg.DbType and
// verifies connectivity with a ping-equivalent.
func (a *Agent) Initialize(ctx context.Context) error {
	if a.cfg.DbType == Mysql {
		db, err := sql.Open("mysql", a.cfg.ConnectionURL)
		if err != nil {
			a.status = domain.AgentFailed
			return fmt.Errorf("open mysql connection: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			a.status = domain.AgentFailed
			return fmt.Errorf("ping mysql: %w", err)
		}
		a.conn = sqlConn{db}
		a.closer = func() { db.Close() }
		a.status = domain.AgentReady
		return nil
	}

	// Postgres, CockroachDB, and YugabyteDB all speak the Postgres wire
	// protocol, so they share the same pool constructor.
	pool, err := db.NewPool(ctx, a.cfg.ConnectionURL)
	if err != nil {
		a.status = domain.AgentFailed
		return err
	}
	a.conn = pgxConn{pool}
	a.closer = pool.Close
	a.status = domain.AgentReady
	return nil
}

// Discover runs the information_schema.tables query for this dialect,
// excluding system schemas, then a per-table column+PK join.
func (a *Agent) Discover(ctx context.Context) ([]domain.DiscoveredResource, error) {
	tables, err := a.listTables(ctx)
	if err != nil {
		return nil, err
	}

	resources := make([]domain.DiscoveredResource, 0, len(tables))
	for _, t := range tables {
		cols, err := a.tableColumns(ctx, t.schema, t.name)
		if err != nil {
			return nil, fmt.Errorf("columns for %s.%s: %w", t.schema, t.name, err)
		}
		resources = append(resources, domain.DbResource{
			Schema:  t.schema,
			Table:   t.name,
			Columns: cols,
		})
	}
	return resources, nil
}

type tableRef struct{ schema, name string }

func (a *Agent) listTables(ctx context.Context) ([]tableRef, error) {
	query := `SELECT table_schema, table_name FROM information_schema.tables
		WHERE table_schema NOT IN ('information_schema', 'pg_catalog', 'mysql', 'performance_schema', 'sys', 'crdb_internal')
		AND table_type = 'BASE TABLE'`
	if len(a.cfg.Schemas) > 0 {
		query = buildSchemaFilterQuery(a.cfg.DbType, a.cfg.Schemas)
	}

	rows, err := a.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var out []tableRef
	for rows.Next() {
		var t tableRef
		if err := rows.Scan(&t.schema, &t.name); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func buildSchemaFilterQuery(dbType DbType, schemas []string) string {
	placeholders := make([]string, len(schemas))
	for i := range schemas {
		placeholders[i] = placeholder(dbType, i+1)
	}
	in := "("
	for i, p := range placeholders {
		if i > 0 {
			in += ", "
		}
		in += p
	}
	in += ")"
	return "SELECT table_schema, table_name FROM information_schema.tables WHERE table_schema IN " + in + " AND table_type = 'BASE TABLE'"
}

func (a *Agent) tableColumns(ctx context.Context, schema, table string) ([]domain.ColumnInfo, error) {
	query := `SELECT c.column_name, c.data_type, c.is_nullable,
			CASE WHEN tc.constraint_type = 'PRIMARY KEY' THEN true ELSE false END AS is_pk
		FROM information_schema.columns c
		LEFT JOIN information_schema.key_column_usage kcu
			ON c.table_schema = kcu.table_schema AND c.table_name = kcu.table_name AND c.column_name = kcu.column_name
		LEFT JOIN information_schema.table_constraints tc
			ON kcu.constraint_name = tc.constraint_name AND kcu.table_schema = tc.table_schema AND tc.constraint_type = 'PRIMARY KEY'
		WHERE c.table_schema = ` + placeholder(a.cfg.DbType, 1) + ` AND c.table_name = ` + placeholder(a.cfg.DbType, 2)

	rows, err := a.conn.Query(ctx, query, schema, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ColumnInfo
	for rows.Next() {
		var col domain.ColumnInfo
		var nullable string
		if err := rows.Scan(&col.Name, &col.DataType, &nullable, &col.IsPrimaryKey); err != nil {
			return nil, err
		}
		col.IsNullable = nullable == "YES"
		out = append(out, col)
	}
	return out, rows.Err()
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

// BuildContext hands the skill the shared Conn; skills type-assert
// ctx.Shared.(relational.Conn).
func (a *Agent) BuildContext(params map[string]any) (*domain.SkillContext, error) {
	if a.conn == nil {
		return nil, domain.ConnectionError(fmt.Errorf("agent not initialized"))
	}
	return &domain.SkillContext{Shared: a.conn, Params: params}, nil
}

func (a *Agent) Shutdown(ctx context.Context) error {
	if a.closer != nil {
		a.closer()
	}
	a.status = domain.AgentUninitialized
	return nil
}

func connFromContext(ctx *domain.SkillContext) (Conn, error) {
	conn, ok := ctx.Shared.(Conn)
	if !ok {
		return nil, domain.ConnectionError(fmt.Errorf("expected relational.Conn in skill context"))
	}
	return conn, nil
}
