package domain

// DiscoveredResource is any concrete resource an agent found during
// Discover. The orchestrator only needs the type/name pair for reporting;
// skills that need the full shape type-assert back to the concrete type.
type DiscoveredResource interface {
	ResourceType() string
	ResourceName() string
}

// ColumnInfo describes one column of a discovered table.
type ColumnInfo struct {
	Name         string
	DataType     string
	IsNullable   bool
	IsPrimaryKey bool
}

// DbResource is a relational table discovered by the relational-DB agent.
type DbResource struct {
	Schema  string
	Table   string
	Columns []ColumnInfo
}

func (r DbResource) ResourceType() string { return "table" }
func (r DbResource) ResourceName() string { return r.Schema + "." + r.Table }

// MongoResource is a collection discovered by the document-DB agent.
type MongoResource struct {
	Database   string
	Collection string
	ApproxDocs int64
}

func (r MongoResource) ResourceType() string { return "collection" }
func (r MongoResource) ResourceName() string { return r.Database + "." + r.Collection }

// K8sResource is a workload discovered by the cluster agent.
type K8sResource struct {
	Kind      string
	Namespace string
	Name      string
	Labels    map[string]string
}

func (r K8sResource) ResourceType() string { return r.Kind }
func (r K8sResource) ResourceName() string { return r.Namespace + "/" + r.Name }

// ServerResourceType distinguishes what kind of remote-host resource was
// discovered.
type ServerResourceType string

const (
	ServerResourceService ServerResourceType = "service"
	ServerResourceDisk    ServerResourceType = "disk"
)

// ServerResource is a service or mount point discovered by the
// remote-host agent.
type ServerResource struct {
	Type ServerResourceType
	Host string
	Name string
}

func (r ServerResource) ResourceType() string { return string(r.Type) }
func (r ServerResource) ResourceName() string { return r.Host + ":" + r.Name }
