package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDbResource(t *testing.T) {
	r := DbResource{Schema: "public", Table: "orders"}
	assert.Equal(t, "table", r.ResourceType())
	assert.Equal(t, "public.orders", r.ResourceName())
}

func TestMongoResource(t *testing.T) {
	r := MongoResource{Database: "chaos", Collection: "events", ApproxDocs: 42}
	assert.Equal(t, "collection", r.ResourceType())
	assert.Equal(t, "chaos.events", r.ResourceName())
}

func TestK8sResource(t *testing.T) {
	r := K8sResource{Kind: "Pod", Namespace: "default", Name: "web-1"}
	assert.Equal(t, "Pod", r.ResourceType())
	assert.Equal(t, "default/web-1", r.ResourceName())
}

func TestServerResource(t *testing.T) {
	r := ServerResource{Type: ServerResourceService, Host: "host1", Name: "nginx"}
	assert.Equal(t, "service", r.ResourceType())
	assert.Equal(t, "host1:nginx", r.ResourceName())

	disk := ServerResource{Type: ServerResourceDisk, Host: "host1", Name: "/var"}
	assert.Equal(t, "disk", disk.ResourceType())
}

func TestDiscoveredResource_Polymorphism(t *testing.T) {
	resources := []DiscoveredResource{
		DbResource{Schema: "s", Table: "t"},
		MongoResource{Database: "d", Collection: "c"},
		K8sResource{Kind: "Pod", Namespace: "ns", Name: "n"},
		ServerResource{Type: ServerResourceService, Host: "h", Name: "svc"},
	}
	for _, r := range resources {
		assert.NotEmpty(t, r.ResourceType())
		assert.NotEmpty(t, r.ResourceName())
	}
}
