package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamString(t *testing.T) {
	params := map[string]any{"name": "orders", "empty": ""}
	assert.Equal(t, "orders", ParamString(params, "name", "fallback"))
	assert.Equal(t, "fallback", ParamString(params, "empty", "fallback"))
	assert.Equal(t, "fallback", ParamString(params, "missing", "fallback"))
}

func TestParamInt(t *testing.T) {
	params := map[string]any{
		"a": 3,
		"b": int64(4),
		"c": float64(5), // JSON numbers (and YAML floats) decode to float64
	}
	assert.Equal(t, 3, ParamInt(params, "a", 0))
	assert.Equal(t, 4, ParamInt(params, "b", 0))
	assert.Equal(t, 5, ParamInt(params, "c", 0))
	assert.Equal(t, 99, ParamInt(params, "missing", 99))
	assert.Equal(t, 99, ParamInt(map[string]any{"a": "not-a-number"}, "a", 99))
}

func TestParamStringSlice(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, ParamStringSlice(map[string]any{"tables": []string{"x", "y"}}, "tables"))
	assert.Equal(t, []string{"x", "y"}, ParamStringSlice(map[string]any{"tables": []any{"x", "y"}}, "tables"))
	assert.Nil(t, ParamStringSlice(map[string]any{}, "tables"))
	assert.Equal(t, []string{}, ParamStringSlice(map[string]any{"tables": []any{1, 2}}, "tables"))
}

func TestConfigError(t *testing.T) {
	err := NewConfigError("unknown skill %q", "frobnicate")
	assert.EqualError(t, err, `configuration error: unknown skill "frobnicate"`)
}

func TestTargetDomain_String(t *testing.T) {
	assert.Equal(t, "relational_db", RelationalDB.String())
	assert.Equal(t, "document_db", DocumentDB.String())
	assert.Equal(t, "cluster", Cluster.String())
	assert.Equal(t, "remote_host", RemoteHost.String())
}
