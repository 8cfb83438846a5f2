package remotehost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSizeBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"100MB", 100 * 1024 * 1024},
		{"2GB", 2 * 1024 * 1024 * 1024},
		{"50M", 50 * 1024 * 1024},
		{"1G", 1024 * 1024 * 1024},
		{" 10mb ", 10 * 1024 * 1024},
	}
	for _, c := range cases {
		got, err := parseSizeBytes(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseSizeBytes_Invalid(t *testing.T) {
	_, err := parseSizeBytes("huge")
	assert.Error(t, err)
}

func TestDiskFillSkill_ValidateParams(t *testing.T) {
	s := &diskFillSkill{}
	assert.Error(t, s.ValidateParams(map[string]any{}), "missing target_mount")
	assert.Error(t, s.ValidateParams(map[string]any{"target_mount": "/data", "size": "nope"}))
	assert.NoError(t, s.ValidateParams(map[string]any{"target_mount": "/data", "size": "1GB"}))
}

func TestDiskFillSkill_UndoState_RoundTrips(t *testing.T) {
	handle, err := newHandle("disk_fill", diskFillUndoState{Host: "h1", Path: "/data/chaos_disk_fill.tmp"})
	require.NoError(t, err)

	var decoded diskFillUndoState
	require.NoError(t, decodeUndo(handle.UndoState, &decoded))
	assert.Equal(t, "h1", decoded.Host)
	assert.Equal(t, "/data/chaos_disk_fill.tmp", decoded.Path)
}
