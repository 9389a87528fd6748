package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.History.Capacity)
	assert.True(t, cfg.Graph.PluralTolerant)
	assert.Equal(t, "file", cfg.Persistence.Backend)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /tmp/mg
history:
  capacity: 0
graph:
  plural_tolerant: false
persistence:
  backend: badger
  gc_interval: 2m
server:
  addr: ":9090"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/mg", cfg.DataDir)
	assert.Equal(t, 0, cfg.History.Capacity)
	assert.False(t, cfg.Graph.PluralTolerant)
	assert.Equal(t, "badger", cfg.Persistence.Backend)
	assert.Equal(t, 2*time.Minute, cfg.Persistence.GCInterval)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	// untouched sections keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, filepath.Join("/tmp/mg", "mindgraph.db"), cfg.SQLitePath())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINDGRAPH_DATA_DIR", "/srv/mindgraph")
	t.Setenv("PORT", "7000")
	t.Setenv("NEO4J_URI", "bolt://graph:7687")
	t.Setenv("MINDGRAPH_HISTORY_CAPACITY", "12")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/mindgraph", cfg.DataDir)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "bolt://graph:7687", cfg.Store.Neo4j.URI)
	assert.Equal(t, 12, cfg.History.Capacity)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad backend", yaml: "persistence:\n  backend: floppy\n"},
		{name: "bad log level", yaml: "log:\n  level: loud\n"},
		{name: "negative history", yaml: "history:\n  capacity: -1\n"},
		{name: "difficulty out of range", yaml: "revision:\n  min_fallback_difficulty: 9\n"},
		{name: "neo4j without uri", yaml: "store:\n  driver: neo4j\n  neo4j:\n    uri: \"\"\n"},
		{name: "not yaml", yaml: "data_dir: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.DataDir = "/data"
	cfg.Revision.Capacity = 50
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
