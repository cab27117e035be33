package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kberrors "kaybee/backend/pkg/errors"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("KNOWLEDGE_GRAPH_STORE", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreBackend)
	assert.Equal(t, 80.0, cfg.MatchThreshold)
	assert.Equal(t, 2, cfg.NeighborhoodHops)
	assert.Equal(t, 4, cfg.MaxHops)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_MissingStoreLocationIsFatal(t *testing.T) {
	t.Setenv("KNOWLEDGE_GRAPH_STORE", "file")
	t.Setenv("KNOWLEDGE_GRAPH_DIR", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, kberrors.IsErrorType(err, kberrors.ErrorTypeConfig))

	var missing *kberrors.ErrConfigMissingRequired
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "KNOWLEDGE_GRAPH_DIR", missing.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"file with dir", func(c *Config) { c.GraphDir = "/tmp/kg" }, false},
		{"dynamodb without table", func(c *Config) { c.StoreBackend = StoreDynamoDB }, true},
		{"dynamodb with table", func(c *Config) { c.StoreBackend = StoreDynamoDB; c.DynamoTable = "kg" }, false},
		{"neo4j without password", func(c *Config) { c.StoreBackend = StoreNeo4j }, true},
		{"unknown backend", func(c *Config) { c.StoreBackend = "gcs" }, true},
		{"threshold out of range", func(c *Config) { c.StoreBackend = StoreMemory; c.MatchThreshold = 120 }, true},
		{"zero hops", func(c *Config) { c.StoreBackend = StoreMemory; c.NeighborhoodHops = 0 }, true},
		{"max hops below default", func(c *Config) { c.StoreBackend = StoreMemory; c.NeighborhoodHops = 3; c.MaxHops = 2 }, true},
		{"max hops above ceiling", func(c *Config) { c.StoreBackend = StoreMemory; c.MaxHops = 1000 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_FileOverlayWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kaybee.yaml")
	content := "store: badger\ngraph_dir: " + dir + "\nmatch_threshold: 70\nneighborhood_hops: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Setenv("KAYBEE_CONFIG_FILE", path)
	t.Setenv("KNOWLEDGE_GRAPH_STORE", "")
	t.Setenv("NEIGHBORHOOD_HOPS", "1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreBadger, cfg.StoreBackend)
	assert.Equal(t, dir, cfg.GraphDir)
	assert.Equal(t, 70.0, cfg.MatchThreshold)
	assert.Equal(t, 1, cfg.NeighborhoodHops)
	assert.Equal(t, 6, cfg.IDSuffixLength)
}

func TestLoad_BadFile(t *testing.T) {
	t.Setenv("KAYBEE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	assert.Error(t, err)
}
