package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "test_platform.db", cfg.Database.DSN)
	assert.Equal(t, 0.3, cfg.AI.SimilarityThreshold)
	assert.Equal(t, 5, cfg.AI.MaxSimilar)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
server:
  port: "9090"
log:
  level: debug
  format: json
ai:
  similarity_threshold: 0.5
  max_similar: 3
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 0.5, cfg.AI.SimilarityThreshold)
	assert.Equal(t, 3, cfg.AI.MaxSimilar)
	// Untouched sections keep their defaults.
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestEnvOverridesSwitchToPostgres(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "platform")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "test_platform")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("SESSION_SECRET", "env-secret")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "platform", cfg.Database.User)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, "env-secret", cfg.Server.SessionSecret)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a mapping"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestInvalidAIKnobsFallBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
ai:
  similarity_threshold: -1
  max_similar: 0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.3, cfg.AI.SimilarityThreshold)
	assert.Equal(t, 5, cfg.AI.MaxSimilar)
}
