package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10485760, cfg.Server.BodyLimit)

	assert.Equal(t, "./data/triage.db", cfg.SQLite.Path)

	// External backends are opt-in.
	assert.False(t, cfg.Milvus.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.LLM.Enabled)

	assert.Equal(t, "medical_knowledge", cfg.Milvus.CollectionName)
	assert.Equal(t, 1536, cfg.Milvus.VectorDim)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)

	assert.Equal(t, 3, cfg.Triage.RetrievalTopK)
	assert.Equal(t, 5, cfg.Triage.MaxCandidates)
	assert.True(t, cfg.Triage.SeedProvidersOnStart)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("TRIAGE_AGENT_SERVER_PORT", "9090")
	t.Setenv("TRIAGE_AGENT_LLM_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.LLM.Enabled)
}
