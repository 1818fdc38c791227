package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.LLM.APIURL)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
	assert.Equal(t, "agent_memory.db", cfg.Agent.DBPath)
	assert.Equal(t, 10, cfg.Agent.MaxToolIterations)
	assert.Equal(t, 3, cfg.Context.NumResults)
	assert.Equal(t, "0 0 * * *", cfg.Retention.CronExpr)
	assert.Equal(t, 50, cfg.Retention.KeepLast)
}

func TestNewFromEnv_EnvironmentOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	t.Setenv("LLM_MODEL", "openai/gpt-4o")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("AGENT_DB_PATH", "/tmp/agents.db")
	t.Setenv("AGENT_MAX_TOOL_ITERATIONS", "5")
	t.Setenv("CONTEXT_COLLECTION", "kb")
	t.Setenv("RETENTION_KEEP_LAST", "7")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.LLM.APIKey)
	assert.Equal(t, "openai/gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 0.2, cfg.LLM.Temperature)
	assert.Equal(t, "/tmp/agents.db", cfg.Agent.DBPath)
	assert.Equal(t, 5, cfg.Agent.MaxToolIterations)
	assert.Equal(t, "kb", cfg.Context.Collection)
	assert.Equal(t, 7, cfg.Retention.KeepLast)
}

func TestNewFromEnv_InvalidNumberFallsBack(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.LLM.MaxTokens)
}

func TestNewFromEnv_Validation(t *testing.T) {
	t.Setenv("AGENT_MAX_TOOL_ITERATIONS", "0")

	_, err := NewFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AGENT_MAX_TOOL_ITERATIONS")
}

func TestNewFromEnv_Options(t *testing.T) {
	cfg, err := NewFromEnv(func(c *Config) {
		c.Agent.DBPath = "custom.db"
	})
	require.NoError(t, err)
	assert.Equal(t, "custom.db", cfg.Agent.DBPath)
}
