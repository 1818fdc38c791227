package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/MimeLyc/stateful-agent/internal/llm"
	"github.com/MimeLyc/stateful-agent/pkg/log"
)

// Config holds all application configuration
// Supports environment variables with sensible defaults
//
// Environment Variables:
// LLM Configuration:
// - LLM_API_KEY: API key for the LLM provider (required to execute tasks)
// - LLM_API_URL: API endpoint URL (default: https://openrouter.ai/api/v1)
// - LLM_MODEL: Model name to use (default: openai/gpt-4o-mini)
// - LLM_MAX_TOKENS: Maximum tokens for responses (default: 4000)
// - LLM_TEMPERATURE: Temperature for responses (default: 0.7)
// - LLM_TIMEOUT: Request timeout in seconds (default: 60)
// - LLM_SITE_URL: Site URL for HTTP referer header (optional)
// - LLM_APP_NAME: Application name for X-Title header (optional)
//
// Agent Configuration:
// - AGENT_DB_PATH: SQLite path for agent state (default: agent_memory.db)
// - AGENT_MAX_TOOL_ITERATIONS: Tool-resolution loop bound (default: 10)
//
// Context Configuration:
// - CONTEXT_COLLECTION: Vector collection name (retrieval context enabled when set)
// - CONTEXT_PERSIST_DIR: Vector store directory (default: context_db)
// - CONTEXT_EMBEDDING_MODEL: Embedding model name (default: text-embedding-3-small)
// - CONTEXT_NUM_RESULTS: Retrieved chunks per query (default: 3)
//
// Search Configuration:
// - SEARCH_API_KEY: Tavily API key (web search tool registered when set)
// - SEARCH_API_URL: Tavily API URL
//
// Retention Configuration:
// - RETENTION_CRON_EXPR: Schedule for snapshot pruning (default: 0 0 * * *)
// - RETENTION_KEEP_LAST: Snapshots kept per agent when pruning (default: 50)
type Config struct {
	LLM       llm.Config      `json:"llm"`
	Agent     AgentConfig     `json:"agent"`
	Context   ContextConfig   `json:"context"`
	Search    SearchConfig    `json:"search"`
	Retention RetentionConfig `json:"retention"`
}

// AgentConfig holds the configuration for the agent runtime
type AgentConfig struct {
	DBPath            string `json:"db_path"`
	MaxToolIterations int    `json:"max_tool_iterations"`
}

// ContextConfig holds the configuration for retrieval-augmented context
type ContextConfig struct {
	Collection     string `json:"collection"`
	PersistDir     string `json:"persist_dir"`
	EmbeddingModel string `json:"embedding_model"`
	NumResults     int    `json:"num_results"`
}

// SearchConfig holds the configuration for the web search tool
type SearchConfig struct {
	APIKey string `json:"api_key"`
	APIURL string `json:"api_url"`
}

// RetentionConfig holds the snapshot pruning schedule
type RetentionConfig struct {
	CronExpr string `json:"cron_expr"`
	KeepLast int    `json:"keep_last"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		LLM: llm.Config{
			APIKey:      getEnvString("LLM_API_KEY", ""),
			APIURL:      getEnvString("LLM_API_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnvString("LLM_MODEL", "openai/gpt-4o-mini"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 4000),
			Temperature: getEnvFloat("LLM_TEMPERATURE", 0.7),
			Timeout:     getEnvInt("LLM_TIMEOUT", 60),
			SiteURL:     getEnvString("LLM_SITE_URL", ""),
			AppName:     getEnvString("LLM_APP_NAME", ""),
		},
		Agent: AgentConfig{
			DBPath:            getEnvString("AGENT_DB_PATH", "agent_memory.db"),
			MaxToolIterations: getEnvInt("AGENT_MAX_TOOL_ITERATIONS", 10),
		},
		Context: ContextConfig{
			Collection:     getEnvString("CONTEXT_COLLECTION", ""),
			PersistDir:     getEnvString("CONTEXT_PERSIST_DIR", "context_db"),
			EmbeddingModel: getEnvString("CONTEXT_EMBEDDING_MODEL", "text-embedding-3-small"),
			NumResults:     getEnvInt("CONTEXT_NUM_RESULTS", 3),
		},
		Search: SearchConfig{
			APIKey: getEnvString("SEARCH_API_KEY", ""),
			APIURL: getEnvString("SEARCH_API_URL", "https://api.tavily.com/search"),
		},
		Retention: RetentionConfig{
			CronExpr: getEnvString("RETENTION_CRON_EXPR", "0 0 * * *"),
			KeepLast: getEnvInt("RETENTION_KEEP_LAST", 50),
		},
	}

	// Apply custom options
	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Loaded configuration (model=%s, db=%s)", config.LLM.Model, config.Agent.DBPath)
	return config, nil
}

// validate checks the values that cannot be defaulted sensibly. A missing
// LLM_API_KEY is allowed here: the agent reports it as a recoverable
// condition at execution time rather than refusing to start.
func (c *Config) validate() error {
	if c.Agent.MaxToolIterations < 1 {
		return fmt.Errorf("AGENT_MAX_TOOL_ITERATIONS must be greater than 0")
	}
	if c.Context.NumResults < 1 {
		return fmt.Errorf("CONTEXT_NUM_RESULTS must be greater than 0")
	}
	if c.Retention.KeepLast < 1 {
		return fmt.Errorf("RETENTION_KEEP_LAST must be greater than 0")
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float value from environment variables with default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
