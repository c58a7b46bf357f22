package config

import (
	"fmt"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/orchestrator"
	"github.com/caarlos0/env/v10"
	"github.com/redis/go-redis/v9"
)

// Config holds all configuration for the assistant
type Config struct {
	// Worker configuration
	WorkerID string `env:"WORKER_ID" envDefault:"assistant-1"`

	// Redis configuration
	RedisAddr       string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword   string `env:"REDIS_PASS" envDefault:""`
	RedisDB         int    `env:"REDIS_DB" envDefault:"0"`
	RedisMaxRetries int    `env:"REDIS_MAX_RETRIES" envDefault:"3"`

	// Stream configuration
	StreamKey     string        `env:"STREAM_KEY" envDefault:"assistant.questions"`
	ConsumerGroup string        `env:"CONSUMER_GROUP" envDefault:"assistant-workers"`
	ResultStream  string        `env:"RESULT_STREAM" envDefault:"assistant.answers"`
	BlockTime     time.Duration `env:"BLOCK_TIME" envDefault:"1s"`

	// LLM configuration
	LLMClient    string        `env:"LLM_CLIENT" envDefault:"adapters"`
	LLMProvider  string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMModel     string        `env:"LLM_MODEL" envDefault:"claude-sonnet-4-20250514"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" envDefault:"30s"`
	LLMMaxTokens int           `env:"LLM_MAX_TOKENS" envDefault:"1024"`

	// Classifier configuration
	ClassifierThreshold float64 `env:"CLASSIFIER_THRESHOLD" envDefault:"0.5"`
	FallbackConfidence  float64 `env:"FALLBACK_CONFIDENCE" envDefault:"0.4"`
	CELEnabled          bool    `env:"CEL_ENABLED" envDefault:"true"`
	PolicyFile          string  `env:"POLICY_FILE" envDefault:""`

	// Session configuration
	HistoryLimit    int           `env:"HISTORY_LIMIT" envDefault:"6"`
	SessionTTL      time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionMaxTurns int           `env:"SESSION_MAX_TURNS" envDefault:"50"`

	// Orchestration budgets
	OrchestrationBudget time.Duration `env:"ORCHESTRATION_BUDGET" envDefault:"30s"`
	ProviderTimeout     time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"20s"`
	SynthesisTimeout    time.Duration `env:"SYNTHESIS_TIMEOUT" envDefault:"15s"`

	// Structured query and document retrieval
	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/assistant.db"`
	SQLMaxRows   int    `env:"SQL_MAX_ROWS" envDefault:"100"`
	DocsTopK     int    `env:"DOCS_TOP_K" envDefault:"5"`

	// Live search
	SearchAPIURL     string  `env:"SEARCH_API_URL" envDefault:"https://api.tavily.com/search"`
	SearchAPIKey     string  `env:"SEARCH_API_KEY"`
	SearchMaxResults int     `env:"SEARCH_MAX_RESULTS" envDefault:"5"`
	SearchRPS        float64 `env:"SEARCH_RPS" envDefault:"1"`

	// Health check configuration
	HealthPort int `env:"HEALTH_PORT" envDefault:"8082"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkerID == "" {
		return fmt.Errorf("WORKER_ID is required")
	}

	if c.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	if c.StreamKey == "" {
		return fmt.Errorf("STREAM_KEY is required")
	}

	if c.ConsumerGroup == "" {
		return fmt.Errorf("CONSUMER_GROUP is required")
	}

	if c.ResultStream == "" {
		return fmt.Errorf("RESULT_STREAM is required")
	}

	if c.ResultStream == c.StreamKey {
		return fmt.Errorf("RESULT_STREAM must differ from STREAM_KEY")
	}

	if c.LLMClient != "adapters" && c.LLMClient != "anthropic" {
		return fmt.Errorf("LLM_CLIENT must be one of: adapters, anthropic")
	}

	if c.LLMProvider == "" {
		return fmt.Errorf("LLM_PROVIDER is required")
	}

	// LLM_API_KEY is optional: without it the classifier runs on keywords only
	// and the model-backed providers are not registered

	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}

	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive")
	}

	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive")
	}

	if c.ClassifierThreshold <= 0 || c.ClassifierThreshold > 1 {
		return fmt.Errorf("CLASSIFIER_THRESHOLD must be within (0,1]")
	}

	if c.FallbackConfidence <= 0 || c.FallbackConfidence > 1 {
		return fmt.Errorf("FALLBACK_CONFIDENCE must be within (0,1]")
	}

	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must be non-negative")
	}

	if c.SessionMaxTurns < 0 {
		return fmt.Errorf("SESSION_MAX_TURNS must be non-negative")
	}

	if c.OrchestrationBudget <= 0 || c.ProviderTimeout <= 0 || c.SynthesisTimeout <= 0 {
		return fmt.Errorf("ORCHESTRATION_BUDGET, PROVIDER_TIMEOUT and SYNTHESIS_TIMEOUT must be positive")
	}

	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}

	if c.SQLMaxRows <= 0 {
		return fmt.Errorf("SQL_MAX_ROWS must be positive")
	}

	if c.DocsTopK <= 0 {
		return fmt.Errorf("DOCS_TOP_K must be positive")
	}

	if c.SearchMaxResults <= 0 || c.SearchMaxResults > 20 {
		return fmt.Errorf("SEARCH_MAX_RESULTS must be between 1 and 20")
	}

	if c.SearchRPS < 0 {
		return fmt.Errorf("SEARCH_RPS must be non-negative")
	}

	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}

	if c.RedisMaxRetries < 0 {
		return fmt.Errorf("REDIS_MAX_RETRIES must be non-negative")
	}

	if c.HealthPort <= 0 || c.HealthPort > 65535 {
		return fmt.Errorf("HEALTH_PORT must be between 1 and 65535")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
	}

	return nil
}

// isValidLogLevel checks if the log level is valid
func isValidLogLevel(level string) bool {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	return validLevels[level]
}

// RedisOptions returns Redis client options
func (c *Config) RedisOptions() *redis.Options {
	return &redis.Options{
		Addr:       c.RedisAddr,
		Password:   c.RedisPassword,
		DB:         c.RedisDB,
		MaxRetries: c.RedisMaxRetries,
	}
}

// LLMOptions returns LLM client options
func (c *Config) LLMOptions() llm.Options {
	return llm.Options{
		Client:    c.LLMClient,
		Provider:  c.LLMProvider,
		APIKey:    c.LLMAPIKey,
		Model:     c.LLMModel,
		MaxTokens: c.LLMMaxTokens,
		Timeout:   c.LLMTimeout,
	}
}

// OrchestratorConfig returns the dispatch budgets
func (c *Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Budget:           c.OrchestrationBudget,
		ProviderTimeout:  c.ProviderTimeout,
		SynthesisTimeout: c.SynthesisTimeout,
	}
}

// String returns a string representation of the config (without sensitive data)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{WorkerID=%s, RedisAddr=%s, RedisDB=%d, StreamKey=%s, ConsumerGroup=%s, ResultStream=%s, "+
			"LLMClient=%s, LLMProvider=%s, LLMModel=%s, LLMConfigured=%v, Threshold=%.2f, CELEnabled=%v, "+
			"PolicyFile=%s, Budget=%s, DatabasePath=%s, SearchConfigured=%v, HealthPort=%d, LogLevel=%s}",
		c.WorkerID,
		c.RedisAddr,
		c.RedisDB,
		c.StreamKey,
		c.ConsumerGroup,
		c.ResultStream,
		c.LLMClient,
		c.LLMProvider,
		c.LLMModel,
		c.LLMAPIKey != "",
		c.ClassifierThreshold,
		c.CELEnabled,
		c.PolicyFile,
		c.OrchestrationBudget,
		c.DatabasePath,
		c.SearchAPIKey != "",
		c.HealthPort,
		c.LogLevel,
	)
}
