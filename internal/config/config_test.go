package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_LEVEL", "info")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "assistant.questions", cfg.StreamKey)
	assert.Equal(t, "assistant.answers", cfg.ResultStream)
	assert.Equal(t, 0.5, cfg.ClassifierThreshold)
	assert.Equal(t, 0.4, cfg.FallbackConfidence)
	assert.Equal(t, 30*time.Second, cfg.OrchestrationBudget)
	assert.Equal(t, 20*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 15*time.Second, cfg.SynthesisTimeout)
	assert.True(t, cfg.CELEnabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ORCHESTRATION_BUDGET", "5s")
	t.Setenv("SQL_MAX_ROWS", "25")
	t.Setenv("LLM_API_KEY", "secret-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.OrchestratorConfig().Budget)
	assert.Equal(t, 25, cfg.SQLMaxRows)
	assert.Equal(t, "redis:6380", cfg.RedisOptions().Addr)
	assert.Equal(t, "secret-key", cfg.LLMOptions().APIKey)
	assert.NotContains(t, cfg.String(), "secret-key")
}

func TestValidate(t *testing.T) {
	t.Setenv("LOG_LEVEL", "info")
	base, err := Load()
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"same streams", func(c *Config) { c.ResultStream = c.StreamKey }},
		{"unknown llm client", func(c *Config) { c.LLMClient = "other" }},
		{"threshold above one", func(c *Config) { c.ClassifierThreshold = 1.5 }},
		{"zero fallback", func(c *Config) { c.FallbackConfidence = 0 }},
		{"zero budget", func(c *Config) { c.OrchestrationBudget = 0 }},
		{"too many results", func(c *Config) { c.SearchMaxResults = 50 }},
		{"bad port", func(c *Config) { c.HealthPort = 70000 }},
		{"bad log level", func(c *Config) { c.LogLevel = "trace" }},
		{"no database", func(c *Config) { c.DatabasePath = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadPolicyDefaults(t *testing.T) {
	p, err := LoadPolicy("")
	require.NoError(t, err)
	assert.NotEmpty(t, p.Keywords[capability.StructuredQuery])
	assert.Empty(t, p.Rules)
	assert.Contains(t, p.Guardrail.WriteVerbs, "DELETE")
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(`
classifier:
  keywords:
    web: [breaking, headline]
  rules:
    - condition: 'query.lower.contains("cve-")'
      capabilities: [LIVE_SEARCH, docs]
      rationale: vulnerability lookups
guardrail:
  denied_identifiers: [SECRETS]
  max_length: 4000
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"breaking", "headline"}, p.Keywords[capability.LiveSearch])
	assert.NotEmpty(t, p.Keywords[capability.DocumentRetrieval])
	require.Len(t, p.Rules, 1)
	assert.Equal(t, []capability.Tag{capability.LiveSearch, capability.DocumentRetrieval}, p.Rules[0].Capabilities)
	assert.Contains(t, p.Guardrail.DeniedIdentifiers, "SECRETS")
	assert.Contains(t, p.Guardrail.DeniedIdentifiers, "ATTACH")
	assert.Equal(t, 4000, p.Guardrail.MaxLength)
}

func TestParsePolicyRejects(t *testing.T) {
	tests := map[string]string{
		"unknown capability": "classifier:\n  keywords:\n    EMAIL: [mail]\n",
		"none keywords":      "classifier:\n  keywords:\n    NONE: [hello]\n",
		"unknown rule tag":   "classifier:\n  rules:\n    - condition: 'true'\n      capabilities: [CALENDAR]\n",
		"unknown field":      "classifer:\n  keywords: {}\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParsePolicyEmpty(t *testing.T) {
	p, err := ParsePolicy(nil)
	require.NoError(t, err)
	assert.Equal(t, 10000, p.Guardrail.MaxLength)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("guardrail:\n  denied_prefixes: [XX_]\n"), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Contains(t, p.Guardrail.DeniedPrefixes, "XX_")

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg := &Config{ClassifierThreshold: 0.6, FallbackConfidence: 0.3, CELEnabled: true}
	rc := cfg.RouterConfig(p)
	assert.Equal(t, 0.6, rc.Threshold)
	assert.True(t, rc.RulesEnabled)
	assert.Equal(t, p.Keywords, rc.Keywords)
}
