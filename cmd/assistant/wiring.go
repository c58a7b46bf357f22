package main

import (
	"errors"
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/assistant"
	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/config"
	"github.com/aescanero/dago-node-assistant/internal/guardrail"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/orchestrator"
	"github.com/aescanero/dago-node-assistant/internal/provider/docs"
	"github.com/aescanero/dago-node-assistant/internal/provider/sqlquery"
	"github.com/aescanero/dago-node-assistant/internal/provider/websearch"
	"github.com/aescanero/dago-node-assistant/internal/router"
	"github.com/aescanero/dago-node-assistant/internal/session"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"go.uber.org/zap"
)

// app holds the components shared by the ask and worker commands
type app struct {
	store   *sqlite.Store
	service *assistant.Service
}

func (a *app) Close() error {
	return a.store.Close()
}

// initLLMClient builds the model client. A missing key is not fatal: routing
// falls back to keywords and the model-backed providers stay unregistered.
func initLLMClient(cfg *config.Config, logger *zap.Logger) llm.Completer {
	completer, err := llm.New(cfg.LLMOptions(), logger.Named("llm"))
	switch {
	case errors.Is(err, llm.ErrNotConfigured):
		logger.Warn("llm api key not provided (keyword routing only, providers unavailable)")
		return nil
	case err != nil:
		logger.Warn("failed to initialize llm client (keyword routing only, providers unavailable)",
			zap.Error(err),
		)
		return nil
	}
	logger.Info("llm client initialized",
		zap.String("client", cfg.LLMClient),
		zap.String("provider", cfg.LLMProvider),
		zap.String("model", cfg.LLMModel),
	)
	return completer
}

// buildApp wires configuration, storage, providers and the orchestrator
// into the assistant service.
func buildApp(cfg *config.Config, sessions session.Store, logger *zap.Logger) (*app, error) {
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}

	completer := initLLMClient(cfg, logger)

	classifier, err := router.NewRouter(completer, cfg.RouterConfig(policy), logger.Named("router"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize router: %w", err)
	}

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	logger.Info("database opened", zap.String("path", store.Path()))

	providers, err := buildProviders(cfg, policy, completer, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	var synthesizer orchestrator.Synthesizer
	if completer != nil {
		synthesizer = orchestrator.NewLLMSynthesizer(completer)
	}

	orch, err := orchestrator.New(providers, synthesizer, cfg.OrchestratorConfig(), logger.Named("orchestrator"))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	return &app{
		store:   store,
		service: assistant.NewService(classifier, orch, sessions, cfg.HistoryLimit, logger),
	}, nil
}

func buildProviders(cfg *config.Config, policy *config.Policy, completer llm.Completer, store *sqlite.Store, logger *zap.Logger) (map[capability.Tag]capability.Provider, error) {
	providers := make(map[capability.Tag]capability.Provider)
	if completer == nil {
		return providers, nil
	}

	sql, err := sqlquery.New(completer, store, guardrail.NewValidator(policy.Guardrail), cfg.SQLMaxRows, logger.Named("sqlquery"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize structured query provider: %w", err)
	}
	providers[capability.StructuredQuery] = sql

	documentation, err := docs.New(completer, store, cfg.DocsTopK, logger.Named("docs"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document provider: %w", err)
	}
	providers[capability.DocumentRetrieval] = documentation

	client, err := websearch.NewClient(cfg.SearchAPIURL, cfg.SearchAPIKey, cfg.SearchRPS)
	if errors.Is(err, websearch.ErrNoAPIKey) {
		logger.Warn("search api key not provided (live search unavailable)")
		return providers, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize search client: %w", err)
	}
	search, err := websearch.New(completer, client, cfg.SearchMaxResults, logger.Named("websearch"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize live search provider: %w", err)
	}
	providers[capability.LiveSearch] = search

	return providers, nil
}
