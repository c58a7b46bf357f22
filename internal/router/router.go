package router

import (
	"context"
	"fmt"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/eval/cel"
	"github.com/aescanero/dago-node-assistant/internal/eval/template"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"go.uber.org/zap"
)

// Default tuning values
const (
	DefaultThreshold          = 0.5
	DefaultFallbackConfidence = 0.4
)

// Rule is an operator-defined CEL routing rule
type Rule struct {
	Condition    string           `json:"condition" yaml:"condition"`
	Capabilities []capability.Tag `json:"capabilities" yaml:"capabilities"`
	Rationale    string           `json:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Config holds classifier tuning
type Config struct {
	// Threshold is the minimum model confidence accepted without falling back
	Threshold float64

	// FallbackConfidence is the fixed confidence of keyword routes
	FallbackConfidence float64

	// Keywords maps each dispatchable tag to its vocabulary
	Keywords map[capability.Tag][]string

	// Rules are evaluated before the model when RulesEnabled is set
	Rules        []Rule
	RulesEnabled bool

	// PromptTemplate overrides the built-in classification prompt
	PromptTemplate string
}

// Router classifies queries into capability routes
type Router struct {
	config         Config
	celEvaluator   *cel.Evaluator
	templateEngine *template.Engine
	llmClient      llm.Completer
	heuristic      *Heuristic
	logger         *zap.Logger
}

// NewRouter creates a new router. llmClient may be nil, in which case
// every query that no rule matches is routed by keywords.
func NewRouter(llmClient llm.Completer, config Config, logger *zap.Logger) (*Router, error) {
	if config.Threshold <= 0 {
		config.Threshold = DefaultThreshold
	}
	if config.FallbackConfidence <= 0 {
		config.FallbackConfidence = DefaultFallbackConfidence
	}
	if config.Keywords == nil {
		config.Keywords = DefaultKeywords()
	}
	if config.PromptTemplate == "" {
		config.PromptTemplate = classificationPrompt
	}

	r := &Router{
		config:         config,
		celEvaluator:   cel.NewEvaluator(),
		templateEngine: template.NewEngine(),
		llmClient:      llmClient,
		logger:         logger,
	}

	if err := r.validateConfig(); err != nil {
		return nil, fmt.Errorf("invalid router config: %w", err)
	}

	heuristic, err := NewHeuristic(config.Keywords, config.FallbackConfidence)
	if err != nil {
		return nil, fmt.Errorf("invalid keywords: %w", err)
	}
	r.heuristic = heuristic

	return r, nil
}

// Classify routes a query. recent holds prior conversation turns, oldest first.
func (r *Router) Classify(ctx context.Context, query string, recent []string) capability.Route {
	r.logger.Debug("classifying query",
		zap.Int("query_len", len(query)),
		zap.Int("context_turns", len(recent)),
	)

	route := r.classify(ctx, query, recent)

	r.logger.Info("routing decision",
		zap.Strings("capabilities", tagStrings(route.Capabilities)),
		zap.Float64("confidence", route.Confidence),
		zap.String("path", string(route.Path)),
		zap.Bool("fallback_used", route.FallbackUsed),
	)

	return route
}

func (r *Router) classify(ctx context.Context, query string, recent []string) capability.Route {
	// Phase 1: operator rules
	if r.config.RulesEnabled && len(r.config.Rules) > 0 {
		if route, ok := r.routeRules(ctx, query, recent); ok {
			return route
		}
	}

	// Phase 2: model classification
	if r.llmClient == nil {
		return r.fallback(query, "classifier not configured")
	}

	route, err := r.routeLLM(ctx, query, recent)
	if err != nil {
		r.logger.Warn("classification unavailable, using keyword fallback",
			zap.String("kind", string(capability.KindClassificationUnavailable)),
			zap.Error(err),
		)
		return r.fallback(query, reasonFor(err))
	}

	if route.Confidence < r.config.Threshold {
		r.logger.Info("classifier confidence below threshold, using keyword fallback",
			zap.Float64("confidence", route.Confidence),
			zap.Float64("threshold", r.config.Threshold),
		)
		return r.fallback(query, "low classifier confidence")
	}

	return route
}

// fallback routes by keywords. It never fails.
func (r *Router) fallback(query, reason string) capability.Route {
	route := r.heuristic.Route(query)
	route.Rationale = fmt.Sprintf("%s (%s)", route.Rationale, reason)
	return route
}

// routeRules evaluates the operator rules in order
func (r *Router) routeRules(ctx context.Context, query string, recent []string) (capability.Route, bool) {
	vars := cel.QueryVars(query, recent)

	for i, rule := range r.config.Rules {
		matched, err := r.celEvaluator.Matches(ctx, rule.Condition, vars)
		if err != nil {
			r.logger.Warn("rule evaluation error",
				zap.Int("rule_index", i),
				zap.String("condition", rule.Condition),
				zap.Error(err),
			)
			continue
		}
		if !matched {
			continue
		}

		r.logger.Info("rule matched",
			zap.Int("rule_index", i),
			zap.String("condition", rule.Condition),
		)

		rationale := rule.Rationale
		if rationale == "" {
			rationale = fmt.Sprintf("matched rule %d: %s", i, rule.Condition)
		}
		route := capability.NewRoute(rule.Capabilities, 1.0, rationale)
		route.Path = capability.PathFast
		return route, true
	}

	return capability.Route{}, false
}

// validateConfig validates the routing configuration
func (r *Router) validateConfig() error {
	if r.config.Threshold > 1 {
		return fmt.Errorf("threshold %.2f must be within (0,1]", r.config.Threshold)
	}
	if r.config.FallbackConfidence > 1 {
		return fmt.Errorf("fallback confidence %.2f must be within (0,1]", r.config.FallbackConfidence)
	}

	for i, rule := range r.config.Rules {
		if rule.Condition == "" {
			return fmt.Errorf("rule %d: condition is required", i)
		}
		if len(rule.Capabilities) == 0 {
			return fmt.Errorf("rule %d: capabilities are required", i)
		}
		for _, tag := range rule.Capabilities {
			if !tag.Valid() {
				return fmt.Errorf("rule %d: unknown capability %q", i, tag)
			}
		}
		if err := r.celEvaluator.ValidateExpression(rule.Condition); err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}
	}

	if err := r.templateEngine.ValidateTemplate(r.config.PromptTemplate); err != nil {
		return fmt.Errorf("prompt template: %w", err)
	}

	return nil
}

func tagStrings(tags []capability.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = string(t)
	}
	return out
}
