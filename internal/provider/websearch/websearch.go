package websearch

import (
	"context"
	"errors"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/eval/template"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/provider"
	"go.uber.org/zap"
)

// Failure categories
const (
	CategorySearch     = "search_failed"
	CategoryRateLimit  = "rate_limited"
	CategoryNoResults  = "no_results"
	CategoryGeneration = "generation_failed"
)

// NewsDays bounds news searches to the last week
const NewsDays = 7

// Searcher runs live web searches
type Searcher interface {
	Search(ctx context.Context, req Request) (*Response, error)
}

// Provider answers LIVE_SEARCH calls by summarizing search hits
type Provider struct {
	llmClient      llm.Completer
	searcher       Searcher
	templateEngine *template.Engine
	maxResults     int
	logger         *zap.Logger
}

// New creates the provider
func New(llmClient llm.Completer, searcher Searcher, maxResults int, logger *zap.Logger) (*Provider, error) {
	if llmClient == nil {
		return nil, llm.ErrNotConfigured
	}
	if searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Provider{
		llmClient:      llmClient,
		searcher:       searcher,
		templateEngine: template.NewEngine(),
		maxResults:     maxResults,
		logger:         logger,
	}, nil
}

// Execute implements capability.Provider
func (p *Provider) Execute(ctx context.Context, call capability.Call) capability.Result {
	return provider.Run(ctx, call, p.logger, p.answer)
}

func (p *Provider) answer(ctx context.Context, call capability.Call) (*provider.Answer, error) {
	req := Request{
		Query:         call.Query,
		MaxResults:    p.maxResults,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	}
	news := IsNewsQuery(call.Query)
	if news {
		req.Topic = "news"
		req.Days = NewsDays
	}

	resp, err := p.searcher.Search(ctx, req)
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && status.Code == 429 {
			return nil, provider.Fail(CategoryRateLimit, err)
		}
		return nil, provider.Fail(CategorySearch, err)
	}
	if len(resp.Results) == 0 {
		return nil, provider.Fail(CategoryNoResults, nil)
	}

	items := resp.Results
	if len(items) > p.maxResults {
		items = items[:p.maxResults]
	}

	prompt, err := p.templateEngine.Render(summaryPrompt, map[string]interface{}{
		"question": call.Query,
		"news":     news,
		"answer":   resp.Answer,
		"results":  items,
	})
	if err != nil {
		return nil, provider.Fail(CategoryGeneration, err)
	}

	out, err := p.llmClient.Complete(ctx, prompt)
	if err != nil {
		if ctx.Err() == nil && resp.Answer != "" {
			p.logger.Warn("summary generation failed, using search answer", zap.Error(err))
			out = resp.Answer
		} else {
			return nil, provider.Fail(CategoryGeneration, err)
		}
	}

	refs := make([]capability.SourceRef, 0, len(items))
	for _, it := range items {
		if it.URL == "" {
			continue
		}
		refs = append(refs, capability.SourceRef{Kind: "web", ID: it.URL, Title: it.Title})
	}

	return &provider.Answer{
		Content: strings.TrimSpace(out),
		Sources: refs,
		Metadata: map[string]any{
			"results_found": len(items),
			"news":          news,
		},
	}, nil
}

var newsMarkers = []string{
	"news", "latest", "recent", "today", "this week", "yesterday", "announced",
	"новост", "последн", "сегодня", "недавн",
}

// IsNewsQuery reports whether the phrasing asks for recent events
func IsNewsQuery(q string) bool {
	lower := strings.ToLower(q)
	for _, m := range newsMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// summaryPrompt references Item fields by their Go names
const summaryPrompt = `Summarize what the web search results below say in answer to the question.
{{#if news}}Focus on the most recent events and mention dates when they are given.
{{/if}}Cite the sources you use by their number. Do not add facts that are not in the results.
{{#if answer}}

Search engine summary: {{{answer}}}
{{/if}}

Results:
{{#each results}}
[{{inc @index}}] {{{Title}}} ({{{URL}}}){{#if PublishedDate}} {{PublishedDate}}{{/if}}
{{{Content}}}

{{/each}}
Question: {{{question}}}

Answer:`
