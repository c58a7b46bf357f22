package docs

import (
	"context"
	"errors"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/eval/template"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"github.com/aescanero/dago-node-assistant/internal/provider"
	"github.com/aescanero/dago-node-assistant/internal/storage/sqlite"
	"go.uber.org/zap"
)

// Failure categories
const (
	CategoryNoDocuments = "no_relevant_documents"
	CategorySearch      = "search_failed"
	CategoryGeneration  = "generation_failed"
)

// DefaultTopK is the number of chunks passed to the model
const DefaultTopK = 5

// Retriever finds indexed chunks relevant to a query
type Retriever interface {
	SearchDocuments(ctx context.Context, query string, limit int) ([]sqlite.Hit, error)
}

// Provider answers DOCUMENT_RETRIEVAL calls from the best matching chunks
type Provider struct {
	llmClient      llm.Completer
	retriever      Retriever
	templateEngine *template.Engine
	topK           int
	logger         *zap.Logger
}

// New creates the provider
func New(llmClient llm.Completer, retriever Retriever, topK int, logger *zap.Logger) (*Provider, error) {
	if llmClient == nil {
		return nil, llm.ErrNotConfigured
	}
	if retriever == nil {
		return nil, errors.New("document retriever is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Provider{
		llmClient:      llmClient,
		retriever:      retriever,
		templateEngine: template.NewEngine(),
		topK:           topK,
		logger:         logger,
	}, nil
}

// Execute implements capability.Provider
func (p *Provider) Execute(ctx context.Context, call capability.Call) capability.Result {
	return provider.Run(ctx, call, p.logger, p.answer)
}

func (p *Provider) answer(ctx context.Context, call capability.Call) (*provider.Answer, error) {
	hits, err := p.retriever.SearchDocuments(ctx, call.Query, p.topK)
	if err != nil {
		return nil, provider.Fail(CategorySearch, err)
	}
	if len(hits) == 0 {
		return nil, provider.Fail(CategoryNoDocuments, nil)
	}

	p.logger.Debug("retrieved chunks",
		zap.Int("hits", len(hits)),
		zap.String("best", hits[0].Path),
		zap.Float64("best_score", hits[0].Score),
	)

	chunks := make([]map[string]interface{}, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, map[string]interface{}{
			"title":   h.Title,
			"path":    h.Path,
			"content": h.Content,
		})
	}

	prompt, err := p.templateEngine.Render(answerPrompt, map[string]interface{}{
		"question": call.Query,
		"chunks":   chunks,
	})
	if err != nil {
		return nil, provider.Fail(CategoryGeneration, err)
	}

	out, err := p.llmClient.Complete(ctx, prompt)
	if err != nil {
		return nil, provider.Fail(CategoryGeneration, err)
	}

	return &provider.Answer{
		Content: strings.TrimSpace(out),
		Sources: sources(hits),
		Metadata: map[string]any{
			"chunk_count": len(hits),
			"best_score":  hits[0].Score,
		},
	}, nil
}

// sources lists each document once, best match first
func sources(hits []sqlite.Hit) []capability.SourceRef {
	seen := make(map[string]bool, len(hits))
	refs := make([]capability.SourceRef, 0, len(hits))
	for _, h := range hits {
		if seen[h.Path] {
			continue
		}
		seen[h.Path] = true
		refs = append(refs, capability.SourceRef{Kind: "documentation", ID: h.Path, Title: h.Title})
	}
	return refs
}

const answerPrompt = `You are a product expert. Answer the question using only the documentation excerpts below.
If the excerpts do not contain the answer, say so. Do not invent features. Mention the product names you rely on.

Documentation:
{{#each chunks}}
[{{inc @index}}] {{{title}}} ({{{path}}})
{{{content}}}

{{/each}}
Question: {{{question}}}

Answer:`
