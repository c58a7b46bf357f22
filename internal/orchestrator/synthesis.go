package orchestrator

import (
	"context"
	"errors"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/eval/template"
	"github.com/aescanero/dago-node-assistant/internal/llm"
)

// Part is one provider's contribution to a synthesized answer
type Part struct {
	Tag       capability.Tag
	Content   string
	Rationale string
}

// Synthesizer merges provider answers into one message
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, parts []Part) (string, error)
}

// ConcatSynthesizer joins the parts in order under their capability labels
type ConcatSynthesizer struct{}

// Synthesize implements Synthesizer
func (ConcatSynthesizer) Synthesize(ctx context.Context, query string, parts []Part) (string, error) {
	if len(parts) == 1 {
		return parts[0].Content, nil
	}
	sections := make([]string, 0, len(parts))
	for _, p := range parts {
		sections = append(sections, "From "+p.Tag.Label()+":\n"+p.Content)
	}
	return strings.Join(sections, "\n\n"), nil
}

// LLMSynthesizer asks the model to combine the parts
type LLMSynthesizer struct {
	llmClient      llm.Completer
	templateEngine *template.Engine
}

// NewLLMSynthesizer creates a model-backed synthesizer
func NewLLMSynthesizer(llmClient llm.Completer) *LLMSynthesizer {
	return &LLMSynthesizer{
		llmClient:      llmClient,
		templateEngine: template.NewEngine(),
	}
}

// Synthesize implements Synthesizer
func (s *LLMSynthesizer) Synthesize(ctx context.Context, query string, parts []Part) (string, error) {
	if s.llmClient == nil {
		return "", llm.ErrNotConfigured
	}

	items := make([]map[string]interface{}, len(parts))
	rationale := ""
	for i, p := range parts {
		items[i] = map[string]interface{}{
			"label":   p.Tag.Label(),
			"content": p.Content,
		}
		if rationale == "" {
			rationale = p.Rationale
		}
	}

	prompt, err := s.templateEngine.Render(synthesisPrompt, map[string]interface{}{
		"query":     query,
		"rationale": rationale,
		"parts":     items,
	})
	if err != nil {
		return "", err
	}

	out, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", errors.New("empty synthesis")
	}
	return out, nil
}

const synthesisPrompt = `Combine the answers below into one coherent reply to the user's question.
Keep every fact and number, remove repetition, and do not add information that is not in the answers.

Question: {{{query}}}
{{#if rationale}}Why these sources were consulted: {{{rationale}}}
{{/if}}
{{#each parts}}
Answer from {{{label}}}:
{{{content}}}

{{/each}}
Combined answer:`
