package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
	"github.com/aescanero/dago-node-assistant/internal/llm"
	"go.uber.org/zap"
)

var (
	errUnparsable = errors.New("classifier output is not a JSON object")
	errOutOfEnum  = errors.New("classifier output is outside the capability set")
)

// llmDecision is the JSON shape requested from the model. tool/tools and
// reasoning are accepted for prompts that still use the legacy names.
type llmDecision struct {
	Capabilities []string `json:"capabilities"`
	Tool         string   `json:"tool"`
	Tools        []string `json:"tools"`
	Confidence   *float64 `json:"confidence"`
	Rationale    string   `json:"rationale"`
	Reasoning    string   `json:"reasoning"`
}

// routeLLM asks the model for a route and enforces the output shape
func (r *Router) routeLLM(ctx context.Context, query string, recent []string) (capability.Route, error) {
	prompt, err := r.renderPrompt(query, recent)
	if err != nil {
		return capability.Route{}, fmt.Errorf("failed to render prompt: %w", err)
	}

	response, err := r.llmClient.Complete(ctx, prompt)
	if err != nil {
		return capability.Route{}, fmt.Errorf("llm call failed: %w", err)
	}

	r.logger.Debug("llm response received",
		zap.String("response", response),
	)

	return parseDecision(response)
}

// renderPrompt renders the classification template
func (r *Router) renderPrompt(query string, recent []string) (string, error) {
	data := map[string]interface{}{
		"query":   query,
		"context": recent,
	}
	return r.templateEngine.Render(r.config.PromptTemplate, data)
}

// parseDecision extracts and validates a route from model text
func parseDecision(response string) (capability.Route, error) {
	text := llm.StripCodeFence(response, "json")

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return capability.Route{}, errUnparsable
	}

	var d llmDecision
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return capability.Route{}, fmt.Errorf("%w: %v", errUnparsable, err)
	}

	names := d.Capabilities
	if len(names) == 0 {
		if strings.EqualFold(strings.TrimSpace(d.Tool), "MULTIPLE") {
			names = d.Tools
		} else if d.Tool != "" {
			names = []string{d.Tool}
		}
	}
	if len(names) == 0 {
		return capability.Route{}, fmt.Errorf("%w: no capabilities", errOutOfEnum)
	}

	tags := make([]capability.Tag, 0, len(names))
	hasNone, hasOther := false, false
	for _, name := range names {
		tag, err := capability.ParseTag(name)
		if err != nil {
			return capability.Route{}, fmt.Errorf("%w: %v", errOutOfEnum, err)
		}
		if tag == capability.None {
			hasNone = true
		} else {
			hasOther = true
		}
		tags = append(tags, tag)
	}
	if hasNone && hasOther {
		return capability.Route{}, fmt.Errorf("%w: NONE combined with other capabilities", errOutOfEnum)
	}

	if d.Confidence == nil {
		return capability.Route{}, fmt.Errorf("%w: missing confidence", errUnparsable)
	}
	if *d.Confidence < 0 || *d.Confidence > 1 {
		return capability.Route{}, fmt.Errorf("%w: confidence %.3f out of range", errUnparsable, *d.Confidence)
	}

	rationale := strings.TrimSpace(d.Rationale)
	if rationale == "" {
		rationale = strings.TrimSpace(d.Reasoning)
	}

	route := capability.NewRoute(tags, *d.Confidence, rationale)
	route.Path = capability.PathSlow
	return route, nil
}

// reasonFor maps a classification error to a short rationale suffix
func reasonFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "classifier timed out"
	case errors.Is(err, errUnparsable):
		return "unparsable classifier output"
	case errors.Is(err, errOutOfEnum):
		return "classifier output out of range"
	default:
		return "classifier unavailable"
	}
}
