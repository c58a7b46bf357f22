package orchestrator

import (
	"fmt"
	"strings"

	"github.com/aescanero/dago-node-assistant/internal/capability"
)

// User-facing messages. None of them carries backend error text.
const (
	NotApplicableMessage = "I can only answer questions about our teams, products and documentation, or look up recent news. This request is outside what I can help with."
	AllFailedMessage     = "I'm sorry, none of my information sources could answer right now. Please try again in a few minutes."
	RefusalMessage       = "I can't do that. I only have read access to the company database, so requests that would change or delete data are refused."
)

// categoryMessages explains provider failures that are not outages
var categoryMessages = map[string]string{
	"no_relevant_documents": "I couldn't find anything about this in the documentation.",
	"no_results":            "The web search returned no results for this question.",
	"rate_limited":          "The web search service is receiving too many requests. Please try again shortly.",
	"not_configured":        "The %s is not configured, so I can't answer this question.",
}

// FailureMessage explains why a single-provider route produced no answer
func FailureMessage(r capability.Result) string {
	if r.Error == nil {
		return AllFailedMessage
	}

	label := r.Tag.Label()
	switch r.Error.Kind {
	case capability.KindGuardrailDenied:
		return RefusalMessage
	case capability.KindProviderTimeout:
		return fmt.Sprintf("The %s did not respond in time. Please try again.", label)
	}

	if msg, ok := categoryMessages[r.Error.Category]; ok {
		if strings.Contains(msg, "%s") {
			return fmt.Sprintf(msg, label)
		}
		return msg
	}
	return fmt.Sprintf("The %s is unavailable at the moment, so I couldn't answer this question.", label)
}

// UnavailableNote lists the sources that did not contribute to a degraded answer
func UnavailableNote(failed []capability.Result) string {
	labels := make([]string, 0, len(failed))
	for _, r := range failed {
		labels = append(labels, r.Tag.Label())
	}
	return fmt.Sprintf("Note: some information sources were unavailable (%s), so this answer may be incomplete.", strings.Join(labels, ", "))
}
