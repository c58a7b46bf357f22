package router

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aescanero/dago-node-assistant/internal/capability"
)

// DefaultKeywords returns the built-in vocabulary per capability. A keyword
// ending in '*' matches any word starting with it.
func DefaultKeywords() map[capability.Tag][]string {
	return map[capability.Tag][]string{
		capability.StructuredQuery: {
			"how many", "how much", "count", "number of", "list", "who works", "who is working",
			"team", "teams", "developer*", "engineer*", "employee*", "member*", "staff",
			"role", "roles", "position*", "department*", "incident*", "bug*", "statistic*",
			"average", "total", "assigned", "headcount",
			"сколько", "количество", "кто работает", "команд*", "разработчик*", "инцидент*", "статистик*",
		},
		capability.DocumentRetrieval: {
			"what is", "what are", "what does", "how does", "how do", "how to", "explain", "describe",
			"documentation", "docs", "manual", "guide", "overview", "architecture", "capabilit*",
			"configure", "configuration", "install*", "supports",
			"что такое", "как работает", "возможност*", "функци*", "описание", "документаци*",
		},
		capability.LiveSearch: {
			"latest", "news", "recent", "recently", "today", "this week", "this month", "currently",
			"right now", "trend*", "announce*", "released yesterday",
			"новости", "последние", "актуальн*", "тренд*", "сейчас",
		},
	}
}

// Heuristic routes a query by keyword membership. It is total: every input
// string, including the empty string, yields a well-formed Route.
type Heuristic struct {
	order      []capability.Tag
	keywords   map[capability.Tag][]string
	confidence float64
}

// NewHeuristic builds a heuristic from keyword sets. Keys must be
// dispatchable tags.
func NewHeuristic(keywords map[capability.Tag][]string, confidence float64) (*Heuristic, error) {
	normalized := make(map[capability.Tag][]string, len(keywords))
	for tag, words := range keywords {
		if !tag.Valid() || tag == capability.None {
			return nil, fmt.Errorf("keywords for unknown capability %q", tag)
		}
		for _, w := range words {
			prefix := strings.HasSuffix(w, "*")
			n := normalizeText(strings.TrimSuffix(w, "*"))
			if n == "" {
				continue
			}
			if prefix {
				n += "*"
			}
			normalized[tag] = append(normalized[tag], n)
		}
	}

	return &Heuristic{
		order:      capability.Dispatchable,
		keywords:   normalized,
		confidence: confidence,
	}, nil
}

// Route returns the capabilities whose vocabulary occurs in query, in
// canonical order, or a None route when nothing matches.
func (h *Heuristic) Route(query string) capability.Route {
	haystack := " " + normalizeText(query) + " "

	var (
		tags    []capability.Tag
		matched []string
	)
	for _, tag := range h.order {
		if kw, ok := h.match(haystack, tag); ok {
			tags = append(tags, tag)
			matched = append(matched, kw)
		}
	}

	if len(tags) == 0 {
		return capability.Route{
			Capabilities: []capability.Tag{capability.None},
			Confidence:   0,
			Rationale:    "keyword fallback: no capability vocabulary matched",
			FallbackUsed: true,
			Path:         capability.PathFallback,
		}
	}

	return capability.Route{
		Capabilities: tags,
		Confidence:   h.confidence,
		Rationale:    "keyword fallback: matched " + strings.Join(matched, ", "),
		FallbackUsed: true,
		Path:         capability.PathFallback,
	}
}

func (h *Heuristic) match(haystack string, tag capability.Tag) (string, bool) {
	for _, kw := range h.keywords[tag] {
		if strings.HasSuffix(kw, "*") {
			stem := strings.TrimSuffix(kw, "*")
			if strings.Contains(haystack, " "+stem) {
				return kw, true
			}
			continue
		}
		if strings.Contains(haystack, " "+kw+" ") {
			return kw, true
		}
	}
	return "", false
}

// normalizeText lower-cases s and reduces every run of non-alphanumeric
// characters to a single space.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
			continue
		}
		space = true
	}
	return b.String()
}
