package capability

import (
	"fmt"
	"strings"
)

// Tag identifies one kind of capability
type Tag string

const (
	// StructuredQuery answers counting and listing questions from the relational store
	StructuredQuery Tag = "STRUCTURED_QUERY"

	// DocumentRetrieval answers "what is / how does" questions from indexed documentation
	DocumentRetrieval Tag = "DOCUMENT_RETRIEVAL"

	// LiveSearch answers time-sensitive questions from a live search backend
	LiveSearch Tag = "LIVE_SEARCH"

	// None means no capability applies. It never appears together with other tags.
	None Tag = "NONE"
)

// Dispatchable lists the tags that map to a provider, in canonical order.
var Dispatchable = []Tag{StructuredQuery, DocumentRetrieval, LiveSearch}

// aliases accepts the legacy tool names emitted by older prompts
var aliases = map[string]Tag{
	"SQL":                "STRUCTURED_QUERY",
	"DATABASE":           "STRUCTURED_QUERY",
	"RAG":                "DOCUMENT_RETRIEVAL",
	"DOCS":               "DOCUMENT_RETRIEVAL",
	"DOCUMENTATION":      "DOCUMENT_RETRIEVAL",
	"WEB_SEARCH":         "LIVE_SEARCH",
	"WEB":                "LIVE_SEARCH",
	"SEARCH":             "LIVE_SEARCH",
	"STRUCTURED_QUERY":   StructuredQuery,
	"DOCUMENT_RETRIEVAL": DocumentRetrieval,
	"LIVE_SEARCH":        LiveSearch,
	"NONE":               None,
}

// ParseTag converts a tag name or one of its aliases into a Tag.
// The set of tags is closed: anything else is an error.
func ParseTag(s string) (Tag, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, " ", "_")
	if tag, ok := aliases[key]; ok {
		return tag, nil
	}
	return "", fmt.Errorf("unknown capability %q", s)
}

// Valid reports whether t is a member of the closed tag set
func (t Tag) Valid() bool {
	switch t {
	case StructuredQuery, DocumentRetrieval, LiveSearch, None:
		return true
	}
	return false
}

// String returns the tag name
func (t Tag) String() string {
	return string(t)
}

// Label returns a short human-readable name for the capability
func (t Tag) Label() string {
	switch t {
	case StructuredQuery:
		return "database"
	case DocumentRetrieval:
		return "documentation"
	case LiveSearch:
		return "web search"
	case None:
		return "none"
	}
	return strings.ToLower(string(t))
}
