package capability

import (
	"fmt"
	"strings"
)

// Path records which classifier tier produced a Route
type Path string

const (
	// PathFast means an operator rule matched before any model call
	PathFast Path = "fast"

	// PathSlow means the model classified the query
	PathSlow Path = "slow"

	// PathFallback means the keyword heuristic produced the route
	PathFallback Path = "fallback"
)

// Route is the classifier's decision for one query
type Route struct {
	Capabilities []Tag   `json:"capabilities"`
	Confidence   float64 `json:"confidence"`
	Rationale    string  `json:"rationale"`
	FallbackUsed bool    `json:"fallback_used"`
	Path         Path    `json:"path"`
}

// NewRoute builds a route from tags, dropping duplicates and enforcing that
// None is exclusive. An empty tag list yields a None route.
func NewRoute(tags []Tag, confidence float64, rationale string) Route {
	return Route{
		Capabilities: NormalizeTags(tags),
		Confidence:   clamp(confidence),
		Rationale:    rationale,
	}
}

// NoneRoute returns the terminal "no applicable capability" route
func NoneRoute(rationale string) Route {
	return Route{
		Capabilities: []Tag{None},
		Confidence:   0,
		Rationale:    rationale,
	}
}

// NormalizeTags removes duplicates preserving first occurrence. If None is
// present alongside dispatchable tags it is dropped; if nothing dispatchable
// remains the result is [None].
func NormalizeTags(tags []Tag) []Tag {
	seen := make(map[Tag]bool, len(tags))
	out := make([]Tag, 0, len(tags))
	for _, t := range tags {
		if t == None || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return []Tag{None}
	}
	return out
}

// IsNone reports whether the route dispatches nothing
func (r Route) IsNone() bool {
	return len(r.Capabilities) == 0 || (len(r.Capabilities) == 1 && r.Capabilities[0] == None)
}

// IsMulti reports whether more than one provider is implicated
func (r Route) IsMulti() bool {
	return !r.IsNone() && len(r.Capabilities) > 1
}

// Validate checks the structural invariants of a route
func (r Route) Validate() error {
	if len(r.Capabilities) == 0 {
		return fmt.Errorf("route has no capabilities")
	}
	seen := make(map[Tag]bool, len(r.Capabilities))
	for _, t := range r.Capabilities {
		if !t.Valid() {
			return fmt.Errorf("route contains unknown capability %q", t)
		}
		if t == None && len(r.Capabilities) > 1 {
			return fmt.Errorf("NONE cannot be combined with other capabilities")
		}
		if seen[t] {
			return fmt.Errorf("route contains duplicate capability %q", t)
		}
		seen[t] = true
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("confidence %.3f out of range [0,1]", r.Confidence)
	}
	return nil
}

// Explain renders a human-readable explanation of the routing decision
func (r Route) Explain() string {
	labels := make([]string, 0, len(r.Capabilities))
	for _, t := range r.Capabilities {
		labels = append(labels, t.Label())
	}

	var b strings.Builder
	if r.IsMulti() {
		fmt.Fprintf(&b, "Selected capabilities: %s\n", strings.Join(labels, ", "))
	} else {
		fmt.Fprintf(&b, "Selected capability: %s\n", strings.Join(labels, ", "))
	}
	fmt.Fprintf(&b, "Confidence: %.0f%%\n", r.Confidence*100)
	rationale := r.Rationale
	if rationale == "" {
		rationale = "no rationale provided"
	}
	fmt.Fprintf(&b, "Rationale: %s", rationale)
	if r.FallbackUsed {
		b.WriteString("\n(keyword fallback)")
	}
	return b.String()
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
