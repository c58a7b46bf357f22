// Package router classifies a question into a capability Route.
//
// Classification runs up to three tiers and always returns a well-formed
// Route, never an error:
//   - Fast: operator CEL rules from the policy file, first match wins
//   - Slow: the language model, constrained to the capability enum with a
//     confidence and a one-sentence rationale
//   - Fallback: a keyword-membership heuristic used whenever the model call
//     fails, returns something unparsable or out of enum, or reports a
//     confidence below the configured threshold
//
// Example usage:
//
//	r, err := router.NewRouter(completer, router.Config{
//	    Threshold:          0.5,
//	    FallbackConfidence: 0.4,
//	    Keywords:           router.DefaultKeywords(),
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	route := r.Classify(ctx, "How many developers are on the team?", nil)
//	// route.Capabilities == [STRUCTURED_QUERY]
//
// Example fast rule (policy file):
//
//	rules:
//	  - condition: "query.lower.contains('cve')"
//	    capabilities: [LIVE_SEARCH, DOCUMENT_RETRIEVAL]
//	    rationale: security advisories need live data and product docs
//
// A Route produced by the fallback tier has FallbackUsed set and carries the
// heuristic's fixed confidence, never the model's score.
package router
