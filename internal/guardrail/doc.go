// Package guardrail validates machine-generated SQL before it reaches the
// relational store and rejects anything beyond read-only retrieval.
//
// Validation is a pure function of the candidate text and the Policy. The
// checks run in a fixed order and stop at the first violation, so every
// denial names exactly one rule:
//
//  1. strip comments and collapse whitespace outside literals
//  2. reject batches (more than one non-empty statement)
//  3. require a read verb (SELECT, or WITH without write verbs or SELECT INTO)
//  4. reject denylisted identifiers and procedure prefixes (xp_, sp_, ...)
//
// Example usage:
//
//	v := guardrail.NewValidator(guardrail.DefaultPolicy())
//
//	verdict := v.Validate("SELECT count(*) FROM team_members")
//	// verdict.Allowed == true
//
//	verdict = v.Validate("SELECT 1; DROP TABLE x")
//	// verdict.Allowed == false, verdict.MatchedRule == "multiple_statements"
//
// Callers execute Verdict.NormalizedQuery, never the raw candidate text, so
// that the statement that runs is exactly the statement that was checked.
package guardrail
