// Package cel provides a CEL (Common Expression Language) evaluator for the
// operator-defined fast routing rules.
//
// Rules are evaluated against a single map variable, query, built with
// QueryVars:
//
//	query.text     original question
//	query.lower    lower-cased question
//	query.words    number of whitespace-separated words
//	query.context  recent conversation turns (list of strings)
//
// Example usage:
//
//	evaluator := cel.NewEvaluator()
//	vars := cel.QueryVars("Latest CVE news for our scanner", nil)
//
//	matched, err := evaluator.Matches(ctx, "query.lower.contains('cve')", vars)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	// matched == true
//
// Compiled programs are cached per expression, so repeated evaluation of the
// same rule set only pays the compile cost once.
package cel
