// Package template renders the Handlebars prompts sent to the language model
// by the classifier, the capability providers and the synthesis step.
//
// Prompts interpolate user text with triple braces ({{{query}}}) so that the
// model sees the question verbatim rather than HTML-escaped.
//
// Example usage:
//
//	engine := template.NewEngine()
//
//	prompt, err := engine.Render(
//	    "Question: {{{query}}}\n{{#each turns}}{{inc @index}}. {{{this}}}\n{{/each}}",
//	    map[string]interface{}{
//	        "query": "How many developers are on the team?",
//	        "turns": []string{"hi", "hello, how can I help?"},
//	    },
//	)
//
// Rendered prompts are tidied: the blank lines left by {{#if}} and {{#each}}
// blocks collapse to a single empty line and the result is trimmed.
//
// Built-in helpers:
//   - default - Return default value if first arg is empty
//   - inc - One-based numbering for @index
//   - truncate - Cut a string to n runes
//   - join - Join array elements with separator
package template
