// Package llm wraps the hosted language model behind the narrow Completer
// interface used by the classifier, the providers and the synthesis step.
//
// Two clients are available:
//   - adapters: the shared dago-adapters LLM client (default)
//   - anthropic: the Anthropic SDK used directly
//
// Example usage:
//
//	client, err := llm.New(llm.Options{Client: "adapters", Provider: "anthropic", APIKey: key, Model: model}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := client.Complete(ctx, prompt)
package llm
