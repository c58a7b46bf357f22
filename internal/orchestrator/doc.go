/*
Package orchestrator dispatches a routed query to its capability providers and
assembles one answer.

Every request walks the same states, logged at debug level with the request id:

	RECEIVED -> CLASSIFIED -> SINGLE_DISPATCH | MULTI_DISPATCH | SKIPPED -> AGGREGATING -> RESPONDED

A NONE route skips dispatch and returns NotApplicableMessage. Otherwise one
goroutine per capability runs the provider under a deadline derived from the
shared budget. The fan-in waits for every call or the budget, whichever comes
first; calls still pending at the budget are recorded as timed out and their
late results are dropped.

Aggregation rules:

  - single capability: the content is the answer, a failure is explained by kind
  - all succeeded: the Synthesizer merges the contents
  - some failed: the surviving contents are used and a note names the missing sources (degraded)
  - all failed: AllFailedMessage (degraded)

Per-provider results and sources always follow the route's capability order,
whatever order the calls finish in. Sources are deduplicated by kind and id.

Usage:

	orch, err := orchestrator.New(map[capability.Tag]capability.Provider{
		capability.StructuredQuery:   sqlProvider,
		capability.DocumentRetrieval: docsProvider,
	}, orchestrator.NewLLMSynthesizer(llmClient), orchestrator.Config{
		Budget: 30 * time.Second,
	}, logger)

	result := orch.Handle(ctx, orchestrator.Request{ID: id, Query: q}, route)
*/
package orchestrator
