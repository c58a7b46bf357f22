// Package capability defines the data model shared by the classifier, the
// orchestrator and every capability provider.
//
// A Route names the capabilities that apply to a question. The orchestrator
// turns each capability of a Route into a Call, hands it to the Provider
// registered for that Tag and collects a Result:
//
//	route := capability.NewRoute(
//	    []capability.Tag{capability.StructuredQuery, capability.DocumentRetrieval},
//	    0.9, "needs a count and a product description",
//	)
//	call := capability.Call{Tag: capability.StructuredQuery, Query: q, StartedAt: now, Deadline: now.Add(20 * time.Second)}
//	result := provider.Execute(ctx, call)
//	if result.Outcome == capability.OutcomeSuccess {
//	    fmt.Println(result.Content)
//	}
//
// Results keep the invariant that Content is set only on success and Error is
// set only on failure or timeout. Use the Success, Failure and TimedOut
// constructors rather than building Result values by hand.
package capability
