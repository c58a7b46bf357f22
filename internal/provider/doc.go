/*
Package provider holds the shared execution harness for capability providers.

A provider body is a Func that returns an *Answer or an error. Run wraps it
so that the capability.Provider contract always holds:

  - the call returns by its deadline, as TimedOut when the body overruns
  - a *guardrail.DeniedError becomes a GUARDRAIL_DENIED failure carrying only the rule
  - a *provider.Error contributes its generic category, other errors become backend_error
  - panics are recovered and reported as internal_error
  - an empty answer is a failure, never a success without content

Backends live in subpackages: sqlquery (STRUCTURED_QUERY), docs
(DOCUMENT_RETRIEVAL) and websearch (LIVE_SEARCH).

Example:

	func (p *Provider) Execute(ctx context.Context, call capability.Call) capability.Result {
		return provider.Run(ctx, call, p.logger, p.answer)
	}
*/
package provider
