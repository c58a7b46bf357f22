/*
Package sqlquery implements the STRUCTURED_QUERY capability.

For each call the provider renders the database schema into a generation
prompt, extracts the SQL from the model reply and hands it to the guardrail
validator. Only the validator's normalized query is executed, with a row cap,
on the store's query_only handle. The rows are then turned into a short
answer by the model, or rendered as plain text when that second call fails.

A denial is returned as a *guardrail.DeniedError, which provider.Run reports
as GUARDRAIL_DENIED with the rule name only.
*/
package sqlquery
