/*
Package assistant is the request layer that ties the classifier, the
orchestrator and the session store together.

Ask loads the newest turns of the session, classifies the query with them as
context, hands the route to the orchestrator and finally appends the user and
assistant turns. History failures are logged and never fail a request.
*/
package assistant
