/*
Package websearch implements the LIVE_SEARCH capability on a Tavily-compatible
search API.

Queries phrased as news ("latest", "recent", "today", ...) are sent with
topic=news and a seven day window. Requests are throttled by a token bucket
from golang.org/x/time/rate. Up to max_results hits are summarized by the
model; when that call fails and the API returned its own answer, that answer
is used instead.
*/
package websearch
