// Package worker implements the assistant worker lifecycle and Redis Streams integration.
//
// The worker reads questions from a Redis stream consumer group, answers them
// through the assistant service and publishes the answers to a result stream.
// A question is a stream entry whose "data" field holds
//
//	{"request_id": "r-1", "session_id": "s-1", "query": "How many developers are there?"}
//
// or the same three keys as flat fields. Answers carry the final message, the
// route, the degraded flag, the merged sources and a per-provider status list.
// Questions that cannot be parsed or answered are reported on
// "<result stream>.errors". Every message is acknowledged exactly once.
//
// Example usage:
//
//	w := worker.NewWorker(cfg, redisClient, service, logger)
//	if err := w.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop(ctx)
//
// Health checks are provided via a separate HTTP server:
//
//	healthServer := worker.NewHealthServer(8082, logger,
//	    worker.RedisCheck(redisClient),
//	    worker.PingCheck("sqlite", store),
//	)
//	healthServer.Start()
//	defer healthServer.Stop()
package worker
