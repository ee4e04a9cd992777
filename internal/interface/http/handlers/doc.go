// Package handlers contains the health checker and reusable middleware of
// the HTTP server.
//
// # Health Checks
//
// Components that report their own health are registered by name and run in
// parallel on every /health request:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddComponent(recordStore)   // "records"
//	checker.AddComponent(redisClient)   // "redis"
//	checker.SetProvider("gemini", geminiClient.Configured())
//
//	status := checker.Check(ctx)
//	if !status.Healthy {
//	    logger.Warn("health check failed", "message", status.Message)
//	}
//
// Optional checks are reported but never make the service unhealthy.
//
// # Middleware
//
// Chain composes middleware so the first one listed sees the request first:
//
//	h := handlers.ChainHandler(mux,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.RequestSizeLimitMiddleware(15<<20),
//	)
package handlers
