// Package handlers contains health checks and reusable middleware for the
// growth API.
//
// # Health Checks
//
// Required checks gate readiness. Optional checks only mark the service
// degraded:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0", engine.StandardVersion())
//	checker.AddCheck("postgres", handlers.PingCheck(db))
//	checker.AddCheck("redis", handlers.PingCheck(cache))
//	checker.AddOptionalCheck("ollama", handlers.PingCheck(ollamaClient))
//
// # Middleware
//
//	limiter := handlers.NewRateLimiter(120)
//	auth := handlers.NewAPIKeyAuth("X-API-Key", cfg.HTTP.APIKeys)
//
//	h := handlers.ChainHandler(
//	    mux,
//	    handlers.SecurityHeadersMiddleware,
//	    limiter.Middleware(clientIP),
//	    auth.Middleware,
//	)
package handlers
