// Package health exposes the runtime state of guard components as health
// checks.
//
// A Checker is any component that can report its health status. The Status
// type represents the health state: Healthy, Degraded, or Unhealthy. The
// package ships checkers for the resilience primitives: a circuit breaker
// check that maps breaker state to health, a rate limiter saturation check,
// and an active probe check that exercises a guarded call end to end.
//
// # Basic Usage
//
//	check := health.NewBreakerChecker("openai", breaker)
//
//	result := check.Check(ctx)
//	if result.Status == health.StatusUnhealthy {
//	    log.Printf("circuit open: %s", result.Message)
//	}
//
// # Aggregating Health Checks
//
// Use Aggregator to combine multiple health checks into a single composite
// check:
//
//	agg := health.NewAggregator()
//	agg.Register("openai-circuit", health.NewBreakerChecker("openai", breaker))
//	agg.Register("openai-ratelimit", health.NewLimiterChecker("openai", limiter, 0.9))
//
//	results := agg.CheckAll(ctx)
//	overall := agg.OverallStatus(results)
//
// # HTTP Endpoints
//
// The package provides HTTP handlers for common health check patterns:
//
//	// Liveness probe (for Kubernetes)
//	http.Handle("/healthz", health.LivenessHandler())
//
//	// Readiness probe with component checks
//	http.Handle("/readyz", health.ReadinessHandler(aggregator))
//
//	// Detailed health status
//	http.Handle("/health", health.DetailedHandler(aggregator))
package health
