// Package resilience guards outbound calls to remote dependencies.
//
// Every vendor client wraps the same fallible remote call with the same
// machinery: bounded retries with exponential backoff, a circuit breaker to
// stop hammering a failing dependency, and a rate limiter to respect provider
// quotas. This package implements that machinery once, as composable
// primitives plus an Orchestrator that chains them around an arbitrary
// operation.
//
// # Primitives
//
//   - Retry: re-invokes an operation with capped exponential backoff and
//     jitter until it succeeds, exhausts attempts, or fails with an error the
//     Classifier reports as non-retryable. Server Retry-After hints
//     lower-bound the computed delay.
//
//   - CircuitBreaker: tracks consecutive failures and transitions between
//     Closed, Open, and HalfOpen, rejecting calls with ErrCircuitOpen while
//     Open.
//
//   - RateLimiter: dual-dimension refilling bucket (requests per minute plus
//     an optional token/resource dimension). Acquire suspends until capacity
//     is available rather than failing.
//
//   - Bulkhead: bounds concurrent in-flight calls to one dependency.
//
//   - Timeout: bounds the duration of a single attempt.
//
// # Composition
//
// The Orchestrator chains the configured layers in a fixed order, outermost
// first: rate limiter, bulkhead, retry, circuit breaker, timeout. The breaker
// sits inside the retry loop so every attempt takes its admit/reject
// decision; once the breaker opens, the retry sequence stops immediately.
// Any subset of layers may be enabled; a bare Orchestrator is a
// pass-through.
//
//	retry, _ := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  3,
//	    InitialDelay: 500 * time.Millisecond,
//	    Multiplier:   2.0,
//	})
//	breaker, _ := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    FailureThreshold: 5,
//	    OpenDuration:     30 * time.Second,
//	})
//	limiter, _ := resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	    RequestsPerMinute: 600,
//	    TokensPerMinute:   90000,
//	})
//
//	orch := resilience.NewOrchestrator(
//	    resilience.WithRetry(retry),
//	    resilience.WithCircuitBreaker(breaker),
//	    resilience.WithRateLimiter(limiter),
//	)
//
//	resp, err := resilience.Run(ctx, orch, func(ctx context.Context) (*Response, error) {
//	    return client.Complete(ctx, req)
//	})
//
// All components are safe for concurrent use by multiple goroutines sharing
// one instance, the common deployment being one Orchestrator per remote
// dependency. Cancellation of the caller's context aborts any pending
// backoff sleep or rate-limit wait; a cancelled call is not counted as a
// breaker failure and is never retried.
package resilience
