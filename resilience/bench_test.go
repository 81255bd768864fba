package resilience

import (
	"context"
	"testing"
	"time"
)

// BenchmarkCircuitBreaker_Execute_Closed measures happy path execution.
func BenchmarkCircuitBreaker_Execute_Closed(b *testing.B) {
	cb, err := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 100,
		OpenDuration:     time.Minute,
	})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkCircuitBreaker_Stats measures snapshot retrieval.
func BenchmarkCircuitBreaker_Stats(b *testing.B) {
	cb, err := NewCircuitBreaker(CircuitBreakerConfig{})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cb.Stats()
	}
}

// BenchmarkRetry_SuccessFirstAttempt measures retry overhead when no retry
// is needed.
func BenchmarkRetry_SuccessFirstAttempt(b *testing.B) {
	r, err := NewRetry(RetryConfig{MaxAttempts: 3})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkRateLimiter_Allow measures the non-blocking acquisition path.
func BenchmarkRateLimiter_Allow(b *testing.B) {
	rl, err := NewRateLimiter(RateLimiterConfig{RequestsPerMinute: 1 << 30})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = rl.Allow()
	}
}

// BenchmarkOrchestrator_FullChain measures a pass through every layer.
func BenchmarkOrchestrator_FullChain(b *testing.B) {
	o, err := NewOrchestratorFromConfig(OrchestratorConfig{
		Retry:          &RetryConfig{MaxAttempts: 3},
		CircuitBreaker: &CircuitBreakerConfig{FailureThreshold: 100},
		RateLimit:      &RateLimiterConfig{RequestsPerMinute: 1 << 30},
		Bulkhead:       &BulkheadConfig{MaxConcurrent: 1 << 20},
	})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = o.Execute(ctx, func(ctx context.Context) error {
			return nil
		})
	}
}

// BenchmarkOrchestrator_Concurrent measures parallel execution through the
// shared instance.
func BenchmarkOrchestrator_Concurrent(b *testing.B) {
	o, err := NewOrchestratorFromConfig(OrchestratorConfig{
		CircuitBreaker: &CircuitBreakerConfig{FailureThreshold: 100},
		RateLimit:      &RateLimiterConfig{RequestsPerMinute: 1 << 30},
	})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		ctx := context.Background()
		for pb.Next() {
			_ = o.Execute(ctx, func(ctx context.Context) error {
				return nil
			})
		}
	})
}
