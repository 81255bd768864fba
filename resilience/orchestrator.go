package resilience

import (
	"context"
	"time"
)

// Orchestrator composes the resilience layers around a single operation per
// call. Layers are optional; any subset may be enabled, including none, in
// which case Execute is a pass-through.
//
// The chain, outermost first, is: rate limiter, bulkhead, retry, circuit
// breaker, timeout. Rate limiting gates admission before any breaker or
// retry budget is spent; the breaker gates every individual retry attempt,
// so a logical call can be cut off mid-sequence once the circuit opens; the
// timeout bounds each attempt.
type Orchestrator struct {
	retry       *Retry
	breaker     *CircuitBreaker
	rateLimiter *RateLimiter
	bulkhead    *Bulkhead
	timeout     *Timeout
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// NewOrchestrator creates an orchestrator from pre-built components.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithRetry adds retry logic to the orchestrator.
func WithRetry(r *Retry) OrchestratorOption {
	return func(o *Orchestrator) {
		o.retry = r
	}
}

// WithCircuitBreaker adds a circuit breaker to the orchestrator.
func WithCircuitBreaker(cb *CircuitBreaker) OrchestratorOption {
	return func(o *Orchestrator) {
		o.breaker = cb
	}
}

// WithRateLimiter adds rate limiting to the orchestrator.
func WithRateLimiter(rl *RateLimiter) OrchestratorOption {
	return func(o *Orchestrator) {
		o.rateLimiter = rl
	}
}

// WithBulkhead adds concurrency isolation to the orchestrator.
func WithBulkhead(b *Bulkhead) OrchestratorOption {
	return func(o *Orchestrator) {
		o.bulkhead = b
	}
}

// WithTimeout adds a per-attempt timeout to the orchestrator.
func WithTimeout(t *Timeout) OrchestratorOption {
	return func(o *Orchestrator) {
		o.timeout = t
	}
}

// WithTimeoutDuration adds a per-attempt timeout with the given duration.
// A non-positive duration uses the default.
func WithTimeoutDuration(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d < 0 {
			d = 0
		}
		t, err := NewTimeout(TimeoutConfig{Timeout: d})
		if err != nil {
			return
		}
		o.timeout = t
	}
}

// OrchestratorConfig builds an orchestrator from sub-configs. A nil
// sub-config disables that layer.
type OrchestratorConfig struct {
	Retry          *RetryConfig
	CircuitBreaker *CircuitBreakerConfig
	RateLimit      *RateLimiterConfig
	Bulkhead       *BulkheadConfig
	Timeout        *TimeoutConfig
}

// NewOrchestratorFromConfig constructs all enabled layers, failing fast on
// any invalid sub-config.
func NewOrchestratorFromConfig(config OrchestratorConfig) (*Orchestrator, error) {
	o := &Orchestrator{}

	if config.Retry != nil {
		r, err := NewRetry(*config.Retry)
		if err != nil {
			return nil, err
		}
		o.retry = r
	}
	if config.CircuitBreaker != nil {
		cb, err := NewCircuitBreaker(*config.CircuitBreaker)
		if err != nil {
			return nil, err
		}
		o.breaker = cb
	}
	if config.RateLimit != nil {
		rl, err := NewRateLimiter(*config.RateLimit)
		if err != nil {
			return nil, err
		}
		o.rateLimiter = rl
	}
	if config.Bulkhead != nil {
		b, err := NewBulkhead(*config.Bulkhead)
		if err != nil {
			return nil, err
		}
		o.bulkhead = b
	}
	if config.Timeout != nil {
		t, err := NewTimeout(*config.Timeout)
		if err != nil {
			return nil, err
		}
		o.timeout = t
	}

	return o, nil
}

// Execute runs op through all configured layers with the default rate-limit
// cost.
func (o *Orchestrator) Execute(ctx context.Context, op func(context.Context) error) error {
	return o.ExecuteWithCost(ctx, 0, op)
}

// ExecuteWithCost runs op through all configured layers, charging the given
// estimated token cost against the rate limiter's secondary dimension.
// Actual usage learned afterwards can be reported via
// RateLimiter().ConsumeTokens.
func (o *Orchestrator) ExecuteWithCost(ctx context.Context, tokenCost int64, op func(context.Context) error) error {
	// Build the execution chain from inside out.
	execute := op

	if o.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return o.timeout.Execute(ctx, inner)
		}
	}

	// The breaker wraps each attempt, not the whole retry sequence, so
	// an opening circuit stops further attempts immediately.
	if o.breaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return o.breaker.Execute(ctx, inner)
		}
	}

	if o.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return o.retry.Execute(ctx, inner)
		}
	}

	if o.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return o.bulkhead.Execute(ctx, inner)
		}
	}

	if o.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return o.rateLimiter.ExecuteWithCost(ctx, tokenCost, inner)
		}
	}

	return execute(ctx)
}

// CircuitBreaker returns the orchestrator's breaker for observability, or
// nil when that layer is disabled.
func (o *Orchestrator) CircuitBreaker() *CircuitBreaker {
	return o.breaker
}

// RateLimiter returns the orchestrator's rate limiter, or nil when that
// layer is disabled.
func (o *Orchestrator) RateLimiter() *RateLimiter {
	return o.rateLimiter
}

// Bulkhead returns the orchestrator's bulkhead, or nil when that layer is
// disabled.
func (o *Orchestrator) Bulkhead() *Bulkhead {
	return o.bulkhead
}

// Run executes fn through the orchestrator and returns its result. This is
// a convenience wrapper for operations that return a value; the orchestrator
// itself never inspects the result.
func Run[T any](ctx context.Context, o *Orchestrator, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := o.Execute(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}

// RunWithCost is Run with an estimated rate-limit token cost.
func RunWithCost[T any](ctx context.Context, o *Orchestrator, tokenCost int64, fn func(context.Context) (T, error)) (T, error) {
	var result T
	err := o.ExecuteWithCost(ctx, tokenCost, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	return result, err
}
