package observe

import (
	"context"
	"time"

	"github.com/jonwraymond/callguard/resilience"
)

// CallFunc is the signature for guarded call functions.
// This is the standard function signature that Middleware wraps.
type CallFunc func(ctx context.Context) error

// Middleware wraps call execution with observability (tracing, metrics, logging).
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe CallFunc.
//   - Context: Propagates context through tracing spans.
//   - Errors: Errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap wraps a CallFunc with tracing, metrics, and logging.
func (m *Middleware) Wrap(meta CallMeta, fn CallFunc) CallFunc {
	return func(ctx context.Context) error {
		// Start span
		ctx, span := m.tracer.StartSpan(ctx, meta)

		// Record start time
		start := time.Now()

		// Execute the function
		err := fn(ctx)

		// Calculate duration
		duration := time.Since(start)

		// End span (records error status if err != nil)
		m.tracer.EndSpan(span, err)

		// Record metrics
		m.metrics.RecordCall(ctx, meta, duration, err)
		if resilience.IsCircuitOpen(err) {
			m.metrics.RecordCircuitRejection(ctx, meta)
		}

		// Log the execution
		callLogger := m.logger.WithCall(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}

		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			callLogger.Error(ctx, "call execution failed", fields...)
		} else {
			callLogger.Info(ctx, "call execution completed", fields...)
		}

		return err
	}
}

// RetryHook returns a function suitable for resilience.RetryConfig.OnRetry.
// Each invocation records a retry attempt against the given call metadata
// and logs the upcoming backoff delay.
func (m *Middleware) RetryHook(meta CallMeta) func(attempt int, err error, delay time.Duration) {
	callLogger := m.logger.WithCall(meta)
	return func(attempt int, err error, delay time.Duration) {
		ctx := context.Background()
		m.metrics.RecordRetry(ctx, meta, attempt)
		callLogger.Warn(ctx, "call retry scheduled",
			Field{Key: "attempt", Value: attempt},
			Field{Key: "delay_ms", Value: float64(delay.Milliseconds())},
			Field{Key: "error", Value: err.Error()},
		)
	}
}

// RateLimitWaitHook returns a function that records rate limiter wait time
// for the given call metadata.
func (m *Middleware) RateLimitWaitHook(meta CallMeta) func(wait time.Duration) {
	return func(wait time.Duration) {
		m.metrics.RecordRateLimitWait(context.Background(), meta, wait)
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
// This is a convenience function for common use cases.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	tracer := newTracer(obs.Tracer())

	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(tracer, metrics, obs.Logger()), nil
}
