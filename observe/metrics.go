package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records execution metrics for guarded calls.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: must honor cancellation/deadlines and return quickly.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordCall records a call execution with duration and error status.
	RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error)

	// RecordRetry records a single retry attempt for a call.
	RecordRetry(ctx context.Context, meta CallMeta, attempt int)

	// RecordCircuitRejection records a call rejected by an open circuit.
	RecordCircuitRejection(ctx context.Context, meta CallMeta)

	// RecordRateLimitWait records time spent waiting on the rate limiter.
	RecordRateLimitWait(ctx context.Context, meta CallMeta, wait time.Duration)
}

// metricsImpl is the concrete implementation of Metrics.
type metricsImpl struct {
	meter          metric.Meter
	totalCount     metric.Int64Counter
	errorCount     metric.Int64Counter
	durationHist   metric.Float64Histogram
	retryCount     metric.Int64Counter
	circuitRejects metric.Int64Counter
	rateLimitWait  metric.Float64Histogram
}

// newMetrics creates a new Metrics instance with the given meter.
func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"call.exec.total",
		metric.WithDescription("Total number of call executions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"call.exec.errors",
		metric.WithDescription("Total number of call execution errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"call.exec.duration_ms",
		metric.WithDescription("Call execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"resilience.retries",
		metric.WithDescription("Total number of retry attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	circuitRejects, err := meter.Int64Counter(
		"resilience.circuit_rejections",
		metric.WithDescription("Total number of calls rejected by an open circuit"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	rateLimitWait, err := meter.Float64Histogram(
		"resilience.ratelimit_wait_ms",
		metric.WithDescription("Time spent waiting on the rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		meter:          meter,
		totalCount:     totalCount,
		errorCount:     errorCount,
		durationHist:   durationHist,
		retryCount:     retryCount,
		circuitRejects: circuitRejects,
		rateLimitWait:  rateLimitWait,
	}, nil
}

func callAttrs(meta CallMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.target", meta.Target),
	}
	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("call.operation", meta.Operation))
	}
	return metric.WithAttributes(attrs...)
}

// RecordCall records metrics for a call execution.
func (m *metricsImpl) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
	opt := callAttrs(meta)

	// Always increment total counter
	m.totalCount.Add(ctx, 1, opt)

	// Increment error counter on failure
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	// Record duration in milliseconds
	durationMs := float64(duration.Milliseconds())
	m.durationHist.Record(ctx, durationMs, opt)
}

// RecordRetry records a single retry attempt.
func (m *metricsImpl) RecordRetry(ctx context.Context, meta CallMeta, attempt int) {
	m.retryCount.Add(ctx, 1, callAttrs(meta))
}

// RecordCircuitRejection records a call rejected by an open circuit.
func (m *metricsImpl) RecordCircuitRejection(ctx context.Context, meta CallMeta) {
	m.circuitRejects.Add(ctx, 1, callAttrs(meta))
}

// RecordRateLimitWait records time spent waiting on the rate limiter.
func (m *metricsImpl) RecordRateLimitWait(ctx context.Context, meta CallMeta, wait time.Duration) {
	m.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), callAttrs(meta))
}

// noopMetrics is a metrics implementation that does nothing.
type noopMetrics struct{}

func (m *noopMetrics) RecordCall(ctx context.Context, meta CallMeta, duration time.Duration, err error) {
}
func (m *noopMetrics) RecordRetry(ctx context.Context, meta CallMeta, attempt int)      {}
func (m *noopMetrics) RecordCircuitRejection(ctx context.Context, meta CallMeta)        {}
func (m *noopMetrics) RecordRateLimitWait(ctx context.Context, meta CallMeta, wait time.Duration) {
}
