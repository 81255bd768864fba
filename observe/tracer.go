package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// CallMeta contains metadata about a guarded call for telemetry purposes.
type CallMeta struct {
	Target    string   // Upstream target (e.g. service or vendor name, required)
	Operation string   // Operation on the target (e.g. "chat.completions", optional)
	Vendor    string   // Vendor or provider family (optional)
	Model     string   // Model or resource identifier (optional)
	Tags      []string // Free-form tags (optional)
}

// SpanName returns the deterministic span name for this call.
// Format: call.exec.<target>.<operation> or call.exec.<target>
func (m CallMeta) SpanName() string {
	if m.Operation != "" {
		return "call.exec." + m.Target + "." + m.Operation
	}
	return "call.exec." + m.Target
}

// Validate checks that required metadata is present.
func (m CallMeta) Validate() error {
	if m.Target == "" {
		return ErrMissingCallTarget
	}
	return nil
}

// CallID returns the fully qualified call identifier.
func (m CallMeta) CallID() string {
	if m.Operation != "" {
		return m.Target + "." + m.Operation
	}
	return m.Target
}

// Tracer wraps OpenTelemetry tracing with call-specific span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: StartSpan must honor cancellation/deadlines and return ctx.Err() when canceled.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for call execution.
	StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// tracerImpl is the concrete implementation of Tracer.
type tracerImpl struct {
	tracer trace.Tracer
}

// newTracer creates a new Tracer wrapping the given OpenTelemetry tracer.
func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with call metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	spanName := meta.SpanName()

	attrs := []attribute.KeyValue{
		attribute.String("call.id", meta.CallID()),
		attribute.String("call.target", meta.Target),
		attribute.Bool("call.error", false), // Will be updated in EndSpan if error
	}

	if meta.Operation != "" {
		attrs = append(attrs, attribute.String("call.operation", meta.Operation))
	}
	if meta.Vendor != "" {
		attrs = append(attrs, attribute.String("call.vendor", meta.Vendor))
	}
	if meta.Model != "" {
		attrs = append(attrs, attribute.String("call.model", meta.Model))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("call.tags", meta.Tags))
	}

	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)

	return ctx, span
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("call.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// noopTracer is a tracer that does nothing.
type noopTracer struct {
	noop trace.Tracer
}

// newNoopTracer creates a no-op tracer.
func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta CallMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
