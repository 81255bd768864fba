// Package observe provides telemetry for guarded outbound calls.
//
// It bootstraps OpenTelemetry tracing and metrics providers plus a
// structured JSON logger, and exposes a Middleware that wraps a guarded
// call with a span, call metrics, resilience outcome counters, and a
// completion log line.
//
// # Usage
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "billing-api",
//	    Version:     "1.4.2",
//	    Tracing:     observe.TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.1},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
//
//	mw, err := observe.MiddlewareFromObserver(obs)
//	if err != nil {
//	    return err
//	}
//
//	meta := observe.CallMeta{Target: "openai", Operation: "chat.completions"}
//	guarded := mw.Wrap(meta, func(ctx context.Context) error {
//	    return orch.Execute(ctx, callProvider)
//	})
//	err = guarded(ctx)
//
// Exporters are selected by name (otlp, jaeger, prometheus, stdout, none)
// and configured through the standard OTEL_EXPORTER_* environment
// variables; see the exporters subpackage.
package observe
