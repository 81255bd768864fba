package health

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/callguard/resilience"
)

// BreakerChecker reports the state of a circuit breaker as health. A closed
// circuit is healthy, a half-open circuit is degraded while probes are in
// flight, and an open circuit is unhealthy.
type BreakerChecker struct {
	name    string
	breaker *resilience.CircuitBreaker
}

// NewBreakerChecker creates a checker for the given circuit breaker.
func NewBreakerChecker(name string, breaker *resilience.CircuitBreaker) *BreakerChecker {
	return &BreakerChecker{name: name, breaker: breaker}
}

// Name returns the name of this checker.
func (c *BreakerChecker) Name() string {
	return c.name
}

// Check maps the breaker state to a health result.
func (c *BreakerChecker) Check(ctx context.Context) Result {
	stats := c.breaker.Stats()

	details := map[string]any{
		"state":                 stats.State.String(),
		"consecutive_failures":  stats.ConsecutiveFailures,
		"consecutive_successes": stats.ConsecutiveSuccesses,
	}
	if !stats.LastFailure.IsZero() {
		details["last_failure"] = stats.LastFailure.UTC().Format(time.RFC3339)
	}

	switch stats.State {
	case resilience.StateOpen:
		details["open_remaining"] = stats.OpenRemaining.String()
		return Unhealthy(
			fmt.Sprintf("circuit open, retry eligible in %s", stats.OpenRemaining),
			ErrCircuitOpen,
		).WithDetails(details)

	case resilience.StateHalfOpen:
		return Degraded("circuit half-open, probing recovery").WithDetails(details)

	default:
		return Healthy("circuit closed").WithDetails(details)
	}
}

// LimiterChecker reports rate limiter saturation as health. Saturation is
// throttling, not failure, so the checker degrades but never reports
// unhealthy.
type LimiterChecker struct {
	name      string
	limiter   *resilience.RateLimiter
	threshold float64
}

// NewLimiterChecker creates a checker that degrades once usage of either
// bucket reaches the given threshold in [0, 1]. A threshold outside that
// range falls back to 0.9.
func NewLimiterChecker(name string, limiter *resilience.RateLimiter, threshold float64) *LimiterChecker {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.9
	}
	return &LimiterChecker{name: name, limiter: limiter, threshold: threshold}
}

// Name returns the name of this checker.
func (c *LimiterChecker) Name() string {
	return c.name
}

// Check reports limiter saturation.
func (c *LimiterChecker) Check(ctx context.Context) Result {
	state := c.limiter.State()

	requestUsage := usage(state.RequestsAvailable, state.RequestsCapacity)
	tokenUsage := usage(state.TokensAvailable, state.TokensCapacity)

	details := map[string]any{
		"requests_available": state.RequestsAvailable,
		"requests_capacity":  state.RequestsCapacity,
		"request_usage":      requestUsage,
		"reset_in":           state.ResetIn.String(),
	}
	if state.TokensCapacity > 0 {
		details["tokens_available"] = state.TokensAvailable
		details["tokens_capacity"] = state.TokensCapacity
		details["token_usage"] = tokenUsage
	}

	worst := requestUsage
	if tokenUsage > worst {
		worst = tokenUsage
	}

	if worst >= c.threshold {
		return Degraded(
			fmt.Sprintf("rate limiter saturated: %.0f%% used", worst*100),
		).WithDetails(details)
	}

	return Healthy(
		fmt.Sprintf("rate limiter ok: %.0f%% used", worst*100),
	).WithDetails(details)
}

func usage(available, capacity float64) float64 {
	if capacity <= 0 {
		return 0
	}
	used := (capacity - available) / capacity
	if used < 0 {
		return 0
	}
	if used > 1 {
		// Token debt can push availability negative.
		return 1
	}
	return used
}

// ProbeChecker actively exercises a guarded call. The probe runs through the
// orchestrator so an open circuit rejects it immediately instead of hitting
// the upstream.
type ProbeChecker struct {
	name  string
	orch  *resilience.Orchestrator
	probe func(ctx context.Context) error
}

// NewProbeChecker creates a checker that runs probe through orch on every
// Check.
func NewProbeChecker(name string, orch *resilience.Orchestrator, probe func(ctx context.Context) error) *ProbeChecker {
	return &ProbeChecker{name: name, orch: orch, probe: probe}
}

// Name returns the name of this checker.
func (c *ProbeChecker) Name() string {
	return c.name
}

// Check runs the probe.
func (c *ProbeChecker) Check(ctx context.Context) Result {
	err := c.orch.Execute(ctx, c.probe)
	if err == nil {
		return Healthy("probe succeeded")
	}

	if resilience.IsCircuitOpen(err) {
		return Unhealthy("probe rejected, circuit open", err)
	}
	return Unhealthy("probe failed", err)
}
