package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonwraymond/callguard/resilience"
)

// stubClock is a frozen resilience.Clock for deterministic checks.
type stubClock struct {
	now time.Time
}

func (c *stubClock) Now() time.Time {
	return c.now
}

func (c *stubClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return ctx.Err()
}

func (c *stubClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newStubClock() *stubClock {
	return &stubClock{now: time.Unix(1700000000, 0)}
}

func failingOp(ctx context.Context) error {
	return errors.New("upstream down")
}

func TestBreakerChecker_Closed(t *testing.T) {
	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})
	if err != nil {
		t.Fatalf("NewCircuitBreaker failed: %v", err)
	}

	checker := NewBreakerChecker("openai-circuit", cb)
	if checker.Name() != "openai-circuit" {
		t.Errorf("Name() = %q, want 'openai-circuit'", checker.Name())
	}

	r := checker.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", r.Status)
	}
	if r.Details["state"] != "closed" {
		t.Errorf("Details[state] = %v, want 'closed'", r.Details["state"])
	}
}

func TestBreakerChecker_Open(t *testing.T) {
	clock := newStubClock()
	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 2,
		OpenDuration:     30 * time.Second,
		Clock:            clock,
	})
	if err != nil {
		t.Fatalf("NewCircuitBreaker failed: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, failingOp)
	}

	checker := NewBreakerChecker("circuit", cb)
	r := checker.Check(ctx)

	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", r.Status)
	}
	if !errors.Is(r.Error, ErrCircuitOpen) {
		t.Errorf("Error = %v, want ErrCircuitOpen", r.Error)
	}
	if r.Details["state"] != "open" {
		t.Errorf("Details[state] = %v, want 'open'", r.Details["state"])
	}
	if r.Details["open_remaining"] != "30s" {
		t.Errorf("Details[open_remaining] = %v, want '30s'", r.Details["open_remaining"])
	}
}

func TestBreakerChecker_HalfOpen(t *testing.T) {
	clock := newStubClock()
	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenDuration:     10 * time.Second,
		Clock:            clock,
	})
	if err != nil {
		t.Fatalf("NewCircuitBreaker failed: %v", err)
	}

	ctx := context.Background()
	_ = cb.Execute(ctx, failingOp)

	clock.Advance(10 * time.Second)

	checker := NewBreakerChecker("circuit", cb)
	r := checker.Check(ctx)

	if r.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", r.Status)
	}
	if r.Details["state"] != "half-open" {
		t.Errorf("Details[state] = %v, want 'half-open'", r.Details["state"])
	}
}

func TestLimiterChecker_Healthy(t *testing.T) {
	rl, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		RequestsPerMinute: 60,
		Clock:             newStubClock(),
	})
	if err != nil {
		t.Fatalf("NewRateLimiter failed: %v", err)
	}

	checker := NewLimiterChecker("ratelimit", rl, 0.9)
	r := checker.Check(context.Background())

	if r.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", r.Status)
	}
}

func TestLimiterChecker_Saturated(t *testing.T) {
	rl, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		RequestsPerMinute: 10,
		Clock:             newStubClock(),
	})
	if err != nil {
		t.Fatalf("NewRateLimiter failed: %v", err)
	}

	// Drain 9 of 10 requests: 90% usage hits the threshold.
	for i := 0; i < 9; i++ {
		if !rl.Allow() {
			t.Fatalf("Allow() = false on request %d", i)
		}
	}

	checker := NewLimiterChecker("ratelimit", rl, 0.9)
	r := checker.Check(context.Background())

	if r.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", r.Status)
	}
}

func TestLimiterChecker_TokenDebtSaturates(t *testing.T) {
	rl, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{
		RequestsPerMinute: 1000,
		TokensPerMinute:   100,
		Clock:             newStubClock(),
	})
	if err != nil {
		t.Fatalf("NewRateLimiter failed: %v", err)
	}

	// Post-hoc usage drives the token balance negative.
	rl.ConsumeTokens(150)

	checker := NewLimiterChecker("ratelimit", rl, 0.9)
	r := checker.Check(context.Background())

	if r.Status != StatusDegraded {
		t.Errorf("Status = %v, want StatusDegraded", r.Status)
	}
	if r.Details["token_usage"] != 1.0 {
		t.Errorf("Details[token_usage] = %v, want 1.0 (clamped)", r.Details["token_usage"])
	}
}

func TestLimiterChecker_ThresholdDefault(t *testing.T) {
	rl, err := resilience.NewRateLimiter(resilience.RateLimiterConfig{Clock: newStubClock()})
	if err != nil {
		t.Fatalf("NewRateLimiter failed: %v", err)
	}

	// Out-of-range thresholds fall back to 0.9
	checker := NewLimiterChecker("ratelimit", rl, 1.5)
	if checker.threshold != 0.9 {
		t.Errorf("threshold = %v, want 0.9", checker.threshold)
	}
}

func TestProbeChecker_Healthy(t *testing.T) {
	orch := resilience.NewOrchestrator()

	checker := NewProbeChecker("probe", orch, func(ctx context.Context) error {
		return nil
	})

	r := checker.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Errorf("Status = %v, want StatusHealthy", r.Status)
	}
}

func TestProbeChecker_Failure(t *testing.T) {
	orch := resilience.NewOrchestrator()

	cause := errors.New("probe target down")
	checker := NewProbeChecker("probe", orch, func(ctx context.Context) error {
		return cause
	})

	r := checker.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", r.Status)
	}
	if !errors.Is(r.Error, cause) {
		t.Errorf("Error = %v, want %v", r.Error, cause)
	}
}

func TestProbeChecker_OpenCircuitSkipsProbe(t *testing.T) {
	cb, err := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 1,
		OpenDuration:     time.Hour,
		Clock:            newStubClock(),
	})
	if err != nil {
		t.Fatalf("NewCircuitBreaker failed: %v", err)
	}
	orch := resilience.NewOrchestrator(resilience.WithCircuitBreaker(cb))

	// Trip the breaker.
	_ = orch.Execute(context.Background(), failingOp)

	probed := false
	checker := NewProbeChecker("probe", orch, func(ctx context.Context) error {
		probed = true
		return nil
	})

	r := checker.Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want StatusUnhealthy", r.Status)
	}
	if !resilience.IsCircuitOpen(r.Error) {
		t.Errorf("Error = %v, want circuit open", r.Error)
	}
	if probed {
		t.Error("probe should not run while the circuit is open")
	}
}
