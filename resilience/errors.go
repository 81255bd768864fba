package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	// The wrapped operation was not invoked.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrRateLimitExceeded is returned by the non-blocking rate limit path
	// when no capacity is available. The blocking Acquire path waits
	// instead of returning this.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// IsCircuitOpen reports whether err is a circuit breaker rejection.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// ConfigError reports an invalid configuration value at construction time.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("resilience: invalid config: %s: %s", e.Field, e.Reason)
}

func configErr(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// isCallerAbandoned reports whether err means the caller gave up on the call
// rather than the remote failing. Abandoned calls are never retried and are
// not counted against the circuit breaker.
func isCallerAbandoned(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
