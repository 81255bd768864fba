package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is rejecting all requests.
	StateOpen
	// StateHalfOpen means the circuit is probing for recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit. Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of consecutive successes in
	// half-open that closes the circuit. Default: 2
	SuccessThreshold int

	// OpenDuration is how long the circuit stays open before admitting
	// probes. Default: 30 seconds
	OpenDuration time.Duration

	// HalfOpenMaxRequests is the number of concurrent in-flight probes
	// allowed while half-open. Default: 1
	HalfOpenMaxRequests int

	// Clock is the time source. Default: SystemClock
	Clock Clock

	// IsFailure determines whether an error counts against the circuit.
	// Default: every non-nil error except caller cancellation. Retryability
	// is irrelevant here: a non-retryable 400 still counts.
	IsFailure func(err error) bool

	// OnStateChange is called after each state transition while the
	// breaker's lock is held; it must not call back into the breaker.
	OnStateChange func(from, to State)
}

func (c *CircuitBreakerConfig) normalize() error {
	if c.FailureThreshold < 0 {
		return configErr("FailureThreshold", "must be >= 1")
	}
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold < 0 {
		return configErr("SuccessThreshold", "must be >= 1")
	}
	if c.SuccessThreshold == 0 {
		c.SuccessThreshold = 2
	}
	if c.OpenDuration < 0 {
		return configErr("OpenDuration", "must not be negative")
	}
	if c.OpenDuration == 0 {
		c.OpenDuration = 30 * time.Second
	}
	if c.HalfOpenMaxRequests < 0 {
		return configErr("HalfOpenMaxRequests", "must be >= 1")
	}
	if c.HalfOpenMaxRequests == 0 {
		c.HalfOpenMaxRequests = 1
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool {
			return err != nil && !isCallerAbandoned(err)
		}
	}
	return nil
}

// CircuitBreaker implements the circuit breaker pattern. It owns all of its
// counters; state changes happen only through Execute and Reset. Safe for
// concurrent use.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu             sync.Mutex
	state          State
	failures       int
	successes      int
	halfOpenActive int
	lastFailure    time.Time
	openedAt       time.Time
}

// CircuitBreakerStats is a read-only snapshot of breaker state.
type CircuitBreakerStats struct {
	State                State
	ConsecutiveFailures  int
	ConsecutiveSuccesses int
	LastFailure          time.Time

	// OpenRemaining is the time until half-open eligibility. Only
	// meaningful while Open; zero otherwise.
	OpenRemaining time.Duration
}

// NewCircuitBreaker creates a circuit breaker in the closed state.
func NewCircuitBreaker(config CircuitBreakerConfig) (*CircuitBreaker, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}, nil
}

// Execute runs op through the circuit breaker. While open, op is not invoked
// and ErrCircuitOpen is returned. Whether op's error counts as a failure is
// decided by the IsFailure predicate, not by retryability.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	admitted, err := cb.admit()
	if err != nil {
		return err
	}

	opErr := op(ctx)
	cb.record(admitted, opErr)
	return opErr
}

// State returns the current state, applying the lazy open-to-half-open
// transition if OpenDuration has elapsed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// Stats returns a snapshot of the breaker's counters and state.
func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := CircuitBreakerStats{
		State:                cb.currentStateLocked(),
		ConsecutiveFailures:  cb.failures,
		ConsecutiveSuccesses: cb.successes,
		LastFailure:          cb.lastFailure,
	}
	if stats.State == StateOpen {
		remaining := cb.config.OpenDuration - cb.config.Clock.Now().Sub(cb.openedAt)
		if remaining > 0 {
			stats.OpenRemaining = remaining
		}
	}
	return stats
}

// Reset returns the circuit to closed with zeroed counters. This is an
// operational escape hatch; normal recovery goes through half-open.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	oldState := cb.state
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenActive = 0

	if oldState != StateClosed && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, StateClosed)
	}
}

// admit decides whether a call may proceed and returns the state it was
// admitted under.
func (cb *CircuitBreaker) admit() (State, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.currentStateLocked()

	switch state {
	case StateOpen:
		return state, ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenActive >= cb.config.HalfOpenMaxRequests {
			return state, ErrCircuitOpen
		}
		cb.halfOpenActive++
	}

	return state, nil
}

// record applies a call outcome. Calls whose errors are neither success nor
// failure (caller abandonment by default) leave all counters untouched.
func (cb *CircuitBreaker) record(admitted State, err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if admitted == StateHalfOpen && cb.halfOpenActive > 0 {
		cb.halfOpenActive--
	}

	success := err == nil
	failure := err != nil && cb.config.IsFailure(err)
	if !success && !failure {
		return
	}

	// An outcome only counts in the state its call was admitted under. A
	// slow call admitted while closed can land after the circuit has opened
	// and moved to half-open; that result is stale, not a probe outcome,
	// and must not restart the open timer or close the circuit.
	if cb.state != admitted {
		return
	}

	oldState := cb.state

	switch admitted {
	case StateClosed:
		if failure {
			cb.failures++
			cb.lastFailure = cb.config.Clock.Now()
			if cb.failures >= cb.config.FailureThreshold {
				cb.setStateLocked(StateOpen)
			}
		} else {
			cb.failures = 0
		}

	case StateHalfOpen:
		if failure {
			// A single failed probe is enough to reopen.
			cb.lastFailure = cb.config.Clock.Now()
			cb.setStateLocked(StateOpen)
		} else {
			cb.successes++
			if cb.successes >= cb.config.SuccessThreshold {
				cb.setStateLocked(StateClosed)
				cb.failures = 0
				cb.successes = 0
			}
		}
	}

	if oldState != cb.state && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(oldState, cb.state)
	}
}

// currentStateLocked applies the lazy Open -> HalfOpen transition. The check
// happens on demand at the top of every call rather than via a background
// timer, so behavior is fully driven by the injected clock.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && cb.config.Clock.Now().Sub(cb.openedAt) >= cb.config.OpenDuration {
		cb.state = StateHalfOpen
		cb.halfOpenActive = 0
		cb.successes = 0
		if cb.config.OnStateChange != nil {
			cb.config.OnStateChange(StateOpen, StateHalfOpen)
		}
	}
	return cb.state
}

func (cb *CircuitBreaker) setStateLocked(state State) {
	cb.state = state
	switch state {
	case StateOpen:
		cb.openedAt = cb.config.Clock.Now()
		cb.halfOpenActive = 0
	case StateHalfOpen:
		cb.halfOpenActive = 0
		cb.successes = 0
	}
}
