package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts, including the first.
	// 1 means no retries. Default: 3
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps the delay between attempts, including any
	// server-provided Retry-After hint. Default: 30s
	MaxDelay time.Duration

	// Multiplier grows the delay exponentially per attempt. Must be >= 1.
	// Default: 2.0
	Multiplier float64

	// JitterFactor adds uniform random noise in [0, delay*JitterFactor)
	// on top of the capped delay. Must be in [0, 1]. 0 yields the pure
	// exponential sequence, useful for deterministic tests.
	JitterFactor float64

	// Classifier decides retryability and supplies Retry-After hints.
	// Default: DefaultClassifier
	Classifier Classifier

	// Clock is the time source. Default: SystemClock
	Clock Clock

	// Rand supplies values in [0, 1) for jitter. Injectable so tests can
	// pin the noise. Default: math/rand/v2.Float64
	Rand func() float64

	// OnRetry is called before each retry sleep with the 1-based number
	// of the attempt that just failed.
	OnRetry func(attempt int, err error, delay time.Duration)
}

func (c *RetryConfig) normalize() error {
	if c.MaxAttempts < 0 {
		return configErr("MaxAttempts", "must be >= 1")
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay < 0 {
		return configErr("InitialDelay", "must not be negative")
	}
	if c.InitialDelay == 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay < 0 {
		return configErr("MaxDelay", "must not be negative")
	}
	if c.MaxDelay == 0 {
		c.MaxDelay = 30 * time.Second
	}
	if c.InitialDelay > c.MaxDelay {
		return configErr("InitialDelay", "must not exceed MaxDelay")
	}
	if c.Multiplier != 0 && c.Multiplier < 1 {
		return configErr("Multiplier", "must be >= 1")
	}
	if c.Multiplier == 0 {
		c.Multiplier = 2.0
	}
	if c.JitterFactor < 0 || c.JitterFactor > 1 {
		return configErr("JitterFactor", "must be in [0, 1]")
	}
	if c.Classifier == nil {
		c.Classifier = DefaultClassifier()
	}
	if c.Clock == nil {
		c.Clock = SystemClock()
	}
	if c.Rand == nil {
		c.Rand = rand.Float64
	}
	return nil
}

// Retry re-invokes failing operations with capped exponential backoff.
// Safe for concurrent use.
type Retry struct {
	config RetryConfig
}

// NewRetry creates a retry executor. Invalid configuration is rejected here
// rather than at call time.
func NewRetry(config RetryConfig) (*Retry, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &Retry{config: config}, nil
}

// Config returns the effective configuration after defaulting.
func (r *Retry) Config() RetryConfig {
	return r.config
}

// Execute runs op until it succeeds, attempts are exhausted, or it fails
// with an error that must not be retried. The last observed error is
// returned. A cancelled context aborts any pending backoff sleep.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}

		// Caller abandonment and breaker rejections are terminal no
		// matter what the classifier says: the remote was not observed
		// to fail, and retrying an open circuit only burns attempts.
		if isCallerAbandoned(err) || IsCircuitOpen(err) {
			return err
		}

		if !r.config.Classifier.Retryable(err) {
			return err
		}

		if attempt >= r.config.MaxAttempts-1 {
			return err
		}

		delay := r.delay(attempt, err)

		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt+1, err, delay)
		}

		if serr := r.config.Clock.Sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// delay computes the wait after the given 0-based failed attempt:
// min(InitialDelay * Multiplier^attempt, MaxDelay), lower-bounded by a
// server Retry-After hint (itself re-capped at MaxDelay), plus full
// positive jitter.
func (r *Retry) delay(attempt int, err error) time.Duration {
	exp := float64(r.config.InitialDelay) * math.Pow(r.config.Multiplier, float64(attempt))

	delay := r.config.MaxDelay
	if exp < float64(r.config.MaxDelay) {
		delay = time.Duration(exp)
	}

	// Server-specified backoff must never be shortened by our own
	// schedule, but is still bounded by MaxDelay.
	if hint, ok := r.config.Classifier.RetryAfter(err); ok && hint > delay {
		delay = hint
		if delay > r.config.MaxDelay {
			delay = r.config.MaxDelay
		}
	}

	if r.config.JitterFactor > 0 && delay > 0 {
		delay += time.Duration(r.config.Rand() * r.config.JitterFactor * float64(delay))
	}

	return delay
}
