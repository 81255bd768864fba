package resilience

import (
	"context"
	"time"
)

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Timeout is the maximum duration for a single attempt.
	// Default: 30 seconds
	Timeout time.Duration
}

func (c *TimeoutConfig) normalize() error {
	if c.Timeout < 0 {
		return configErr("Timeout", "must not be negative")
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	return nil
}

// Timeout bounds the duration of a single attempt. An elapsed deadline
// surfaces as ErrTimeout, distinct from the caller's own cancellation.
type Timeout struct {
	config TimeoutConfig
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) (*Timeout, error) {
	if err := config.normalize(); err != nil {
		return nil, err
	}
	return &Timeout{config: config}, nil
}

// Config returns the effective configuration after defaulting.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// Execute runs op with a deadline.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		// The caller's own deadline or cancellation is not an attempt
		// timeout; only the deadline this wrapper set maps to ErrTimeout.
		if parent.Err() != nil {
			return parent.Err()
		}
		if ctx.Err() == context.DeadlineExceeded {
			return ErrTimeout
		}
		return ctx.Err()
	}
}
