package resilience

import (
	"errors"
	"time"
)

// Classifier decides how failures are treated by the retry layer. Vendor
// clients supply an implementation that encodes their error taxonomy
// (HTTP 429/500/502/503 retryable, 400/401/403/404 not, and so on).
type Classifier interface {
	// Retryable reports whether the operation may be attempted again
	// after err.
	Retryable(err error) bool

	// RetryAfter returns a server-provided delay hint for err, if any.
	// The hint lower-bounds the retry backoff; it never shortens it.
	RetryAfter(err error) (time.Duration, bool)
}

// ClassifierFuncs adapts plain functions to the Classifier interface.
// A nil RetryableFunc treats every non-nil error as retryable; a nil
// RetryAfterFunc reports no hint.
type ClassifierFuncs struct {
	RetryableFunc  func(err error) bool
	RetryAfterFunc func(err error) (time.Duration, bool)
}

// Retryable implements Classifier.
func (c ClassifierFuncs) Retryable(err error) bool {
	if c.RetryableFunc == nil {
		return err != nil
	}
	return c.RetryableFunc(err)
}

// RetryAfter implements Classifier.
func (c ClassifierFuncs) RetryAfter(err error) (time.Duration, bool) {
	if c.RetryAfterFunc == nil {
		return 0, false
	}
	return c.RetryAfterFunc(err)
}

// DefaultClassifier treats every non-nil error as retryable, except
// caller cancellation, and recovers hints attached via MarkRetryAfter.
func DefaultClassifier() Classifier {
	return ClassifierFuncs{
		RetryableFunc: func(err error) bool {
			return err != nil && !isCallerAbandoned(err)
		},
		RetryAfterFunc: RetryAfterHint,
	}
}

// retryAfterError carries a server-provided retry delay alongside the
// original error.
type retryAfterError struct {
	err   error
	after time.Duration
}

func (e *retryAfterError) Error() string {
	return e.err.Error()
}

func (e *retryAfterError) Unwrap() error {
	return e.err
}

// MarkRetryAfter annotates err with a server-provided retry delay, typically
// parsed from a Retry-After header or throttling response body. The original
// error remains reachable through errors.Is and errors.As.
func MarkRetryAfter(err error, after time.Duration) error {
	if err == nil {
		return nil
	}
	return &retryAfterError{err: err, after: after}
}

// RetryAfterHint extracts a delay attached with MarkRetryAfter, searching
// the full error chain.
func RetryAfterHint(err error) (time.Duration, bool) {
	var ra *retryAfterError
	if errors.As(err, &ra) {
		return ra.after, true
	}
	return 0, false
}
