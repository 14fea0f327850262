package cache

import (
	"context"
	"errors"
	"time"
)

// ErrBackendUnavailable is returned when a cache backend cannot be reached.
var ErrBackendUnavailable = errors.New("cache backend unavailable")

// RetryableError marks an error as transient.
type RetryableError struct{ Err error }

// Retryable wraps err as a RetryableError. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// Error returns the error message of the wrapped error.
func (e *RetryableError) Error() string { return e.Err.Error() }

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is wrapped with RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff configures RetryWithBackoff.
type Backoff struct {
	Attempts int
	Delay    time.Duration // first delay, doubled after each attempt
}

// DefaultBackoff is three attempts starting at one second.
var DefaultBackoff = Backoff{Attempts: 3, Delay: time.Second}

// RetryWithBackoff calls fn until it succeeds, returns a non-retryable
// error, runs out of attempts, or ctx is done.
func RetryWithBackoff(ctx context.Context, b Backoff, fn func() error) error {
	delay := b.Delay
	var lastErr error

	for i := 0; i < max(b.Attempts, 1); i++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		} else if !IsRetryable(lastErr) {
			return lastErr
		}

		if i < b.Attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}
