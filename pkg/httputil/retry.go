package httputil

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// RetryableError wraps an error to indicate it should trigger a retry.
// Wrap transient failures (transport errors, 429 and 503 responses) with this
// type so that [Retry] knows to attempt the operation again.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err (or anything it wraps) is a [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Policy describes how many times an operation is attempted and how long to
// wait between attempts.
type Policy struct {
	Attempts int           // total attempts, including the first (minimum 1)
	Base     time.Duration // delay before the second attempt; doubles afterwards
	Jitter   time.Duration // additive uniform jitter in [0, Jitter] per wait

	// Backoff, when set, replaces the doubling of Base. It returns the wait
	// after the zero-based failed attempt n.
	Backoff func(n int) time.Duration
}

// DefaultPolicy is three attempts starting at one second with 200ms of jitter.
var DefaultPolicy = Policy{Attempts: 3, Base: time.Second, Jitter: 200 * time.Millisecond}

// Delay returns the wait before attempt n+1 (n is zero-based), excluding jitter.
func (p Policy) Delay(n int) time.Duration {
	if p.Backoff != nil {
		return p.Backoff(n)
	}
	d := p.Base
	for range n {
		d *= 2
	}
	return d
}

// Retry executes fn according to p. Only errors wrapped with [RetryableError]
// are retried; other errors are returned immediately. Returns the last error
// if all attempts fail, or ctx.Err() if cancelled while waiting.
func Retry(ctx context.Context, p Policy, fn func() error) error {
	attempts := max(p.Attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
			return err
		}

		if i < attempts-1 {
			wait := p.Delay(i)
			if p.Jitter > 0 {
				wait += rand.N(p.Jitter + 1)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
	}
	return lastErr
}

// RetryWithBackoff is [Retry] with [DefaultPolicy].
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultPolicy, fn)
}
