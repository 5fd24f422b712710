package retry

import (
	"context"
	"errors"
	"math"
	"time"
)

// Policy describes a bounded retry loop with exponential backoff.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     float64
	// Retryable decides whether an error is worth another attempt.
	// A nil predicate retries every error.
	Retryable func(error) bool
}

// ErrExhausted wraps the last error once all attempts failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Backoff returns the delay before the given attempt (1-based: the
// delay after the first failure is Backoff(1) = InitialBackoff).
func (p Policy) Backoff(attempt int) time.Duration {
	mult := p.Multiplier
	if mult <= 0 {
		mult = 2
	}

	return time.Duration(float64(p.InitialBackoff) * math.Pow(mult, float64(attempt-1)))
}

// Do runs fn until it succeeds, the policy is exhausted, the error is
// not retryable, or the context is done. The final error is wrapped
// with ErrExhausted when all attempts were used up.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Backoff(attempt)):
		}
	}

	return errors.Join(ErrExhausted, lastErr)
}
