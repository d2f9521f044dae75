// Package retry provides a bounded retry policy with exponential backoff.
//
// Polling long-running external jobs and absorbing eventual-consistency
// races both need the same shape: a hard attempt ceiling, a delay function,
// and context cancellation between attempts. The policy is declared once and
// reused rather than inlined per call site.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted is returned (wrapping the last attempt's error) when
// every attempt has been consumed.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// Policy bounds a retry loop.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	// Values below 1 behave as 1.
	MaxAttempts int

	// BaseDelay is the delay after the first failed attempt.
	BaseDelay time.Duration

	// MaxDelay caps the backoff growth. Zero means no cap.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts. Values at or below 1
	// give a fixed interval.
	Multiplier float64
}

// Backoff returns a policy with exponential delay growth: up to maxAttempts
// attempts starting at base, doubling each time, capped at max.
func Backoff(maxAttempts int, base, max time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   base,
		MaxDelay:    max,
		Multiplier:  2,
	}
}

// Fixed returns a policy that waits the same interval between attempts.
func Fixed(maxAttempts int, interval time.Duration) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   interval,
		Multiplier:  1,
	}
}

// Delay returns the wait applied after the given zero-based failed attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult > 1 {
		for i := 0; i < attempt; i++ {
			d = time.Duration(float64(d) * mult)
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn until it succeeds, returns a non-retryable error, or the
// attempt budget is exhausted.
//
// retryable decides whether an error is worth another attempt; nil retries
// every error. The wait between attempts respects ctx, and ctx errors are
// returned as-is so callers can distinguish cancellation from exhaustion.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error, retryable func(error) bool) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if retryable != nil && !retryable(lastErr) {
			return lastErr
		}

		if attempt == attempts-1 {
			break
		}
		if err := sleep(ctx, p.Delay(attempt)); err != nil {
			return err
		}
	}

	return errors.Join(ErrBudgetExhausted, lastErr)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
