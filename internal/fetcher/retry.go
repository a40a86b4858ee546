package fetcher

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy is a reusable fixed-delay retry loop shared by every
// network-calling component. An optional cooldown grants one extra attempt
// after a long pause once the immediate attempts are exhausted.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration

	// Cooldown, when > 0, adds a single final attempt after this pause.
	Cooldown time.Duration

	// Retryable decides whether an error is worth another attempt.
	// nil means every error is retryable.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// canceled. The returned error is the last attempt's error wrapped under
// ErrMaxRetries, or ctx.Err() on cancellation.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if err := sleepCtx(ctx, p.delayFor(lastErr)); err != nil {
				return err
			}
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}

	if p.Cooldown > 0 {
		if err := sleepCtx(ctx, p.Cooldown); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
	}

	return errors.Join(ErrMaxRetries, lastErr)
}

// delayFor picks the pause before the next attempt. A server-stated
// Retry-After longer than the policy's fixed delay wins.
func (p RetryPolicy) delayFor(lastErr error) time.Duration {
	var fe *FetchError
	if errors.As(lastErr, &fe) && fe.RetryAfter > p.Delay {
		return fe.RetryAfter
	}
	return p.Delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
