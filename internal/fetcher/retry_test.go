package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicySucceedsEventually(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

// Exhausting the immediate attempts plus the single cooldown attempt must
// yield exactly MaxAttempts+1 calls, no more.
func TestRetryPolicyCooldownAttempt(t *testing.T) {
	calls := 0
	p := RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond, Cooldown: time.Millisecond}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("down")
	})
	if !errors.Is(err, ErrMaxRetries) {
		t.Fatalf("expected ErrMaxRetries, got %v", err)
	}
	if calls != 6 {
		t.Errorf("expected 6 calls (5 immediate + 1 cooldown), got %d", calls)
	}
}

func TestRetryPolicyNonRetryableStopsEarly(t *testing.T) {
	calls := 0
	fatal := errors.New("fatal")
	p := RetryPolicy{
		MaxAttempts: 5,
		Delay:       time.Millisecond,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}

	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return fatal
	})
	if !errors.Is(err, fatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryPolicyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := RetryPolicy{MaxAttempts: 3, Delay: time.Hour}
	calls := 0
	err := p.Do(ctx, func(ctx context.Context) error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancel surfaced, got %d", calls)
	}
}

// A server-stated Retry-After longer than the fixed delay stretches the
// pause before the next attempt.
func TestRetryPolicyHonorsRetryAfter(t *testing.T) {
	const retryAfter = 60 * time.Millisecond
	calls := 0
	p := RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond}

	start := time.Now()
	err := p.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return &FetchError{
				URL:        "https://s.weibo.com/top/summary",
				StatusCode: 429,
				Err:        errors.New("too many requests"),
				Retryable:  true,
				RetryAfter: retryAfter,
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < retryAfter {
		t.Errorf("retry fired after %v, before the stated %v pause", elapsed, retryAfter)
	}
}
