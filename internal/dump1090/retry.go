package dump1090

import (
	"context"
	"fmt"
	"time"
)

// RetryPolicy bounds the number of attempts and the pause between them.
// A zero Backoff retries immediately.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
}

// Retry calls attempt until it returns nil or the policy's attempt budget is spent.
// Attempts are numbered from 1. When every attempt fails, the returned error wraps both
// ErrRetriesExhausted and the last attempt's error.
// The context is checked before each attempt and during backoff.
func Retry(ctx context.Context, policy RetryPolicy, attempt func(ctx context.Context, n int) error) error {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry stopped before attempt %d: %w", n, err)
		}

		lastErr = attempt(ctx, n)
		if lastErr == nil {
			return nil
		}

		if n < maxAttempts && policy.Backoff > 0 {
			timer := time.NewTimer(policy.Backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("retry stopped during backoff after attempt %d: %w", n, ctx.Err())
			case <-timer.C:
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, maxAttempts, lastErr)
}
