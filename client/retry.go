package client

import (
	"context"
	"time"

	"milorg-admin/apperr"
)

// RetryPolicy is an exponential backoff schedule.
type RetryPolicy struct {
	Attempts   int
	BaseDelay  time.Duration
	Multiplier float64
}

// DefaultRetryPolicy waits 500ms then 1s between three attempts.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond, Multiplier: 2}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Multiplier
	}
	return time.Duration(d)
}

// Retry calls fn until it succeeds, fails with a non-retryable error or the
// attempts run out. Only NETWORK errors are retried; validation and
// authorization failures return immediately.
func Retry[T any](ctx context.Context, p RetryPolicy, fn func(context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}

	var (
		result T
		err    error
	)
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		if attempt > 1 {
			timer := time.NewTimer(p.delay(attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				var zero T
				return zero, ctx.Err()
			case <-timer.C:
			}
		}

		result, err = fn(ctx)
		if err == nil || !apperr.Retryable(err) {
			return result, err
		}
	}
	return result, err
}
