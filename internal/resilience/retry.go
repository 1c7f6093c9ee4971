// Package resilience provides the retry policy shared by the provider HTTP
// clients. A provider fetch races the report phase deadline, so the whole
// retry budget is kept to a few seconds rather than the tens of seconds a
// background job could afford.
package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retry behavior for a provider client.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	// 1 disables retries.
	MaxAttempts int

	// BaseDelay is the backoff before the first retry. It doubles on each
	// subsequent retry, capped at MaxDelay, with jitter applied.
	BaseDelay time.Duration

	// MaxDelay caps the per-retry backoff.
	MaxDelay time.Duration

	// ShouldRetry overrides the transient-error check. Nil means IsTransient.
	ShouldRetry func(err error) bool
}

// DefaultRetryConfig is tuned for the report sources: three attempts with a
// worst-case total backoff well under the phase deadline.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseDelay:   250 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, exhausts
// MaxAttempts, or ctx is canceled. Only transient errors are retried.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= attempts || !shouldRetry(err) {
			return err
		}

		zap.L().Debug("retrying provider fetch",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		timer := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// backoff returns the delay before retry number attempt (1-based): BaseDelay
// doubled per retry, capped at MaxDelay, with equal jitter so concurrent
// sources back off out of step with each other.
func backoff(attempt int, cfg RetryConfig) time.Duration {
	base := cfg.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 2 * time.Second
	}

	d := base << (attempt - 1)
	if d > maxDelay || d <= 0 {
		d = maxDelay
	}

	half := d / 2
	return half + time.Duration(rand.Int64N(int64(half)+1))
}
