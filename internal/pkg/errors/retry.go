package errors

import (
	"context"
	stderrors "errors"
	"math"
	"math/rand"
	"time"
)

// RetryConfig contains configuration for retry logic.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool // Add random jitter to delays
}

// RateLimitRetryConfig returns the backoff used for rate limited providers:
// 2s initial delay doubling per attempt. retries is the number of extra attempts.
func RateLimitRetryConfig(retries int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  retries + 1,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// RetryFunc is a function that can be retried.
type RetryFunc func(ctx context.Context) error

// RetryCallback is invoked before each retry with the 1-based attempt number.
type RetryCallback func(attempt int, err error, delay time.Duration)

// Retry executes fn until it succeeds, returns a non-retryable error, or
// runs out of attempts. notify may be nil.
func Retry(ctx context.Context, config RetryConfig, fn RetryFunc, notify RetryCallback) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == config.MaxAttempts-1 {
			break
		}

		delay := calculateRetryDelay(config, attempt, lastErr)
		if notify != nil {
			notify(attempt+1, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if stderrors.Is(ctx.Err(), context.Canceled) {
				return NewCancelledError("retry", ctx.Err())
			}
			return Wrap(ctx.Err(), ErrProviderTimeout, "deadline reached while waiting to retry")
		case <-timer.C:
		}
	}

	return lastErr
}

// calculateRetryDelay prefers a server supplied Retry-After over backoff.
func calculateRetryDelay(config RetryConfig, attempt int, err error) time.Duration {
	if retryAfter := GetRetryAfter(err); retryAfter > 0 {
		return retryAfter
	}

	delay := float64(config.InitialDelay) * math.Pow(config.Multiplier, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}

	// ±25%
	if config.Jitter {
		delay += delay * 0.25 * (rand.Float64()*2 - 1)
	}

	return time.Duration(delay)
}
