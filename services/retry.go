package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-tracker/observability"
)

// RetryConfig bounds the attempts made for one provider call. MaxRetries
// counts attempts after the first.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:     3,
	InitialBackoff: 100 * time.Millisecond,
	MaxBackoff:     5 * time.Second,
}

// permanentError marks a failure that retrying cannot fix.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so WithRetry gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// nextDelay is the wait before the next attempt: the provider's Retry-After
// when it asked for longer than our backoff, never above MaxBackoff.
func (c RetryConfig) nextDelay(backoff time.Duration, err error) time.Duration {
	delay := backoff
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
		delay = apiErr.RetryAfter
	}
	if c.MaxBackoff > 0 && delay > c.MaxBackoff {
		delay = c.MaxBackoff
	}
	return delay
}

// WithRetry calls fn until it succeeds, returns a Permanent error, or
// MaxRetries extra attempts have failed. Backoff doubles per attempt.
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	backoff := config.InitialBackoff

	var lastErr error
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		lastErr = err
		if attempt >= config.MaxRetries {
			break
		}

		delay := config.nextDelay(backoff, err)
		observability.Debug("retrying provider call",
			"attempt", attempt+1,
			"max_retries", config.MaxRetries,
			"delay_ms", delay.Milliseconds(),
			"error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}
