// Package retry provides bounded exponential backoff for transiently
// failing operations, like waiting for the stories endpoint to come up.
// The feed controller never retries on its own; retrying is always an
// explicit caller decision.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrMaxAttemptsExceeded is returned when every attempt failed.
	ErrMaxAttemptsExceeded = errors.New("max retry attempts exceeded")
	// ErrContextCancelled is returned when the context ends mid-retry.
	ErrContextCancelled = errors.New("context cancelled during retry")
)

// Config configures retry behavior.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration
	// Multiplier grows the delay between attempts.
	Multiplier float64
	// OnRetry, when set, is called before each wait with the attempt
	// number that just failed, its error, and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultConfig returns the retry configuration used by health waiting.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}

func (c *Config) setDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 500 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 2.0
	}
}

// Do runs fn until it succeeds, the attempts are exhausted, or ctx ends.
// The last error is wrapped into the returned error on exhaustion.
func Do(ctx context.Context, cfg Config, fn func(ctx context.Context) error) error {
	cfg.setDefaults()

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsExceeded, cfg.MaxAttempts, lastErr)
}
