// Package retry wraps exponential backoff for calls to rate-limited
// third-party APIs.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Config bounds the retry loop.
type Config struct {
	MaxAttempts     int           // total attempts, including the first
	InitialInterval time.Duration // first backoff delay
	MaxInterval     time.Duration // delay cap
}

// DefaultConfig matches the pipeline's API call policy: three attempts with
// exponential backoff starting at one second.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
	}
}

// Permanent marks err as non-retryable; Do returns it immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs op, retrying transient failures with exponential backoff until it
// succeeds, the attempt cap is reached, or ctx is done. After the cap, the
// last error is returned as a hard failure for the item.
func Do(ctx context.Context, cfg Config, name string, op func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultConfig().InitialInterval
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = DefaultConfig().MaxInterval
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = cfg.InitialInterval
	policy.MaxInterval = cfg.MaxInterval

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := op()
		if err != nil && attempt < cfg.MaxAttempts {
			log.Warn().
				Err(err).
				Str("op", name).
				Int("attempt", attempt).
				Msg("Attempt failed, retrying")
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(policy, uint64(cfg.MaxAttempts-1)), ctx))

	if err != nil {
		return fmt.Errorf("%s: after %d attempts: %w", name, attempt, err)
	}
	return nil
}
