package store

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"github.com/wolfeidau/gazerecorder/internal/telemetry"
)

// RetryConfig bounds retries of transient write failures.
type RetryConfig struct {
	// MaxTries is the total number of attempts including the first.
	// Default: 5
	MaxTries uint `yaml:"maxTries"`

	// InitialInterval is the first backoff delay.
	// Default: 20ms
	InitialInterval time.Duration `yaml:"initialInterval"`

	// MaxInterval caps a single backoff delay.
	// Default: 1s
	MaxInterval time.Duration `yaml:"maxInterval"`
}

// ApplyDefaults applies default values to unset configuration fields.
func (c *RetryConfig) ApplyDefaults() {
	if c.MaxTries == 0 {
		c.MaxTries = 5
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = 20 * time.Millisecond
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = time.Second
	}
}

// Validate checks that the retry configuration is valid.
func (c *RetryConfig) Validate() error {
	if c.InitialInterval < 0 || c.MaxInterval < 0 {
		return fmt.Errorf("retry intervals must not be negative")
	}
	if c.MaxInterval != 0 && c.InitialInterval > c.MaxInterval {
		return fmt.Errorf("retry initial interval %s exceeds max interval %s", c.InitialInterval, c.MaxInterval)
	}
	return nil
}

// Retry runs op until it succeeds, fails with an error isTransient rejects, or
// the attempts run out. The last error is returned unchanged. Each retry is
// logged at debug level on logger.
func Retry(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, isTransient func(error) bool, op func() error) error {
	cfg.ApplyDefaults()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			telemetry.GetMetrics().StoreWriteRetriesTotal.Add(ctx, 1)
		}

		err := op()
		if err != nil && (isTransient == nil || !isTransient(err)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(bo),
		backoff.WithMaxTries(cfg.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug().Err(err).Int("attempt", attempt).Dur("next", next).Msg("Retrying transient store failure")
		}),
	)
	return err
}
