package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// RetryableFunc defines a function that can be retried
type RetryableFunc func() error

// RetryConfig holds the configuration for retrying operations
type RetryConfig struct {
	MaxAttempts     int
	BackoffStrategy BackoffStrategy
	Logger          logger.Logger
	// RetryableErrors restricts retries to errors matching one of these.
	// When empty, ShouldRetry decides, and when that is nil too every error is retried.
	RetryableErrors []error
	ShouldRetry     func(error) bool
}

// NewClassifiedRetryConfig retries only errors that pkg/errors marks retryable
func NewClassifiedRetryConfig(maxAttempts int, backoff BackoffStrategy, log logger.Logger) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     maxAttempts,
		BackoffStrategy: backoff,
		Logger:          log,
		ShouldRetry:     apperrors.IsRetryable,
	}
}

// Retry retries the given function according to the provided configuration
func Retry(ctx context.Context, fn RetryableFunc, cfg *RetryConfig) error {
	var lastErr error

	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled by context: %w", err)
		}

		err := fn()

		if err == nil {
			return nil
		}

		lastErr = err

		if attempt == maxAttempts {
			break
		}

		if !cfg.isRetryable(err) {
			cfg.log().Warn("Non-retryable error encountered, giving up",
				"error", err,
				"attempt", attempt)
			return err
		}

		backoff := cfg.BackoffStrategy.NextBackoff(attempt)

		cfg.log().Info("Retrying after error",
			"error", err,
			"attempt", attempt,
			"maxAttempts", maxAttempts,
			"backoff", backoff)

		timer := time.NewTimer(backoff)

		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled by context during backoff: %w", errors.Join(ctx.Err(), lastErr))
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}

	return fmt.Errorf("all %d retry attempts failed, last error: %w", maxAttempts, lastErr)
}

func (cfg *RetryConfig) isRetryable(err error) bool {
	if len(cfg.RetryableErrors) > 0 {
		for _, retryableErr := range cfg.RetryableErrors {
			if errors.Is(err, retryableErr) {
				return true
			}
		}
		return false
	}

	if cfg.ShouldRetry != nil {
		return cfg.ShouldRetry(err)
	}

	return true
}

func (cfg *RetryConfig) log() logger.Logger {
	if cfg.Logger == nil {
		return logger.NewNopLogger()
	}
	return cfg.Logger
}

// RetryWithDiscard retries a function and applies the discard policy if all retries fail
func RetryWithDiscard(ctx context.Context, fn RetryableFunc, cfg *RetryConfig, discardFn func(error) error) error {
	err := Retry(ctx, fn, cfg)

	if err != nil {
		cfg.log().Error("All retries failed, applying discard policy",
			"error", err,
			"maxAttempts", cfg.MaxAttempts)
		return discardFn(err)
	}
	return nil
}
