package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

func fastConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:     attempts,
		BackoffStrategy: &ConstantBackoff{Interval: time.Millisecond},
		Logger:          logger.NewNopLogger(),
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("flaky")
		}
		return nil
	}, fastConfig(5))

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	sentinel := errors.New("down")

	err := Retry(context.Background(), func() error {
		calls++
		return sentinel
	}, fastConfig(3))

	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	cfg := NewClassifiedRetryConfig(5, &ConstantBackoff{Interval: time.Millisecond}, logger.NewNopLogger())
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return apperrors.NewInvalidInputError("bad amount")
	}, cfg)

	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, 1, calls)
}

func TestRetryRetriesClassifiedTemporary(t *testing.T) {
	cfg := NewClassifiedRetryConfig(3, &ConstantBackoff{Interval: time.Millisecond}, logger.NewNopLogger())
	calls := 0

	err := Retry(context.Background(), func() error {
		calls++
		return apperrors.NewTemporaryError("503")
	}, cfg)

	assert.ErrorIs(t, err, apperrors.ErrTemporaryFailure)
	assert.Equal(t, 3, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &RetryConfig{
		MaxAttempts:     10,
		BackoffStrategy: &ConstantBackoff{Interval: time.Hour},
		Logger:          logger.NewNopLogger(),
	}

	calls := 0
	done := make(chan error, 1)

	go func() {
		done <- Retry(ctx, func() error {
			calls++
			return errors.New("fail")
		}, cfg)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("retry did not observe cancellation")
	}
	assert.Equal(t, 1, calls)
}

func TestRetryWithDiscard(t *testing.T) {
	discarded := false

	err := RetryWithDiscard(context.Background(), func() error {
		return errors.New("nope")
	}, fastConfig(2), func(err error) error {
		discarded = true
		return err
	})

	assert.Error(t, err)
	assert.True(t, discarded)
}

func TestBackoffStrategies(t *testing.T) {
	exp := &ExponentialBackoff{InitialInterval: 100 * time.Millisecond, MaxInterval: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, exp.NextBackoff(1))
	assert.Equal(t, 400*time.Millisecond, exp.NextBackoff(3))
	assert.Equal(t, time.Second, exp.NextBackoff(10))

	constant := &ConstantBackoff{Interval: 50 * time.Millisecond}
	assert.Equal(t, 50*time.Millisecond, constant.NextBackoff(1))
	assert.Equal(t, 50*time.Millisecond, constant.NextBackoff(9))
}
