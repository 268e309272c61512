package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(reset time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "payments",
		FailureThreshold: 2,
		ResetTimeout:     reset,
		HalfOpenMaxCalls: 1,
	})
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	cb := newTestBreaker(time.Hour)

	assert.True(t, cb.Allow())
	cb.Failure()
	assert.Equal(t, StateClosed, cb.GetState())
	cb.Failure()
	assert.Equal(t, StateOpen, cb.GetState())
	assert.False(t, cb.Allow())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Hour)

	cb.Failure()
	cb.Success()
	cb.Failure()

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	cb := newTestBreaker(5 * time.Millisecond)
	cb.Failure()
	cb.Failure()
	assert.Equal(t, StateOpen, cb.GetState())

	time.Sleep(10 * time.Millisecond)

	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.GetState())
	assert.False(t, cb.Allow(), "half-open admits a single probe")

	cb.Success()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(5 * time.Millisecond)
	cb.Failure()
	cb.Failure()
	time.Sleep(10 * time.Millisecond)

	assert.True(t, cb.Allow())
	cb.Failure()
	assert.Equal(t, StateOpen, cb.GetState())
}

func TestBreakerExecute(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	boom := errors.New("boom")
	ignored := errors.New("declined")

	countable := func(err error) bool { return !errors.Is(err, ignored) }

	for i := 0; i < 5; i++ {
		err := cb.Execute(context.Background(), func(context.Context) error { return ignored }, countable)
		assert.ErrorIs(t, err, ignored)
	}
	assert.Equal(t, StateClosed, cb.GetState())

	_ = cb.Execute(context.Background(), func(context.Context) error { return boom }, countable)
	_ = cb.Execute(context.Background(), func(context.Context) error { return boom }, countable)

	err := cb.Execute(context.Background(), func(context.Context) error { return nil }, countable)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerResetAndMetrics(t *testing.T) {
	cb := newTestBreaker(time.Hour)
	cb.Failure()
	cb.Failure()

	cb.Reset()

	metrics := cb.GetMetrics()
	assert.Equal(t, "closed", metrics["state"])
	assert.Equal(t, "payments", metrics["name"])
	assert.Equal(t, int64(0), metrics["failure_count"])
}
