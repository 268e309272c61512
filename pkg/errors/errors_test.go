package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMatchesKind(t *testing.T) {
	err := NewInsufficientStockError("prd-1", 5, 2)

	assert.True(t, Is(err, ErrInsufficientStock))
	assert.False(t, Is(err, ErrBelowMinimumOrder))
	assert.Equal(t, http.StatusConflict, err.StatusCode)
	assert.Equal(t, "insufficient_stock", err.Code())
	assert.Equal(t, 2, err.Context["available"])
}

func TestAppErrorWrappedStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("reserve: %w", NewOrderAlreadyFinalError("ord-1", "rejected"))

	assert.True(t, stderrors.Is(wrapped, ErrOrderAlreadyFinal))

	var appErr *AppError
	assert.True(t, As(wrapped, &appErr))
	assert.Equal(t, "order_already_final", appErr.Code())
}

func TestWithCauseExposesBoth(t *testing.T) {
	err := NewPaymentAuthorizationFailedError("payment timed out").WithCause(context.DeadlineExceeded)

	assert.True(t, Is(err, ErrPaymentAuthorizationFailed))
	assert.True(t, Is(err, context.DeadlineExceeded))
	assert.Equal(t, "payment timed out", err.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewTimeoutError("slow")))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", ErrServiceUnavailable)))
	assert.False(t, IsRetryable(NewInvalidInputError("bad")))
	assert.False(t, IsRetryable(stderrors.New("plain")))
}

func TestFromError(t *testing.T) {
	plain := stderrors.New("boom")
	appErr := FromError(plain)

	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
	assert.True(t, Is(appErr, plain))

	known := NewNotFoundError("order not found")
	assert.Same(t, known, FromError(fmt.Errorf("get: %w", known)))
}
