package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	apperrors "github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *PaymentClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewPaymentClient(config.PaymentConfig{
		BaseURL:    server.URL,
		APIKey:     "sk_test",
		Timeout:    time.Second,
		SuccessURL: "http://shop/success",
		CancelURL:  "http://shop/cancel",
	}, logger.NewNopLogger())
	client.retryConfig.BackoffStrategy = &retry.ConstantBackoff{Interval: time.Millisecond}
	return client
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestAuthorizeApproved(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/authorizations", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		assert.Equal(t, "ord-1", r.Header.Get("Idempotency-Key"))

		var req AuthorizationRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, decimal.RequireFromString("37.50").Equal(req.Amount))
		assert.Equal(t, "tok_visa", req.Token)

		writeJSON(w, http.StatusOK, Authorization{ID: "auth_123", Status: "authorized"})
	})

	auth, err := client.Authorize(context.Background(), AuthorizationRequest{
		Reference: "ord-1",
		Amount:    decimal.RequireFromString("37.50"),
		Currency:  "usd",
		Token:     "tok_visa",
	})
	require.NoError(t, err)
	assert.Equal(t, "auth_123", auth.ID)
}

func TestAuthorizeDeclined(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, Authorization{ID: "auth_1", Status: "declined", DeclineReason: "card expired"})
	})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-1", Token: "tok"})
	require.ErrorIs(t, err, apperrors.ErrPaymentAuthorizationFailed)
	assert.Contains(t, err.Error(), "card expired")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAuthorize402IsNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusPaymentRequired, providerError{Error: "insufficient funds", Code: "card_declined"})
	})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-1", Token: "tok"})
	require.ErrorIs(t, err, apperrors.ErrPaymentAuthorizationFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, circuitbreaker.StateClosed, client.Breaker().GetState())
}

func TestAuthorizeRetriesServerErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, Authorization{ID: "auth_9", Status: "authorized"})
	})

	auth, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-1", Token: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "auth_9", auth.ID)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestAuthorizeRequiresToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called")
	})

	_, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-1"})
	assert.ErrorIs(t, err, apperrors.ErrPaymentAuthorizationFailed)
}

func TestBreakerOpensOnRepeatedOutage(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 3; i++ {
		_, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-1", Token: "tok"})
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, client.Breaker().GetState())

	before := atomic.LoadInt32(&calls)
	_, err := client.Authorize(context.Background(), AuthorizationRequest{Reference: "ord-2", Token: "tok"})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.Equal(t, before, atomic.LoadInt32(&calls), "an open breaker short-circuits")
}

func TestCreateCheckoutSession(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)

		var req CheckoutRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "http://shop/success", req.SuccessURL)
		assert.Equal(t, 3, req.Quantity)

		writeJSON(w, http.StatusOK, CheckoutSession{ID: "cs_1", URL: "https://pay.example/cs_1"})
	})

	session, err := client.CreateCheckoutSession(context.Background(), CheckoutRequest{
		Reference: "chk-1",
		Quantity:  3,
		Amount:    decimal.NewFromInt(60),
		Currency:  "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_1", session.URL)
}

func TestVoid(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Void(context.Background(), "auth_5"))
	assert.Equal(t, "/v1/authorizations/auth_5/void", path)
}

func TestVoidEscapesAuthorizationID(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, client.Void(context.Background(), "auth/5"))
	assert.Equal(t, "/v1/authorizations/auth%2F5/void", path)
}

func TestDisabledGateway(t *testing.T) {
	var g DisabledPaymentGateway

	_, err := g.Authorize(context.Background(), AuthorizationRequest{})
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavailable)
	assert.False(t, apperrors.IsRetryable(err))
	assert.NoError(t, g.Void(context.Background(), "x"))
}
