package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vaidashi/garment-order-tracker/internal/config"
	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	"github.com/vaidashi/garment-order-tracker/pkg/errors"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/retry"
)

// PaymentClient is a client for the external payment provider
type PaymentClient struct {
	baseURL     string
	apiKey      string
	successURL  string
	cancelURL   string
	httpClient  *http.Client
	logger      logger.Logger
	retryConfig *retry.RetryConfig
	breaker     *circuitbreaker.CircuitBreaker
}

// CheckoutRequest describes a hosted checkout page for one order line
type CheckoutRequest struct {
	Reference   string          `json:"reference"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	SuccessURL  string          `json:"success_url"`
	CancelURL   string          `json:"cancel_url"`
}

// CheckoutSession is the provider's answer to a checkout request
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// AuthorizationRequest asks the provider to hold funds for an order
type AuthorizationRequest struct {
	Reference string          `json:"reference"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Token     string          `json:"payment_token"`
}

// Authorization is a confirmed hold at the provider
type Authorization struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	DeclineReason string `json:"decline_reason,omitempty"`
}

// providerError is the error body the provider returns
type providerError struct {
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

const authorizationApproved = "authorized"

// NewPaymentClient creates a new PaymentClient instance
func NewPaymentClient(cfg config.PaymentConfig, logger logger.Logger) *PaymentClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	retryConfig := retry.NewClassifiedRetryConfig(3, &retry.ExponentialBackoff{
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      1.5,
		JitterFactor:    0.2,
	}, logger)

	return &PaymentClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		successURL:  cfg.SuccessURL,
		cancelURL:   cfg.CancelURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		retryConfig: retryConfig,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
			Name:             "payments",
			FailureThreshold: 5,
			ResetTimeout:     30 * time.Second,
			HalfOpenMaxCalls: 1,
		}),
	}
}

// Breaker exposes the circuit breaker guarding the provider
func (c *PaymentClient) Breaker() *circuitbreaker.CircuitBreaker {
	return c.breaker
}

// CreateCheckoutSession asks the provider for a hosted checkout page
func (c *PaymentClient) CreateCheckoutSession(ctx context.Context, request CheckoutRequest) (*CheckoutSession, error) {
	if request.SuccessURL == "" {
		request.SuccessURL = c.successURL
	}
	if request.CancelURL == "" {
		request.CancelURL = c.cancelURL
	}

	session := &CheckoutSession{}
	if err := c.call(ctx, http.MethodPost, "/v1/checkout/sessions", request.Reference, request, session); err != nil {
		c.logger.Error("Failed to create checkout session",
			"error", err,
			"reference", request.Reference)
		return nil, err
	}

	if session.URL == "" {
		return nil, errors.NewAppError(errors.ErrPermanentFailure, "payment provider returned no checkout url", http.StatusBadGateway, false)
	}

	return session, nil
}

// Authorize holds the order amount at the provider and returns the
// authorization id. A decline is ErrPaymentAuthorizationFailed.
func (c *PaymentClient) Authorize(ctx context.Context, request AuthorizationRequest) (*Authorization, error) {
	if request.Token == "" {
		return nil, errors.NewPaymentAuthorizationFailedError("a payment token is required for card payments")
	}

	auth := &Authorization{}
	if err := c.call(ctx, http.MethodPost, "/v1/authorizations", request.Reference, request, auth); err != nil {
		c.logger.Error("Failed to authorize payment",
			"error", err,
			"reference", request.Reference)
		return nil, err
	}

	if auth.Status != authorizationApproved {
		reason := auth.DeclineReason
		if reason == "" {
			reason = "payment was declined"
		}
		return nil, errors.NewPaymentAuthorizationFailedError(reason).
			WithContext("reference", request.Reference)
	}

	c.logger.Info("Payment authorized",
		"reference", request.Reference,
		"authorizationID", auth.ID)

	return auth, nil
}

// Void releases an authorization that will not be captured
func (c *PaymentClient) Void(ctx context.Context, authorizationID string) error {
	path := "/v1/authorizations/" + url.PathEscape(authorizationID) + "/void"

	if err := c.call(ctx, http.MethodPost, path, "void-"+authorizationID, nil, nil); err != nil {
		c.logger.Error("Failed to void authorization",
			"error", err,
			"authorizationID", authorizationID)
		return err
	}
	return nil
}

// call sends one request through the breaker with retries. idempotencyKey
// is sent on every attempt so a retried request is applied once.
func (c *PaymentClient) call(ctx context.Context, method, path, idempotencyKey string, in, out interface{}) error {
	endpoint := c.baseURL + path

	var reqBody []byte
	if in != nil {
		var err error
		reqBody, err = json.Marshal(in)
		if err != nil {
			return errors.NewInternalError(fmt.Sprintf("failed to marshal request: %v", err))
		}
	}

	retryFunc := func() error {
		err := c.breaker.Execute(ctx, func(ctx context.Context) error {
			return c.do(ctx, method, endpoint, idempotencyKey, reqBody, out)
		}, errors.IsRetryable)

		if errors.Is(err, circuitbreaker.ErrOpen) {
			return errors.NewAppError(errors.ErrServiceUnavailable, "payment provider is unavailable", http.StatusServiceUnavailable, false)
		}
		return err
	}

	return retry.Retry(ctx, retryFunc, c.retryConfig)
}

func (c *PaymentClient) do(ctx context.Context, method, endpoint, idempotencyKey string, reqBody []byte, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.NewInternalError(fmt.Sprintf("failed to create request: %v", err))
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return errors.NewTimeoutError("payment request timed out")
		}
		return errors.NewTemporaryError(fmt.Sprintf("failed to send request: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTemporaryError(fmt.Sprintf("failed to read response body: %v", err))
	}

	if resp.StatusCode >= 400 {
		return classifyStatus(resp.StatusCode, respBody)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewAppError(errors.ErrPermanentFailure, fmt.Sprintf("failed to parse response: %v", err), http.StatusBadGateway, false)
	}
	return nil
}

func classifyStatus(status int, body []byte) error {
	var perr providerError
	_ = json.Unmarshal(body, &perr)

	message := perr.Error
	if message == "" {
		message = fmt.Sprintf("payment provider returned error: %d", status)
	}

	switch {
	case status == http.StatusPaymentRequired:
		return errors.NewPaymentAuthorizationFailedError(message)
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return errors.NewTimeoutError("payment request timed out")
	case status == http.StatusTooManyRequests:
		return errors.NewRateLimitedError(message)
	case status >= 500:
		return errors.NewTemporaryError(fmt.Sprintf("payment provider error: %d", status))
	default:
		return errors.NewAppError(errors.ErrPermanentFailure, message, http.StatusBadGateway, false).
			WithContext("provider_status", status).
			WithContext("provider_code", perr.Code)
	}
}

// DisabledPaymentGateway refuses every call. Used when no provider is configured.
type DisabledPaymentGateway struct{}

func (DisabledPaymentGateway) unavailable() error {
	return errors.NewAppError(errors.ErrServiceUnavailable, "online payment is not configured", http.StatusServiceUnavailable, false)
}

func (g DisabledPaymentGateway) CreateCheckoutSession(context.Context, CheckoutRequest) (*CheckoutSession, error) {
	return nil, g.unavailable()
}

func (g DisabledPaymentGateway) Authorize(context.Context, AuthorizationRequest) (*Authorization, error) {
	return nil, g.unavailable()
}

func (g DisabledPaymentGateway) Void(context.Context, string) error {
	return nil
}
