package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error types
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrConflict           = errors.New("resource conflict")
	ErrInternal           = errors.New("internal server error")
	ErrTemporaryFailure   = errors.New("temporary failure")
	ErrPermanentFailure   = errors.New("permanent failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("timeout")
	ErrRateLimited        = errors.New("rate limited")
)

// Order lifecycle error kinds
var (
	ErrInsufficientStock          = errors.New("insufficient stock")
	ErrBelowMinimumOrder          = errors.New("below minimum order quantity")
	ErrInvalidTransition          = errors.New("invalid transition")
	ErrOrderAlreadyFinal          = errors.New("order already final")
	ErrAccountNotApproved         = errors.New("account not approved")
	ErrAccountSuspended           = errors.New("account suspended")
	ErrPaymentAuthorizationFailed = errors.New("payment authorization failed")
)

var codes = map[error]string{
	ErrNotFound:                   "not_found",
	ErrInvalidInput:               "invalid_input",
	ErrUnauthenticated:            "unauthenticated",
	ErrUnauthorized:               "unauthorized",
	ErrConflict:                   "conflict",
	ErrInternal:                   "internal",
	ErrTemporaryFailure:           "temporary_failure",
	ErrPermanentFailure:           "permanent_failure",
	ErrServiceUnavailable:         "service_unavailable",
	ErrTimeout:                    "timeout",
	ErrRateLimited:                "rate_limited",
	ErrInsufficientStock:          "insufficient_stock",
	ErrBelowMinimumOrder:          "below_minimum_order",
	ErrInvalidTransition:          "invalid_transition",
	ErrOrderAlreadyFinal:          "order_already_final",
	ErrAccountNotApproved:         "account_not_approved",
	ErrAccountSuspended:           "account_suspended",
	ErrPaymentAuthorizationFailed: "payment_authorization_failed",
}

// AppError represents a structured application error with context
type AppError struct {
	Err        error
	StatusCode int
	Message    string
	Retryable  bool
	Context    map[string]interface{}
	cause      error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error()
}

// Unwrap returns the error kind and, when set, the underlying cause
func (e *AppError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Err, e.cause}
	}
	return []error{e.Err}
}

// Code returns the stable machine-readable code of the error kind
func (e *AppError) Code() string {
	if code, ok := codes[e.Err]; ok {
		return code
	}
	return codes[ErrInternal]
}

// WithContext adds additional context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCause attaches the underlying error that triggered this one
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// NewAppError creates a new AppError with the given parameters
func NewAppError(err error, message string, statusCode int, retryable bool) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
		Context:    make(map[string]interface{}),
	}
}

// IsRetryable checks if the error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr.Retryable
	}

	return errors.Is(err, ErrTemporaryFailure) ||
		errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrRateLimited)
}

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// FromError converts any error into an AppError, treating unknown errors as internal
func FromError(err error) *AppError {
	var appErr *AppError

	if errors.As(err, &appErr) {
		return appErr
	}

	return NewInternalError("internal server error").WithCause(err)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(message string) *AppError {
	return NewAppError(ErrNotFound, message, http.StatusNotFound, false)
}

// NewInvalidInputError creates an invalid input error
func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, false)
}

// NewUnauthenticatedError creates an error for a missing or invalid credential
func NewUnauthenticatedError(message string) *AppError {
	return NewAppError(ErrUnauthenticated, message, http.StatusUnauthorized, false)
}

// NewUnauthorizedError creates an error for a role or ownership mismatch
func NewUnauthorizedError(message string) *AppError {
	return NewAppError(ErrUnauthorized, message, http.StatusForbidden, false)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrConflict, message, http.StatusConflict, false)
}

// NewInternalError creates an internal server error
func NewInternalError(message string) *AppError {
	return NewAppError(ErrInternal, message, http.StatusInternalServerError, true)
}

// NewTemporaryError creates a temporary error
func NewTemporaryError(message string) *AppError {
	return NewAppError(ErrTemporaryFailure, message, http.StatusServiceUnavailable, true)
}

// NewServiceUnavailableError creates an error for a dependency that refuses calls
func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrServiceUnavailable, message, http.StatusServiceUnavailable, true)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(message string) *AppError {
	return NewAppError(ErrTimeout, message, http.StatusGatewayTimeout, true)
}

// NewRateLimitedError creates a rate limited error
func NewRateLimitedError(message string) *AppError {
	return NewAppError(ErrRateLimited, message, http.StatusTooManyRequests, true)
}

// NewInsufficientStockError reports a reservation larger than the available quantity
func NewInsufficientStockError(productID string, requested, available int) *AppError {
	return NewAppError(
		ErrInsufficientStock,
		fmt.Sprintf("only %d units available, %d requested", available, requested),
		http.StatusConflict,
		false,
	).WithContext("product_id", productID).
		WithContext("requested", requested).
		WithContext("available", available)
}

// NewBelowMinimumOrderError reports a reservation smaller than the product minimum
func NewBelowMinimumOrderError(productID string, requested, minimum int) *AppError {
	return NewAppError(
		ErrBelowMinimumOrder,
		fmt.Sprintf("minimum order quantity is %d, %d requested", minimum, requested),
		http.StatusUnprocessableEntity,
		false,
	).WithContext("product_id", productID).
		WithContext("requested", requested).
		WithContext("minimum", minimum)
}

// NewInvalidTransitionError reports a status change missing from the transition table
func NewInvalidTransitionError(from, to string) *AppError {
	return NewAppError(
		ErrInvalidTransition,
		fmt.Sprintf("cannot move order from %s to %s", from, to),
		http.StatusConflict,
		false,
	).WithContext("from", from).WithContext("to", to)
}

// NewOrderAlreadyFinalError reports a transition attempt on a terminal order
func NewOrderAlreadyFinalError(orderID, status string) *AppError {
	return NewAppError(
		ErrOrderAlreadyFinal,
		fmt.Sprintf("order is already %s and cannot change", status),
		http.StatusConflict,
		false,
	).WithContext("order_id", orderID).WithContext("status", status)
}

// NewAccountNotApprovedError reports a buyer whose account is not yet approved
func NewAccountNotApprovedError(userID string) *AppError {
	return NewAppError(
		ErrAccountNotApproved,
		"your account is awaiting admin approval",
		http.StatusForbidden,
		false,
	).WithContext("user_id", userID)
}

// NewAccountSuspendedError reports a suspended account
func NewAccountSuspendedError(userID, reason string) *AppError {
	message := "your account is suspended"
	if reason != "" {
		message = fmt.Sprintf("your account is suspended: %s", reason)
	}
	return NewAppError(ErrAccountSuspended, message, http.StatusForbidden, false).
		WithContext("user_id", userID)
}

// NewPaymentAuthorizationFailedError reports a payment the provider did not confirm
func NewPaymentAuthorizationFailedError(message string) *AppError {
	return NewAppError(ErrPaymentAuthorizationFailed, message, http.StatusPaymentRequired, false)
}
