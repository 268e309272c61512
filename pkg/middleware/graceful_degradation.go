package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/vaidashi/garment-order-tracker/pkg/circuitbreaker"
	"github.com/vaidashi/garment-order-tracker/pkg/logger"
)

// GracefulDegradation sheds non-essential traffic while the API keeps failing
type GracefulDegradation struct {
	breaker        *circuitbreaker.CircuitBreaker
	logger         logger.Logger
	essentialPaths []string
}

// NewGracefulDegradation creates a new graceful degradation middleware.
// Requests whose path starts with one of essentialPaths are never shed.
func NewGracefulDegradation(logger logger.Logger, essentialPaths ...string) *GracefulDegradation {
	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.CircuitBreakerConfig{
		Name:             "api",
		FailureThreshold: 10,
		ResetTimeout:     30 * time.Second,
		HalfOpenMaxCalls: 5,
	})

	return &GracefulDegradation{
		breaker:        breaker,
		logger:         logger,
		essentialPaths: essentialPaths,
	}
}

// Middleware returns a middleware function
func (gd *GracefulDegradation) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		essential := gd.isEssential(r.URL.Path)

		if !essential && !gd.breaker.Allow() {
			gd.logger.Warn("Circuit is open, request rejected",
				"path", r.URL.Path,
				"method", r.Method,
				"state", gd.breaker.GetState())

			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "Service is temporarily unavailable. Please try again later.", "30")
			return
		}

		wrapped := NewStatusRecorder(w)
		next.ServeHTTP(wrapped, r)

		if essential {
			return
		}

		switch status := wrapped.Status(); {
		case status >= 500:
			gd.breaker.Failure()
		case status < 400:
			gd.breaker.Success()
		}
	})
}

func (gd *GracefulDegradation) isEssential(path string) bool {
	for _, prefix := range gd.essentialPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// StatusRecorder captures the status code written by a handler
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

// NewStatusRecorder wraps w, defaulting the status to 200
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader captures the status code and passes it to the wrapped ResponseWriter
func (sr *StatusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Status returns the recorded status code
func (sr *StatusRecorder) Status() int {
	return sr.status
}

// GetMetrics returns metrics about the circuit breaker
func (gd *GracefulDegradation) GetMetrics() map[string]interface{} {
	return gd.breaker.GetMetrics()
}

// Reset resets the circuit breaker
func (gd *GracefulDegradation) Reset() {
	gd.breaker.Reset()
}
