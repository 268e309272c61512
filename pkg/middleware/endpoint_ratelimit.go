package middleware

import (
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/ratelimit"
)

// EndpointRateLimiterMiddleware provides per-endpoint rate limiting.
// Endpoints are keyed by method and route template, e.g. "POST:/api/v1/orders/{id}/approve".
type EndpointRateLimiterMiddleware struct {
	limiters      map[string]*ratelimit.TokenBucket
	mu            sync.RWMutex
	defaultTokens float64
	defaultRate   float64
	logger        logger.Logger
}

// NewEndpointRateLimiterMiddleware creates a new EndpointRateLimiterMiddleware
func NewEndpointRateLimiterMiddleware(defaultTokens, defaultRate float64, logger logger.Logger) *EndpointRateLimiterMiddleware {
	return &EndpointRateLimiterMiddleware{
		limiters:      make(map[string]*ratelimit.TokenBucket),
		defaultTokens: defaultTokens,
		defaultRate:   defaultRate,
		logger:        logger,
	}
}

// SetLimit sets the rate limit for a specific endpoint
func (m *EndpointRateLimiterMiddleware) SetLimit(endpoint string, maxTokens, refillRate float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.limiters[endpoint] = ratelimit.NewTokenBucket(maxTokens, refillRate)
}

func (m *EndpointRateLimiterMiddleware) getLimiter(endpoint string) *ratelimit.TokenBucket {
	m.mu.RLock()
	limiter, exists := m.limiters[endpoint]
	m.mu.RUnlock()

	if exists {
		return limiter
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if limiter, exists = m.limiters[endpoint]; exists {
		return limiter
	}

	limiter = ratelimit.NewTokenBucket(m.defaultTokens, m.defaultRate)
	m.limiters[endpoint] = limiter
	return limiter
}

// EndpointKey returns the limiter key for a request
func EndpointKey(r *http.Request) string {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			path = tmpl
		}
	}
	return r.Method + ":" + path
}

// Middleware returns a middleware function for per-endpoint rate limiting
func (m *EndpointRateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		endpoint := EndpointKey(r)

		if !m.getLimiter(endpoint).Allow() {
			m.logger.Warn("Endpoint rate limit exceeded",
				"endpoint", endpoint,
				"method", r.Method,
				"path", r.URL.Path)

			writeError(w, http.StatusTooManyRequests, "rate_limited", "Endpoint rate limit exceeded. Please try again later.", "5")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetAllLimits returns all configured endpoint limits
func (m *EndpointRateLimiterMiddleware) GetAllLimits() map[string]map[string]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]map[string]float64, len(m.limiters))

	for endpoint, limiter := range m.limiters {
		result[endpoint] = map[string]float64{
			"max_tokens":  limiter.MaxTokens(),
			"refill_rate": limiter.RefillRate(),
			"available":   limiter.Available(),
		}
	}

	return result
}
