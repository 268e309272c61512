package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/vaidashi/garment-order-tracker/pkg/logger"
	"github.com/vaidashi/garment-order-tracker/pkg/ratelimit"
)

// RateLimiterMiddleware applies a global adaptive limit and a per-client limit
type RateLimiterMiddleware struct {
	globalLimiter     *ratelimit.AdaptiveRateLimiter
	ipLimiter         *ratelimit.IPRateLimiter
	logger            logger.Logger
	trustForwardedFor bool
}

// RateLimiterConfig configures the rate limiter middleware
type RateLimiterConfig struct {
	GlobalMaxTokens   float64
	GlobalMaxRate     float64
	GlobalMinRate     float64
	GlobalThreshold   float64
	IPMaxTokens       float64
	IPRefillRate      float64
	TrustForwardedFor bool
}

// NewRateLimiterMiddleware creates a new rate limiter middleware
func NewRateLimiterMiddleware(cfg *RateLimiterConfig, logger logger.Logger) *RateLimiterMiddleware {
	return &RateLimiterMiddleware{
		globalLimiter: ratelimit.NewAdaptiveRateLimiter(
			cfg.GlobalMaxTokens,
			cfg.GlobalMaxRate,
			cfg.GlobalMinRate,
			cfg.GlobalThreshold,
		),
		ipLimiter: ratelimit.NewIPRateLimiter(
			cfg.IPMaxTokens,
			cfg.IPRefillRate,
		),
		logger:            logger,
		trustForwardedFor: cfg.TrustForwardedFor,
	}
}

// Middleware returns a middleware function
func (m *RateLimiterMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.globalLimiter.Allow() {
			m.logger.Warn("Global rate limit exceeded", "method", r.Method, "path", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "Global rate limit exceeded. Please try again later.", "10")
			return
		}

		ip := m.clientIP(r)

		if !m.ipLimiter.Allow(ip) {
			m.logger.Warn("IP rate limit exceeded", "method", r.Method, "path", r.URL.Path, "ip", ip)
			writeError(w, http.StatusTooManyRequests, "rate_limited", "IP rate limit exceeded. Please try again later.", "60")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimiterMiddleware) clientIP(r *http.Request) string {
	if m.trustForwardedFor {
		if forwardedFor := r.Header.Get("X-Forwarded-For"); forwardedFor != "" {
			ips := strings.Split(forwardedFor, ",")
			return strings.TrimSpace(ips[0])
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Stop stops the rate limiters
func (m *RateLimiterMiddleware) Stop() {
	m.globalLimiter.Stop()
	m.ipLimiter.Stop()
}

// GetMetrics returns metrics about rate limiting
func (m *RateLimiterMiddleware) GetMetrics() map[string]interface{} {
	metrics := m.globalLimiter.GetMetrics()
	metrics["tracked_clients"] = m.ipLimiter.Clients()
	return metrics
}

// Reset clears the global limiter counters
func (m *RateLimiterMiddleware) Reset() {
	m.globalLimiter.Reset()
}
