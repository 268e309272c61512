package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements a token bucket rate limiting algorithm
type TokenBucket struct {
	tokens         float64
	maxTokens      float64
	refillRate     float64
	lastRefillTime time.Time
	mutex          sync.Mutex
}

// NewTokenBucket creates a new token bucket rate limiter
func NewTokenBucket(maxTokens float64, refillRate float64) *TokenBucket {
	return &TokenBucket{
		tokens:         maxTokens,
		maxTokens:      maxTokens,
		refillRate:     refillRate,
		lastRefillTime: time.Now(),
	}
}

// Allow checks if a request can proceed based on the token bucket algorithm
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if n requests should be allowed based on available tokens
func (tb *TokenBucket) AllowN(n float64) bool {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill(time.Now())

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}
	return false
}

func (tb *TokenBucket) refill(now time.Time) {
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now
	tb.tokens = min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
}

// Reset resets the token bucket to its initial state
func (tb *TokenBucket) Reset() {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.tokens = tb.maxTokens
	tb.lastRefillTime = time.Now()
}

// Available returns the number of available tokens in the bucket
func (tb *TokenBucket) Available() float64 {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	elapsed := time.Since(tb.lastRefillTime).Seconds()
	return min(tb.maxTokens, tb.tokens+elapsed*tb.refillRate)
}

// MaxTokens returns the bucket capacity
func (tb *TokenBucket) MaxTokens() float64 {
	return tb.maxTokens
}

// RefillRate returns the current refill rate in tokens per second
func (tb *TokenBucket) RefillRate() float64 {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()
	return tb.refillRate
}

// SetRefillRate changes the refill rate, crediting tokens earned at the old rate first
func (tb *TokenBucket) SetRefillRate(rate float64) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill(time.Now())
	tb.refillRate = rate
}
