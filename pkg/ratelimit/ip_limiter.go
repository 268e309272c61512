package ratelimit

import (
	"sync"
	"time"
)

type clientBucket struct {
	bucket   *TokenBucket
	lastSeen time.Time
}

// IPRateLimiter rate limits based on client addresses
type IPRateLimiter struct {
	limiters   map[string]*clientBucket
	mu         sync.Mutex
	maxTokens  float64
	refillRate float64
	idleTTL    time.Duration
	cleanup    *time.Ticker
	stopChan   chan struct{}
	stopOnce   sync.Once
}

// NewIPRateLimiter creates a new IPRateLimiter
func NewIPRateLimiter(maxTokens, refillRate float64) *IPRateLimiter {
	limiter := &IPRateLimiter{
		limiters:   make(map[string]*clientBucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		idleTTL:    30 * time.Minute,
		cleanup:    time.NewTicker(10 * time.Minute),
		stopChan:   make(chan struct{}),
	}

	go limiter.cleanupLoop()

	return limiter
}

// Allow checks if a request from the given IP can proceed
func (ipl *IPRateLimiter) Allow(ip string) bool {
	return ipl.getLimiter(ip).Allow()
}

// Clients returns the number of addresses currently tracked
func (ipl *IPRateLimiter) Clients() int {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()
	return len(ipl.limiters)
}

func (ipl *IPRateLimiter) getLimiter(ip string) *TokenBucket {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	entry, exists := ipl.limiters[ip]
	if !exists {
		entry = &clientBucket{bucket: NewTokenBucket(ipl.maxTokens, ipl.refillRate)}
		ipl.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.bucket
}

// evictIdle drops buckets not used since before the cutoff
func (ipl *IPRateLimiter) evictIdle(cutoff time.Time) {
	ipl.mu.Lock()
	defer ipl.mu.Unlock()

	for ip, entry := range ipl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(ipl.limiters, ip)
		}
	}
}

func (ipl *IPRateLimiter) cleanupLoop() {
	for {
		select {
		case <-ipl.cleanup.C:
			ipl.evictIdle(time.Now().Add(-ipl.idleTTL))
		case <-ipl.stopChan:
			ipl.cleanup.Stop()
			return
		}
	}
}

// Stop stops the IP rate limiter
func (ipl *IPRateLimiter) Stop() {
	ipl.stopOnce.Do(func() { close(ipl.stopChan) })
}
