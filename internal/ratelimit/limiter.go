// Package ratelimit provides in-process, per-client rate limiting for the
// analyze endpoint. Browser collection is expensive; the limiter keeps one
// noisy client from monopolizing the pool.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMin int // per-IP request budget per minute
	Burst          int // short-term burst allowance
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		RequestsPerMin: 30,
		Burst:          10,
	}
}

// Result represents the outcome of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	RetryAfter time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter tracks one token bucket per client IP.
type RateLimiter struct {
	config   Config
	mu       sync.Mutex
	limiters map[string]*clientLimiter
}

// NewRateLimiter creates a rate limiter and starts its janitor.
func NewRateLimiter(config Config) *RateLimiter {
	if config.RequestsPerMin <= 0 {
		config.RequestsPerMin = DefaultConfig().RequestsPerMin
	}
	if config.Burst <= 0 {
		config.Burst = DefaultConfig().Burst
	}

	rl := &RateLimiter{
		config:   config,
		limiters: make(map[string]*clientLimiter),
	}

	go rl.cleanup()

	return rl
}

// Check consumes one token for the client and reports whether the request
// may proceed.
func (rl *RateLimiter) Check(clientIP string) Result {
	rl.mu.Lock()
	cl, ok := rl.limiters[clientIP]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(float64(rl.config.RequestsPerMin)/60.0), rl.config.Burst),
		}
		rl.limiters[clientIP] = cl
	}
	cl.lastSeen = time.Now()
	rl.mu.Unlock()

	if cl.limiter.Allow() {
		return Result{Allowed: true, Limit: rl.config.RequestsPerMin}
	}

	return Result{
		Allowed:    false,
		Limit:      rl.config.RequestsPerMin,
		RetryAfter: time.Minute / time.Duration(rl.config.RequestsPerMin),
	}
}

// ActiveClients reports how many client buckets currently exist.
func (rl *RateLimiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

// cleanup drops buckets for clients not seen in a while.
func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-30 * time.Minute)
		rl.mu.Lock()
		for ip, cl := range rl.limiters {
			if cl.lastSeen.Before(cutoff) {
				delete(rl.limiters, ip)
			}
		}
		rl.mu.Unlock()
	}
}
