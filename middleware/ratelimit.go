package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
)

// RateLimiter implements a simple in-memory per-key sliding-window limiter.
// Generation requests tie up the local model for seconds at a time, so the
// assist endpoints get a per-IP budget.
type RateLimiter struct {
	requests  map[string][]time.Time
	mutex     sync.Mutex
	limit     int
	window    time.Duration
	lastSweep time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests:  make(map[string][]time.Time),
		limit:     limit,
		window:    window,
		lastSweep: time.Now(),
	}
}

// Allow checks if a request from the given key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	// Idle keys are only touched when their client returns, so sweep the whole
	// map once per window to keep it from growing with one-off IPs.
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	var valid []time.Time
	for _, t := range rl.requests[key] {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	rl.requests[key] = valid

	if len(rl.requests[key]) < rl.limit {
		rl.requests[key] = append(rl.requests[key], now)
		return true
	}
	return false
}

// sweep drops keys whose recorded requests have all aged out. Callers must
// hold rl.mutex.
func (rl *RateLimiter) sweep(cutoff time.Time) {
	for key, times := range rl.requests {
		expired := true
		for _, t := range times {
			if t.After(cutoff) {
				expired = false
				break
			}
		}
		if expired {
			delete(rl.requests, key)
		}
	}
}

// RateLimitMiddleware creates a per-IP rate limiting middleware
func RateLimitMiddleware(limit int, window time.Duration) gin.HandlerFunc {
	limiter := NewRateLimiter(limit, window)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		if !limiter.Allow(clientIP) {
			log.Warnf("Rate limit exceeded for IP: %s", clientIP)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
