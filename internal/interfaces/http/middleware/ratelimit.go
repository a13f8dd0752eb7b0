package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter tracks per-key token buckets in memory. Buckets refill all
// at once when their window elapses rather than dripping tokens, which is
// good enough for a single-process deployment.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	window  time.Duration
}

type bucket struct {
	tokens   int
	windowAt time.Time
}

// NewRateLimiter allocates a limiter granting limit requests per window
// and starts a background sweep of idle buckets.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
	}
	go rl.sweep(window * 2)
	return rl
}

// sweep drops buckets that have sat past their window long enough that
// they would be reset on the next request anyway.
func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, b := range rl.buckets {
			if now.Sub(b.windowAt) > rl.window*2 {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Allow consumes one token for key, returning false when the bucket for
// the current window is empty.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.windowAt) >= rl.window {
		// New key or stale window: start a fresh bucket with one
		// token already spent on this request.
		rl.buckets[key] = &bucket{tokens: rl.limit - 1, windowAt: now}
		return true
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// Remaining reports how many tokens key has left without consuming one.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || time.Since(b.windowAt) >= rl.window {
		return rl.limit
	}
	return b.tokens
}

func (rl *RateLimiter) setBudgetHeaders(c *gin.Context, key string) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(rl.Remaining(key)))
}

func rejectRateLimited(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// RateLimit limits by client IP, or by tenant+IP when the request carries
// an X-Tenant-ID header so one tenant cannot starve another behind a
// shared proxy.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if tenantID := c.GetHeader("X-Tenant-ID"); tenantID != "" {
			key = tenantID + ":" + key
		}

		if !limiter.Allow(key) {
			rejectRateLimited(c, "RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.")
			return
		}

		limiter.setBudgetHeaders(c, key)
		c.Next()
	}
}

// AuthRateLimit is the stricter variant for login and token endpoints.
// Keys carry an "auth:" prefix so the auth budget stays separate from the
// global limiter even when both see the same IP.
func AuthRateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "auth:" + c.ClientIP()

		if !limiter.Allow(key) {
			c.Header("Retry-After", strconv.Itoa(int(limiter.window.Seconds())))
			rejectRateLimited(c, "AUTH_RATE_LIMIT_EXCEEDED", "Too many authentication attempts. Please try again later.")
			return
		}

		limiter.setBudgetHeaders(c, key)
		c.Next()
	}
}

// RateLimitByKey limits by whatever keyFunc extracts from the request,
// for endpoints that meter on something other than the caller's address.
func RateLimitByKey(limiter *RateLimiter, keyFunc func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(keyFunc(c)) {
			rejectRateLimited(c, "RATE_LIMIT_EXCEEDED", "Too many requests. Please try again later.")
			return
		}
		c.Next()
	}
}
