package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/erp/acquisitions/internal/interfaces/http/dto"
)

// sweepEvery controls how often stale counters are evicted, measured in
// calls to take rather than wall time so the limiter needs no goroutine.
const sweepEvery = 4096

// RateLimiter is an in-memory fixed-window request counter keyed by
// caller identity. Counters for idle callers are swept lazily.
type RateLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	counts map[string]*windowCount
	takes  int
}

type windowCount struct {
	started time.Time
	n       int
}

// NewRateLimiter returns a limiter that admits at most limit requests per
// key within each window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		counts: make(map[string]*windowCount),
	}
}

// take records one request for key and reports whether it is admitted,
// how many requests remain in the current window, and how long until the
// window resets.
func (rl *RateLimiter) take(key string) (allowed bool, remaining int, retryAfter time.Duration) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.takes++
	if rl.takes%sweepEvery == 0 {
		rl.sweepLocked(now)
	}

	wc, ok := rl.counts[key]
	if !ok || now.Sub(wc.started) >= rl.window {
		wc = &windowCount{started: now}
		rl.counts[key] = wc
	}

	wc.n++
	remaining = rl.limit - wc.n
	if remaining < 0 {
		remaining = 0
	}
	return wc.n <= rl.limit, remaining, wc.started.Add(rl.window).Sub(now)
}

// Allow reports whether one more request for key fits in the current window.
func (rl *RateLimiter) Allow(key string) bool {
	allowed, _, _ := rl.take(key)
	return allowed
}

// Remaining reports how many requests key can still make in the current
// window without consuming one.
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	wc, ok := rl.counts[key]
	if !ok || time.Since(wc.started) >= rl.window {
		return rl.limit
	}
	remaining := rl.limit - wc.n
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (rl *RateLimiter) sweepLocked(now time.Time) {
	for key, wc := range rl.counts {
		if now.Sub(wc.started) >= rl.window {
			delete(rl.counts, key)
		}
	}
}

// KeyFunc derives the rate-limit key for a request.
type KeyFunc func(*gin.Context) string

// RateLimit limits requests per client IP and reports the budget through
// X-RateLimit-Limit and X-RateLimit-Remaining headers. Rejected requests
// get a Retry-After hint.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitByKey is RateLimit with a caller-supplied key, e.g. a vendor
// or API-client identifier instead of the network address.
func RateLimitByKey(limiter *RateLimiter, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		allowed, remaining, retryAfter := limiter.take(key(c))

		c.Header("X-RateLimit-Limit", strconv.Itoa(limiter.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			seconds := int(retryAfter.Seconds() + 0.999)
			if seconds < 1 {
				seconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(seconds))
			c.AbortWithStatusJSON(http.StatusTooManyRequests,
				dto.NewErrorResponseWithRequestID(
					dto.ErrCodeRateLimited,
					"Too many requests, retry later",
					c.GetString(RequestIDKey),
				))
			return
		}

		c.Next()
	}
}
