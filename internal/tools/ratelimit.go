package tools

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter throttles calls per tool name with a token bucket.
// A nil *RateLimiter allows everything.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows requests calls per window for each tool, with a
// burst of requests. It returns nil when either value is not positive.
func NewRateLimiter(requests int, window time.Duration) *RateLimiter {
	if requests <= 0 || window <= 0 {
		return nil
	}
	return &RateLimiter{
		limit:    rate.Limit(float64(requests) / window.Seconds()),
		burst:    requests,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a call to tool may proceed now.
func (r *RateLimiter) Allow(tool string) bool {
	if r == nil {
		return true
	}

	r.mu.Lock()
	lim, ok := r.limiters[tool]
	if !ok {
		lim = rate.NewLimiter(r.limit, r.burst)
		r.limiters[tool] = lim
	}
	r.mu.Unlock()

	return lim.Allow()
}
