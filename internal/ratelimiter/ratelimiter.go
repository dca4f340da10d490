// Package ratelimiter provides token bucket rate limiting for object store
// traffic.
//
// S3-compatible backends throttle aggressively under burst load (HTTP 503
// SlowDown). Recursive deletes and listing hydration fan out many requests at
// once, so the store client funnels every primitive call through a limiter.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter wraps golang.org/x/time/rate with the semantics the store
// clients need:
//   - token bucket limiting with burst capacity
//   - context-aware waiting
//   - zero-value rate meaning "unlimited"
//
// Thread safety: all methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained throughput
// with the given burst capacity.
//
// A requestsPerSecond of 0 disables limiting (an effectively unlimited rate
// is installed; rate.Inf has edge cases around SetLimit, so a large finite
// value is used instead).
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed right now, consuming a token
// if so. This is the non-blocking fast path.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// AllowN consumes n tokens if all are available. Useful for batch calls
// (e.g. DeleteObjects with n keys).
func (r *RateLimiter) AllowN(n uint) bool {
	return r.limiter.AllowN(time.Now(), int(n))
}

// Wait blocks until a token is available or ctx is cancelled.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// WaitN blocks until n tokens are available or ctx is cancelled.
func (r *RateLimiter) WaitN(ctx context.Context, n uint) error {
	return r.limiter.WaitN(ctx, int(n))
}

// Tokens returns the current number of available tokens. Monitoring only;
// the value may be stale immediately.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
