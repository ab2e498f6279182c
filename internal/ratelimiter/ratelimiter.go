// Package ratelimiter provides token-bucket admission control for the
// gateway dispatcher.
package ratelimiter

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter bounds the rate of admitted requests using the token bucket
// algorithm, wrapping golang.org/x/time/rate.
//
// Tokens refill continuously at the configured rate up to the bucket
// capacity; each admitted request consumes one token. Admission is checked
// before any path or policy work, so a rejected request costs O(1)
// regardless of request complexity.
//
// The limiter is the only state the gateway mutates across requests. It is
// an explicitly owned value injected into the dispatcher, never ambient
// global state, so tests construct isolated instances per case.
//
// All methods are safe for concurrent use; x/time/rate serializes bucket
// mutation internally.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter with the given sustained rate and bucket
// capacity.
//
// Special cases:
//   - requestsPerSecond = 0, burst > 0: the bucket never refills; exactly
//     burst requests are ever admitted. Useful for tests and hard caps.
//   - requestsPerSecond = 0, burst = 0: no limiting (unlimited).
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 && burst == 0 {
		// Effectively unlimited. rate.Inf has edge cases around burst
		// handling, so a very large finite rate is used instead.
		requestsPerSecond = 1_000_000_000
		burst = requestsPerSecond
	}

	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed, consuming one token on
// success. This is the fast path: it never blocks and never touches the
// filesystem.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// AllowN consumes n tokens at once if all are available. No tokens are
// consumed on failure.
func (r *RateLimiter) AllowN(n uint) bool {
	return r.limiter.AllowN(time.Now(), int(n))
}

// Wait blocks until a token is available or the context is cancelled.
// Used by callers that prefer throttling over rejection.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Tokens returns the current token count. The value may be fractional and
// is only a snapshot; it is intended for monitoring and tests.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}
