// internal/utils/rate_limiter.go

package utils

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter caps the frequency of expensive calls, primarily live
// browser DOM queries during selector learning.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiterWithBurst builds a limiter admitting requestsPerSecond
// sustained, with bursts up to burst. A burst below one is raised to
// one so Wait can always make progress.
func NewRateLimiterWithBurst(requestsPerSecond float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

// Wait blocks until the limiter admits the next call or ctx ends.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}
