// Package ratelimit implements the serial minimum-interval gate placed in
// front of the search query call path.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces calls to one external endpoint at least
// 1/requests-per-second apart. Concurrent callers serialize through the
// gate; extraction fetches against arbitrary third-party hosts do not go
// through it.
type Limiter struct {
	limiter *rate.Limiter
}

// New builds a Limiter. A zero or negative rate is a configuration error.
func New(requestsPerSecond float64) (*Limiter, error) {
	if requestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be > 0, got %v", requestsPerSecond)
	}
	// Burst 1 keeps the gate strictly serial: one token regenerating at
	// the configured rate.
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}, nil
}

// Wait blocks until the minimum interval since the previous admitted call
// has elapsed, respecting the context.
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

// Interval reports the minimum spacing between admitted calls.
func (l *Limiter) Interval() time.Duration {
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}
