// Package ratelimit paces sequential requests to a destination service.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/tasklift/internal/core/domain"
	"github.com/custodia-labs/tasklift/internal/core/ports/driven"
)

// Ensure Limiter implements the interface.
var _ driven.Limiter = (*Limiter)(nil)

// Config holds rate limiting configuration for a destination.
type Config struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultBackoff is used when a rate-limit response carries no delay.
const DefaultBackoff = 60 * time.Second

// DefaultLimits are conservative defaults well below the published quotas.
var DefaultLimits = map[domain.Destination]Config{
	domain.DestinationTodo:     {RequestsPerSecond: 4.0, BurstSize: 4},
	domain.DestinationCalendar: {RequestsPerSecond: 5.0, BurstSize: 10},
}

// Limiter is a token bucket with a backoff window set by 429 responses.
type Limiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// New creates a limiter for dest using DefaultLimits.
func New(dest domain.Destination) *Limiter {
	cfg, ok := DefaultLimits[dest]
	if !ok {
		cfg = Config{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewWithConfig(cfg)
}

// NewWithConfig creates a limiter with custom configuration.
func NewWithConfig(cfg Config) *Limiter {
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request can be made. It honours any backoff window
// set by Backoff before taking a token from the bucket.
func (l *Limiter) Wait(ctx context.Context) error {
	if d := l.pause(); d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	return l.limiter.Wait(ctx)
}

// Backoff delays subsequent requests by retryAfter, or DefaultBackoff
// when retryAfter is not positive. An earlier deadline never shortens a
// later one already in force.
func (l *Limiter) Backoff(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultBackoff
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if at := l.now().Add(retryAfter); at.After(l.retryAt) {
		l.retryAt = at
	}
}

func (l *Limiter) pause() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.retryAt.Sub(l.now())
}
