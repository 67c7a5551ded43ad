// Package ratelimit provides client-side pacing between successive
// page requests so probing loops do not overwhelm the remote service.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum interval between consecutive calls to Wait.
// The first call never blocks. Retry backoff is handled separately by
// the executor; the pacer only spaces out successive pages.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewPacer creates a pacer with the given minimum interval. A
// non-positive interval disables pacing.
func NewPacer(interval time.Duration) *Pacer {
	return &Pacer{interval: interval}
}

// Wait blocks until the interval since the previous call has elapsed,
// or the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil || p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	remaining := p.interval - now.Sub(p.last)
	if remaining <= 0 {
		p.last = now
		p.mu.Unlock()
		return nil
	}
	p.last = now.Add(remaining)
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(remaining):
		return nil
	}
}
