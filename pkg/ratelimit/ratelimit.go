package ratelimit

import (
	"context"
	"math/rand"
	"time"
)

// Pacer spaces consecutive requests to the same provider by sleeping for a
// random duration inside [Min, Max]. Scraped search endpoints tolerate slow,
// jittered clients far better than fixed-interval ones, so the delay is drawn
// fresh on every Wait. Safe for concurrent use.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer creates a pacer sleeping between min and max per Wait call.
// If max <= min the pacer always sleeps exactly min. A nil pacer or a
// non-positive min and max disables pacing entirely.
func NewPacer(min, max time.Duration) *Pacer {
	if min < 0 {
		min = 0
	}
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max}
}

// Wait blocks for the next randomized delay, or until the context is
// canceled. A nil Pacer never blocks.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	d := p.delay()
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Pacer) delay() time.Duration {
	if p.max <= p.min {
		return p.min
	}
	spread := p.max - p.min
	return p.min + time.Duration(rand.Int63n(int64(spread)))
}
