package core

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryPolicy decides how long the controller waits before the next
// list or watch attempt after a failure. Next is called once per
// failure, Reset after a success.
type RetryPolicy interface {
	Next() time.Duration
	Reset()
}

type immediate struct{}

func (immediate) Next() time.Duration { return 0 }
func (immediate) Reset()              {}

// Immediate retries without delay.
func Immediate() RetryPolicy {
	return immediate{}
}

// Backoff implements exponential backoff capped at a maximum. It is
// not safe for concurrent use; give each controller its own.
type Backoff struct {
	base    time.Duration
	max     time.Duration
	current time.Duration
}

// NewBackoff returns a Backoff starting at base and doubling up to max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{base: base, max: max, current: base}
}

// Next returns a jittered delay based on the current backoff interval,
// then doubles the interval for the next call. Full jitter (uniform
// random between 0 and current) keeps many watchers from reconnecting
// in lockstep after an API server restart.
func (b *Backoff) Next() time.Duration {
	d := b.current
	if d <= 0 {
		return 0
	}
	jittered := time.Duration(rand.Int64N(int64(d) + 1))
	if next := b.current * 2; next > b.max {
		b.current = b.max
	} else {
		b.current = next
	}
	return jittered
}

// Reset sets the delay back to the base value.
func (b *Backoff) Reset() {
	b.current = b.base
}

// sleepCtx blocks for d or until ctx is done.
// Returns true if the sleep completed (context still alive).
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
