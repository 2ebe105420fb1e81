package resilience

import (
	"math/rand"
	"time"
)

// Backoff produces exponentially increasing retry delays with jitter,
// capped at a maximum and reset to the base on success. The jitter source
// is injectable so tests stay deterministic.
type Backoff struct {
	current time.Duration
	last    time.Duration
	base    time.Duration
	max     time.Duration
	jitter  func() float64 // in [0,1); nil means math/rand
}

// NewBackoff builds a backoff starting at base and doubling up to max.
func NewBackoff(base, max time.Duration) *Backoff {
	return &Backoff{current: base, base: base, max: max}
}

// WithJitter overrides the jitter source. Passing nil restores math/rand.
func (b *Backoff) WithJitter(fn func() float64) *Backoff {
	b.jitter = fn
	return b
}

// NextDelay returns the delay to wait before the next attempt and advances
// the schedule. Jitter is +/-10% of the undithered delay. Within one streak
// delays never decrease: once the schedule sits at the cap a jittered value
// below the previously returned delay is clamped up to it.
func (b *Backoff) NextDelay() time.Duration {
	delay := b.current
	b.current = min(b.current*2, b.max)

	r := rand.Float64
	if b.jitter != nil {
		r = b.jitter
	}
	factor := 0.9 + 0.2*r()
	jittered := time.Duration(float64(delay) * factor)
	if jittered < time.Second {
		jittered = time.Second
	}
	if jittered < b.last {
		jittered = b.last
	}
	b.last = jittered
	return jittered
}

// Peek reports the next undithered delay without advancing the schedule.
func (b *Backoff) Peek() time.Duration {
	return b.current
}

// Reset returns the schedule to the base delay and ends the streak.
func (b *Backoff) Reset() {
	b.current = b.base
	b.last = 0
}
