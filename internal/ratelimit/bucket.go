// Package ratelimit implements the token bucket that keeps agent
// invocations under the external request-rate limit. Refill is lazy:
// tokens accrue on demand from elapsed wall time, no background ticker.
package ratelimit

import (
	"time"
)

const (
	maxSleep = time.Second
	minSleep = time.Millisecond
)

// TokenBucket is a blocking admission gate. Capacity is the burst
// ceiling; tokens refill continuously at refillRate per second.
// Fractional balances are preserved between calls so slow-accumulating
// requests are never starved by truncation.
type TokenBucket struct {
	capacity   float64
	tokens     float64
	refillRate float64
	lastUpdate time.Time

	clock func() time.Time
	sleep func(time.Duration)
}

// Option customizes a TokenBucket.
type Option func(*TokenBucket)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(b *TokenBucket) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// WithSleep overrides the sleep function (primarily for tests).
func WithSleep(sleep func(time.Duration)) Option {
	return func(b *TokenBucket) {
		if sleep != nil {
			b.sleep = sleep
		}
	}
}

// NewTokenBucket creates a full bucket. capacity <= 0 or rate <= 0 fall
// back to the 60-per-minute defaults.
func NewTokenBucket(capacity int, refillRate float64, opts ...Option) *TokenBucket {
	if capacity <= 0 {
		capacity = 60
	}
	if refillRate <= 0 {
		refillRate = 1.0
	}
	b := &TokenBucket{
		capacity:   float64(capacity),
		tokens:     float64(capacity),
		refillRate: refillRate,
		clock:      time.Now,
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.lastUpdate = b.clock()
	return b
}

func (b *TokenBucket) refill() {
	now := b.clock()
	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * b.refillRate
		if b.tokens > b.capacity {
			b.tokens = b.capacity
		}
	}
	b.lastUpdate = now
}

// Acquire blocks until one token is available, then debits it.
func (b *TokenBucket) Acquire() {
	b.AcquireN(1)
}

// AcquireN blocks until n tokens are available, then debits them. It
// never fails and never times out. Sleeps are bounded to one second so
// the balance (and any caller-side cancellation flag) is re-checked at
// least that often. Requests above capacity are clamped to capacity,
// otherwise they could never be satisfied.
func (b *TokenBucket) AcquireN(n int) {
	need := float64(n)
	if need > b.capacity {
		need = b.capacity
	}
	for {
		b.refill()
		if b.tokens >= need {
			b.tokens -= need
			return
		}
		wait := time.Duration((need - b.tokens) / b.refillRate * float64(time.Second))
		if wait > maxSleep {
			wait = maxSleep
		}
		if wait < minSleep {
			// Floating-point residue can produce a near-zero wait that
			// truncates to no sleep at all; always yield some time so
			// the loop makes progress under any clock.
			wait = minSleep
		}
		b.sleep(wait)
	}
}

// Available returns the current token balance after a refill. Intended
// for status reporting, not admission decisions.
func (b *TokenBucket) Available() float64 {
	b.refill()
	return b.tokens
}
