// Package ratelimit throttles requests per key, usually a client IP, with
// one token bucket per key.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdleTTL is how long an unused key keeps its bucket.
const DefaultIdleTTL = 10 * time.Minute

type bucket struct {
	*rate.Limiter
	touched time.Time
}

// KeyedRateLimiter hands out one bucket per key and forgets keys that have
// been idle for the TTL, so memory tracks active clients only.
type KeyedRateLimiter struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a KeyedRateLimiter.
type Option func(*KeyedRateLimiter)

// WithIdleTTL sets how long an idle key is retained. Non-positive values
// are ignored.
func WithIdleTTL(d time.Duration) Option {
	return func(k *KeyedRateLimiter) {
		if d > 0 {
			k.idleTTL = d
		}
	}
}

// New allows each key rps requests per second with bursts of up to burst,
// and starts the eviction loop. Call Stop to end it.
func New(rps float64, burst int, opts ...Option) *KeyedRateLimiter {
	k := &KeyedRateLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		idleTTL: DefaultIdleTTL,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(k)
	}
	go k.evictLoop()
	return k
}

// Allow spends a token for key if one is available.
func (k *KeyedRateLimiter) Allow(key string) bool {
	ok, _ := k.Check(key)
	return ok
}

// Check is Allow that also reports, on refusal, how long until the next
// token for key. Refused checks spend nothing.
func (k *KeyedRateLimiter) Check(key string) (bool, time.Duration) {
	b, now := k.bucket(key)

	r := b.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Duration(math.MaxInt64)
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, delay
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.buckets)
}

// Stop ends the eviction loop. It is safe to call more than once.
func (k *KeyedRateLimiter) Stop() {
	k.stopOnce.Do(func() { close(k.stop) })
}

func (k *KeyedRateLimiter) bucket(key string) (*bucket, time.Time) {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	b, ok := k.buckets[key]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(k.limit, k.burst)}
		k.buckets[key] = b
	}
	b.touched = now
	return b, now
}

// evictIdle drops keys untouched for the idle TTL and returns how many.
func (k *KeyedRateLimiter) evictIdle() int {
	cutoff := k.now().Add(-k.idleTTL)

	k.mu.Lock()
	defer k.mu.Unlock()

	n := 0
	for key, b := range k.buckets {
		if b.touched.Before(cutoff) {
			delete(k.buckets, key)
			n++
		}
	}
	return n
}

func (k *KeyedRateLimiter) evictLoop() {
	t := time.NewTicker(k.idleTTL / 2)
	defer t.Stop()

	for {
		select {
		case <-k.stop:
			return
		case <-t.C:
			k.evictIdle()
		}
	}
}
