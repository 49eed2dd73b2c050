// Package ratelimit provides a per-host token bucket used to pace
// outbound requests against the city's servers. It is an explicit,
// constructed component passed to the fetchers rather than ambient global
// state, so tests can instantiate isolated instances.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter implements token bucket rate limiting keyed by host.
type Limiter struct {
	perMinute int
	burst     int

	mu      sync.Mutex
	buckets map[string]*bucket
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// New creates a limiter allowing perMinute requests per host with the
// given burst size. Zero or negative values fall back to defaults.
func New(perMinute, burst int) *Limiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 5
	}
	return &Limiter{
		perMinute: perMinute,
		burst:     burst,
		buckets:   make(map[string]*bucket),
	}
}

// Wait blocks until a token is available for host or ctx is done.
func (l *Limiter) Wait(ctx context.Context, host string) error {
	for {
		ok, retry := l.allow(host)
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

// allow consumes a token if one is available, otherwise reports how long
// until the next token.
func (l *Limiter) allow(host string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, ok := l.buckets[host]
	if !ok {
		b = &bucket{tokens: float64(l.burst), lastRefill: now}
		l.buckets[host] = b
	}

	perSecond := float64(l.perMinute) / 60.0
	b.tokens += now.Sub(b.lastRefill).Seconds() * perSecond
	if b.tokens > float64(l.burst) {
		b.tokens = float64(l.burst)
	}
	b.lastRefill = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}

	wait := time.Duration((1 - b.tokens) / perSecond * float64(time.Second))
	return false, wait
}
