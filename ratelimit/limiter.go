// Package ratelimit throttles login attempts per client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter decides whether key may make another attempt now.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// Memory is a token bucket per key held in process memory.
type Memory struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	perSecond rate.Limit
	burst     int
	idleTTL   time.Duration
	now       func() time.Time
}

var _ Limiter = (*Memory)(nil)

func NewMemory(perSecond float64, burst int) *Memory {
	if burst < 1 {
		burst = 1
	}
	return &Memory{
		buckets:   make(map[string]*bucket),
		perSecond: rate.Limit(perSecond),
		burst:     burst,
		idleTTL:   5 * time.Minute,
		now:       time.Now,
	}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(m.perSecond, m.burst)}
		m.buckets[key] = b
	}
	b.seen = now
	return b.lim.AllowN(now, 1), nil
}

// Sweep drops buckets idle for longer than the idle TTL.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, b := range m.buckets {
		if now.Sub(b.seen) > m.idleTTL {
			delete(m.buckets, k)
		}
	}
}

// Run sweeps every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.buckets)
}
