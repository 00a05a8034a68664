package account

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// loginLimiter holds one token bucket per username. Buckets idle for longer
// than ttl are evicted by a sweep that runs at most once per ttl, so a call
// costs O(1) between sweeps and a bucket lives at most 2*ttl after its last
// use.
type loginLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	ttl       time.Duration
	lastSweep time.Time
	entries   map[string]*limBucket
}

type limBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newLoginLimiter(limit rate.Limit, burst int, ttl time.Duration) *loginLimiter {
	return &loginLimiter{
		limit:   limit,
		burst:   burst,
		ttl:     ttl,
		entries: make(map[string]*limBucket),
	}
}

func (m *loginLimiter) allow(key string, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.entries[key]
	if b == nil {
		b = &limBucket{lim: rate.NewLimiter(m.limit, m.burst), lastSeen: now}
		m.entries[key] = b
	}
	b.lastSeen = now

	if now.Sub(m.lastSweep) >= m.ttl {
		m.lastSweep = now
		for k, v := range m.entries {
			if now.Sub(v.lastSeen) > m.ttl {
				delete(m.entries, k)
			}
		}
	}
	return b.lim.AllowN(now, 1)
}

// forget drops the bucket for key, e.g. after a successful login.
func (m *loginLimiter) forget(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

func (m *loginLimiter) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
