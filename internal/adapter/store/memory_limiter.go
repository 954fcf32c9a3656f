package store

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MemoryLimiter is the single-process fallback used when no Redis address is
// configured. Each session gets a token bucket refilling limit tokens per
// window.
type MemoryLimiter struct {
	mu       sync.Mutex
	sessions map[string]*sessionBucket
	limit    int
	window   time.Duration
	now      func() time.Time
}

type sessionBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewMemoryLimiter(limit int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		sessions: make(map[string]*sessionBucket),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, sessionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	b, ok := m.sessions[sessionID]
	if !ok {
		every := rate.Every(m.window / time.Duration(max(m.limit, 1)))
		b = &sessionBucket{limiter: rate.NewLimiter(every, m.limit)}
		m.sessions[sessionID] = b
	}
	b.lastSeen = now
	m.evictIdle(now)
	return b.limiter.AllowN(now, 1), nil
}

func (m *MemoryLimiter) evictIdle(now time.Time) {
	if len(m.sessions) < 10000 {
		return
	}
	for id, b := range m.sessions {
		if now.Sub(b.lastSeen) > m.window {
			delete(m.sessions, id)
		}
	}
}
