package store

import (
	"context"
	"sync"
	"time"

	"shopchat/internal/domain/entity"
)

// MemoryLimiter is the in-process fallback used when Redis is not
// configured. Same sliding-window semantics as RedisLimiter, scoped to
// a single instance.
type MemoryLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	window time.Duration
	budget int
	nowFn  func() time.Time
}

func NewMemoryLimiter(window time.Duration, budget int) *MemoryLimiter {
	return &MemoryLimiter{
		hits:   make(map[string][]time.Time),
		window: window,
		budget: budget,
		nowFn:  time.Now,
	}
}

func (m *MemoryLimiter) Admit(_ context.Context, identity string) (entity.AdmitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.nowFn()
	cutoff := now.Add(-m.window)

	kept := m.hits[identity][:0]
	for _, t := range m.hits[identity] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= m.budget {
		m.hits[identity] = kept
		return entity.AdmitResult{Allowed: false, Limit: m.budget, Remaining: 0}, nil
	}

	m.hits[identity] = append(kept, now)
	return entity.AdmitResult{
		Allowed:   true,
		Limit:     m.budget,
		Remaining: m.budget - len(kept) - 1,
	}, nil
}
