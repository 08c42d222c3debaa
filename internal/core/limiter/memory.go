package limiter

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int64
	resetAt time.Time
}

// Memory is the single-process fallback used when no Redis address is configured.
type Memory struct {
	mu      sync.Mutex
	limit   int64
	window  time.Duration
	entries map[string]*window
	now     func() time.Time
}

func NewMemory(limit int, w time.Duration) *Memory {
	return &Memory{limit: int64(limit), window: w, entries: map[string]*window{}, now: time.Now}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if len(m.entries) > 10_000 {
		m.sweep(now)
	}
	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &window{resetAt: now.Add(m.window)}
		m.entries[key] = e
	}
	e.count++
	return decide(e.count, m.limit, e.resetAt.Sub(now)), nil
}

func (m *Memory) sweep(now time.Time) {
	for k, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, k)
		}
	}
}
