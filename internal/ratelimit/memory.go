package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Limiter for single-instance deployments.
// The map is process-wide state; expired entries are pruned opportunistically
// on each call so it stays bounded under normal traffic. It does not
// coordinate across instances; use RedisStore for that.
type MemoryStore struct {
	mu      sync.Mutex
	rule    Rule
	entries map[string]*entry

	now func() time.Time
}

type entry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStore returns a store enforcing rule.
func NewMemoryStore(rule Rule) *MemoryStore {
	return &MemoryStore{
		rule:    rule,
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Allow implements Limiter. It never returns an error.
func (m *MemoryStore) Allow(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if key != id && !e.resetAt.After(now) {
			delete(m.entries, key)
		}
	}

	e, ok := m.entries[id]
	if !ok || !e.resetAt.After(now) {
		m.entries[id] = &entry{count: 1, resetAt: now.Add(m.rule.Window)}
		return 1 <= m.rule.Limit, nil
	}
	e.count++
	return e.count <= m.rule.Limit, nil
}

// Remaining reports how many attempts id has left in its current window.
func (m *MemoryStore) Remaining(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok || !e.resetAt.After(m.now()) {
		return m.rule.Limit
	}
	left := m.rule.Limit - e.count
	if left < 0 {
		return 0
	}
	return left
}
