package ratelimit

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

type window struct {
	count   int
	resetAt time.Time
}

// MemoryStore keeps counters in process memory. It is only correct for a
// single instance.
type MemoryStore struct {
	mu        sync.Mutex
	windows   map[string]*window
	nextSweep time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]*window)}
}

func (m *MemoryStore) Hit(_ context.Context, key string, d time.Duration, now time.Time) (int, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if now.After(m.nextSweep) {
		m.sweep(now)
		m.nextSweep = now.Add(sweepInterval)
	}

	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		m.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt, nil
}

// Len reports how many windows are tracked.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *MemoryStore) sweep(now time.Time) {
	for k, w := range m.windows {
		if !now.Before(w.resetAt) {
			delete(m.windows, k)
		}
	}
}
