package cache

import (
	"context"
	"sync"

	"github.com/jgoulah/velocount/internal/source"
)

// Memory memoizes the snapshot of an underlying data source until
// Invalidate is called
type Memory struct {
	next source.DataSource

	mu   sync.Mutex
	snap *source.Snapshot
}

// NewMemory wraps a data source with an in-memory cache
func NewMemory(next source.DataSource) *Memory {
	return &Memory{next: next}
}

// Load returns the cached snapshot, fetching it on first use. Concurrent
// callers on a cold cache share one fetch. Failures are not cached.
func (m *Memory) Load(ctx context.Context) (*source.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap != nil {
		return m.snap, nil
	}

	snap, err := m.next.Load(ctx)
	if err != nil {
		return nil, err
	}
	m.snap = snap
	return snap, nil
}

// Invalidate drops the cached snapshot
func (m *Memory) Invalidate() error {
	m.mu.Lock()
	m.snap = nil
	m.mu.Unlock()

	if inv, ok := m.next.(source.Invalidator); ok {
		return inv.Invalidate()
	}
	return nil
}

// Cached reports whether a snapshot is currently held
func (m *Memory) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap != nil
}
