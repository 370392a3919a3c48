package snapshot

import (
	"sync"

	"bookmart/pkg/domain"
)

// MemoryStore keeps snapshots in-process. Suited to single-instance
// deployments and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Mirror
}

// NewMemoryStore initializes an empty in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string]domain.Mirror)}
}

// Save stores or replaces a snapshot.
func (m *MemoryStore) Save(key string, mirror domain.Mirror) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.LineItem, len(mirror.Items))
	copy(items, mirror.Items)
	mirror.Items = items
	m.snapshots[key] = mirror
	return nil
}

// Load returns the snapshot for key if one exists.
func (m *MemoryStore) Load(key string) (domain.Mirror, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mirror, ok := m.snapshots[key]
	if !ok {
		return domain.Mirror{}, false, nil
	}
	items := make([]domain.LineItem, len(mirror.Items))
	copy(items, mirror.Items)
	mirror.Items = items
	return mirror, true, nil
}

// Delete removes a snapshot; absent keys are a no-op.
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snapshots, key)
	return nil
}
