package authclient

import (
	"context"
	"sync"
)

// Storage is a durable key/value store shared by the whole process.
// SetAll and Delete must apply all keys or none.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	SetAll(ctx context.Context, entries map[string]string) error
	Delete(ctx context.Context, keys ...string) error
}

// MemoryStorage keeps entries in process memory. Useful for tests and for
// short lived tools that don't need to survive a restart.
type MemoryStorage struct {
	mu      sync.RWMutex
	entries map[string]string
}

var _ Storage = &MemoryStorage{}

// NewMemoryStorage returns an empty MemoryStorage
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{entries: make(map[string]string)}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.entries[key]
	return val, ok, nil
}

func (m *MemoryStorage) SetAll(_ context.Context, entries map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string, len(entries))
	}
	for k, v := range entries {
		m.entries[k] = v
	}
	return nil
}

func (m *MemoryStorage) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Len returns the number of stored entries
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
