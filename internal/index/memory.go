package index

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"
)

// MemoryStore keeps the index in a map guarded by a sync.RWMutex.
// Everything is lost when the process exits, so it only suits development
// and tests.
type MemoryStore struct {
	mu      sync.RWMutex        // Protects entries
	entries map[string][]string // key -> replica set
}

// NewMemoryStore creates an empty in-memory index.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string][]string),
	}
}

// Get returns a copy of the replica set so callers cannot mutate the index.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	volumes, exists := m.entries[key]
	if !exists {
		return nil, ErrNotFound
	}
	return slices.Clone(volumes), nil
}

// Create checks and inserts under one exclusive lock, which is what makes it
// atomic.
func (m *MemoryStore) Create(ctx context.Context, key string, volumes []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; exists {
		return ErrExists
	}
	m.entries[key] = slices.Clone(volumes)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists {
		return ErrNotFound
	}
	delete(m.entries, key)
	return nil
}

// Len returns the number of indexed keys.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *MemoryStore) Close() error { return nil }
