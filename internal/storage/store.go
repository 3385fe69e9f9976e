package storage

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
)

var (
	// ErrBlobNotFound is returned when no blob exists at a path
	ErrBlobNotFound = errors.New("blob not found")

	// ErrInvalidPath is returned for empty, absolute or escaping paths
	ErrInvalidPath = errors.New("invalid blob path")
)

// Store keeps raw blobs under slash-separated relative paths.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the blob at p
	// Returns ErrBlobNotFound if nothing is stored there
	Get(p string) ([]byte, error)

	// Put stores value at p, replacing any previous blob
	Put(p string, value []byte) error

	// Delete removes the blob at p
	// No error if nothing is stored there
	Delete(p string) error

	// Stats returns storage statistics
	Stats() (StoreStats, error)
}

// StoreStats contains statistics about a blob store
type StoreStats struct {
	Blobs int   `json:"blobs"` // Number of stored blobs
	Bytes int64 `json:"bytes"` // Total size of all blobs
}

// cleanPath validates a blob path and returns its canonical form.
func cleanPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	return clean, nil
}

// MemoryStore implements Store in memory
// Uses sync.RWMutex for thread-safe concurrent access
type MemoryStore struct {
	mu    sync.RWMutex      // Protects blobs
	blobs map[string][]byte // path -> blob
}

// NewMemoryStore creates an empty in-memory blob store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[string][]byte),
	}
}

// Get returns a copy of the blob so callers cannot modify the store
func (m *MemoryStore) Get(p string) ([]byte, error) {
	p, err := cleanPath(p)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	blob, exists := m.blobs[p]
	if !exists {
		return nil, ErrBlobNotFound
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

// Put stores a copy of value
func (m *MemoryStore) Put(p string, value []byte) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[p] = stored
	return nil
}

func (m *MemoryStore) Delete(p string) error {
	p, err := cleanPath(p)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, p)
	return nil
}

func (m *MemoryStore) Stats() (StoreStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := StoreStats{Blobs: len(m.blobs)}
	for _, blob := range m.blobs {
		stats.Bytes += int64(len(blob))
	}
	return stats, nil
}
