// Package index is the coordinator's durable key → replica set mapping.
//
// The coordinator depends only on the Store interface. Backends are chosen
// at startup with Open and are interchangeable as long as they keep the
// atomic create-if-absent contract of Store.Create.
package index

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNotFound is returned by Get and Delete when the key is not indexed.
	ErrNotFound = errors.New("key not indexed")

	// ErrExists is returned by Create when the key is already indexed.
	ErrExists = errors.New("key already indexed")
)

// Store maps keys to the ordered replica set their blob was written to.
// Entries are created once, never updated, and removed only by Delete.
// All implementations must be safe for concurrent use.
type Store interface {
	// Get returns the replica set recorded for key.
	// Returns ErrNotFound if the key is not indexed.
	Get(ctx context.Context, key string) ([]string, error)

	// Create records volumes as the replica set of key if, and only if, key
	// is not indexed yet. Among concurrent calls for the same new key exactly
	// one succeeds; the others get ErrExists. A failed Create leaves no entry.
	Create(ctx context.Context, key string, volumes []string) error

	// Delete removes the entry for key.
	// Returns ErrNotFound if the key is not indexed.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// encodeVolumes is the persisted form of a replica set.
func encodeVolumes(volumes []string) string {
	return strings.Join(volumes, ",")
}

func decodeVolumes(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
