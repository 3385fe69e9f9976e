// Package storage implements the blob stores behind the development volume
// server (cmd/volume) and the HTTP handler that exposes them over the volume
// protocol.
//
// # Overview
//
// A volume is deliberately dumb: it keeps opaque bytes under whatever
// relative path the coordinator chose and answers existence and fetch
// requests for that path. It knows nothing about keys, replicas or the
// index.
//
//	coordinator ──PUT /ac/bd/Zm9v──▶ volume ──▶ Store.Put("ac/bd/Zm9v", value)
//	client      ──GET /ac/bd/Zm9v──▶ volume ──▶ Store.Get("ac/bd/Zm9v")
//
// # Implementations
//
// MemoryStore: map behind sync.RWMutex
//   - No persistence (data lost on restart)
//   - Suitable for tests and local experiments
//
// DiskStore: one file per blob under a root directory
//   - Directory layout mirrors the blob path, so the coordinator's two hex
//     levels bound the entries per directory
//   - Writes go through a temporary file and rename
//
// # Path safety
//
// Paths are cleaned before use. Empty paths and paths that would escape the
// store root ("..") are rejected with ErrInvalidPath, which the handler
// reports as 400.
//
// # Concurrency
//
// Both stores are safe for concurrent use. Concurrent writes to the same
// path are last-writer-wins.
package storage
