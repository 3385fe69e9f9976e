// Package coordinator implements the traffic-director in front of the
// volume servers: it decides where each key lives, replicates writes, and
// answers reads with a redirect to a live replica.
//
// # Overview
//
// The coordinator never stores values. Volumes hold the bytes under a path
// derived from the key; the coordinator holds only the index, which maps a
// key to the ordered replica set its bytes were written to.
//
//	             ┌──────────────────────────────┐
//	 client ───▶ │          Coordinator          │
//	             │  Handler → Service            │
//	             │    placement.Place / Path     │
//	             │    index.Store (commit)       │
//	             └──────┬─────────┬─────────┬────┘
//	                    ▼         ▼         ▼
//	                 volume    volume    volume
//
// # Write protocol (PUT /{key})
//
//  1. Empty value → 400, nothing is touched
//  2. Key already indexed → 409, no volume is contacted
//  3. Replica set = placement.Place(key, volumes, replicas)
//  4. PUT the value at placement.Path(key) on every replica in parallel;
//     the first failure cancels the others → 503, index untouched
//  5. index.Store.Create(key, replicas); lost race → 409, else 201
//
// The index entry is created strictly after every replica acknowledged, so
// an entry never points at a replica that lacks the blob.
//
// # Read protocol (GET /{key})
//
//  1. Key not indexed → 404 without any network call
//  2. HEAD each replica in stored order; the first 2xx wins → 302 with
//     Location set to that blob and Key-Volumes listing the whole set
//  3. No replica answers → 404
//
// A 404 therefore means "absent or currently unreachable". Clients that need
// to tell these apart cannot; the ambiguity keeps the contract small.
//
// # Delete protocol (DELETE /{key})
//
// Removes the index entry only (tombstone) → 204, or 404 if not indexed.
// Blobs stay on the volumes and are never reclaimed by the coordinator.
//
// # Failure handling
//
// Every outcome maps to one sentinel error (ErrInvalidArgument, ErrConflict,
// ErrNotFound, ErrUnavailable) and one HTTP status. Individual volume errors
// are logged and never returned to clients. Each volume call is bounded by
// the volume client's timeout and by the request context, so a client that
// disconnects abandons its outstanding volume calls.
//
// # Known limitations
//
//   - Blobs of failed writes, lost create races and deletes are orphaned
//   - Two writers racing for the same new key write the same path on the same
//     volumes; the loser gets 409 but its bytes may be the ones left on disk
//   - Placement is computed at write time only; keys are never rebalanced
//
// # Health monitoring
//
// HealthMonitor checks every configured volume periodically and exposes the
// result on the admin listener (NewAdminHandler). It is informational and
// does not influence placement or read order.
package coordinator
