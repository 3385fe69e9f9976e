// Package placement decides where a key lives: which volumes hold its
// replicas and under which relative path.
//
// Both functions are pure. They hold no state, never fail, and give the
// same answer on every coordinator for the same inputs, which is what lets
// a restarted coordinator agree with the placements it made before.
package placement

import (
	"bytes"
	"crypto/md5"

	"golang.org/x/exp/slices"
)

// scored pairs a volume with its rendezvous score for one key.
type scored struct {
	volume string
	score  [md5.Size]byte
}

// Place returns the ordered replica set for key using rendezvous
// (highest-random-weight) hashing.
//
// Every volume is scored with md5(volume || key) and the volumes are
// sorted ascending by score. The first min(k, len(volumes)) are returned.
// The order is the read preference order: earlier replicas are probed first.
//
// Adding or removing a volume only moves the keys for which that volume
// ranks inside the first k, roughly k/len(volumes) of them, because the
// relative ranking of the remaining volumes for a key never changes.
//
// Duplicate identifiers in volumes are scored once. The input slice is not
// modified. A non-positive k or an empty volume list yields an empty set.
//
// Example:
//
//	replicas := placement.Place("user:123", []string{"v1", "v2", "v3"}, 2)
//	// replicas is always the same two volumes for "user:123"
func Place(key string, volumes []string, k int) []string {
	if k <= 0 || len(volumes) == 0 {
		return []string{}
	}

	candidates := make([]scored, 0, len(volumes))
	seen := make(map[string]struct{}, len(volumes))
	for _, v := range volumes {
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		candidates = append(candidates, scored{volume: v, score: score(v, key)})
	}

	slices.SortFunc(candidates, func(a, b scored) int {
		return bytes.Compare(a.score[:], b.score[:])
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	out := make([]string, k)
	for i := 0; i < k; i++ {
		out[i] = candidates[i].volume
	}
	return out
}

func score(volume, key string) [md5.Size]byte {
	buf := make([]byte, 0, len(volume)+len(key))
	buf = append(buf, volume...)
	buf = append(buf, key...)
	return md5.Sum(buf)
}
