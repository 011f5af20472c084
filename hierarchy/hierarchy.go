// Package hierarchy implements the build-wide Key -> point-count map and its
// sharded, depth-stepped JSON serialization.
package hierarchy

import (
	"sync"

	"github.com/hobu-inc/ept/point"
)

// maxNodesPerFile bounds how many entries a single hierarchy shard may hold.
const maxNodesPerFile = 65536

// candidateSteps is the grid searched by ChooseStep.
var candidateSteps = []uint64{5, 6, 8, 10}

// Hierarchy is the Key -> resident-point-count map, built incrementally
// during a run and written once at the end. The zero value is usable.
type Hierarchy struct {
	mu   sync.Mutex
	m    map[point.Key]uint64
	step uint64
}

// New returns an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{m: make(map[point.Key]uint64)}
}

// Set records count as the resident point count at key, replacing any
// earlier value. The chunk cache calls it each time it writes a chunk with a
// nonzero count, so a chunk that is rehydrated and written again records
// its new total.
func (h *Hierarchy) Set(key point.Key, count uint64) {
	h.mu.Lock()
	if h.m == nil {
		h.m = make(map[point.Key]uint64)
	}
	h.m[key] = count
	h.mu.Unlock()
}

// Get returns the resident point count at key, or 0 if the hierarchy has no
// entry there. Satisfies chunk.HierarchyReader.
func (h *Hierarchy) Get(key point.Key) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.m[key]
}

// Map returns a snapshot of the full hierarchy. Intended for serialization
// and tests; callers must not mutate the result.
func (h *Hierarchy) Map() map[point.Key]uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make(map[point.Key]uint64, len(h.m))
	for k, v := range h.m {
		out[k] = v
	}
	return out
}

// Len is the number of entries currently recorded.
func (h *Hierarchy) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.m)
}

// SetStep pins the hierarchy step explicitly. ChooseStep keeps a pinned step
// for a hierarchy that fits in one file and replaces it otherwise.
func (h *Hierarchy) SetStep(step uint64) {
	h.mu.Lock()
	h.step = step
	h.mu.Unlock()
}

// Step returns the currently selected hierarchy step, 0 if none has been
// chosen yet.
func (h *Hierarchy) Step() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.step
}
