package voxel

import (
	"sync"
	"sync/atomic"

	"github.com/hobu-inc/ept/point"
)

// tube is the z-ordered set of voxels at one (x mod S, y mod S) position.
type tube struct {
	mu  sync.Mutex
	slots map[uint64]Voxel
}

// Grid is the S*S array of tubes inside a chunk, plus the allocator whose
// monotonic counter stands in for the spec's append-only block allocator:
// Go's GC already owns the backing storage for each Voxel's attribute
// bytes, so the allocator's only remaining job - and the only part other
// code depends on - is a lock-protected resident count.
type Grid struct {
	span  uint64
	tubes []tube

	allocMu sync.Mutex
	size    uint64
}

// NewGrid builds a grid for a chunk whose body span (S = 2^body_depth) is
// span.
func NewGrid(span uint64) *Grid {
	g := &Grid{span: span, tubes: make([]tube, span*span)}
	for i := range g.tubes {
		g.tubes[i].slots = make(map[uint64]Voxel)
	}
	return g
}

// Size is the grid's current resident point count.
func (g *Grid) Size() uint64 { return atomic.LoadUint64(&g.size) }

func (g *Grid) index(x, y uint64) uint64 {
	return (y%g.span)*g.span + (x % g.span)
}

// Insert attempts to place v at (x, y, z) relative to mid. It returns the
// outcome and, for Displaced, the ejected voxel the caller must re-place
// one level deeper; for Collision, v itself (unchanged) for the same
// purpose. keepDuplicates, when set, stacks exact-coordinate duplicates in
// place of decimating them (spec §9's duplicate-handling flag) - in that
// mode an exact coordinate match is always a Placed outcome, appended to
// the resident's duplicate chain rather than contended for the slot.
func (g *Grid) Insert(mid point.Point, x, y, z uint64, v Voxel, keepDuplicates bool) (Outcome, Voxel) {
	i := g.index(x, y)
	t := &g.tubes[i]

	t.mu.Lock()
	defer t.mu.Unlock()

	dst, ok := t.slots[z]
	if !ok {
		t.slots[z] = v
		g.allocMu.Lock()
		g.size++
		g.allocMu.Unlock()
		return Placed, Voxel{}
	}

	if keepDuplicates && dst.Point == v.Point {
		dst.Attr = append(append([]byte(nil), dst.Attr...), v.Attr...)
		t.slots[z] = dst
		return Placed, Voxel{}
	}

	if point.Closer(v.Point, dst.Point, mid) {
		t.slots[z] = v
		return Displaced, dst
	}

	return Collision, v
}

// Each calls fn once per resident voxel. Intra-tube order is unspecified,
// matching the spec's "readers must not depend on intra-chunk point order".
func (g *Grid) Each(fn func(x, y, z uint64, v Voxel)) {
	for i := range g.tubes {
		t := &g.tubes[i]
		x, y := uint64(i)%g.span, uint64(i)/g.span
		t.mu.Lock()
		for z, v := range t.slots {
			fn(x, y, z, v)
		}
		t.mu.Unlock()
	}
}
