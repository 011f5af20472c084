// Package chunk implements one octree node's storage: a fixed-size voxel
// grid, eight per-direction overflow buffers, and the split policy that
// promotes an overflow bucket into a child chunk once it has accumulated
// enough density to warrant its own node.
package chunk

import (
	"sync"

	"github.com/hobu-inc/ept/d"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

// Config carries the tunables the spec leaves as open questions or
// explicit knobs.
type Config struct {
	// BodySpan is S = 2^body_depth, the grid's per-axis cell count.
	BodySpan uint64

	// OverflowDepth is the minimum depth at which a chunk accepts overflow
	// at all; below it, a point that doesn't fit the grid always
	// descends to a child instead (spec §4.3 step 2).
	OverflowDepth uint64

	// MinNodeSize / MaxNodeSize are overflowThreshold and the split
	// trigger total, respectively.
	MinNodeSize uint64
	MaxNodeSize uint64

	// OverflowRatio resolves the spec's open question between
	// "min_node_size / 4.0" and "min_node_size": the minimum fraction of
	// MinNodeSize a single overflow bucket must reach before it is worth
	// promoting to a child. Default 0.25, matching the call site that
	// actually divides by 4.0.
	OverflowRatio float64

	// KeepDuplicates stacks exact-coordinate duplicates onto the resident
	// voxel instead of decimating them via the tube-winner rule.
	KeepDuplicates bool
}

// HierarchyReader is the read-only view of the Hierarchy that a Chunk needs
// to seed overflow nullity on construction. Defined locally so this package
// does not need to import hierarchy (which would create an import cycle
// with chunkcache, which holds both).
type HierarchyReader interface {
	Get(key point.Key) uint64
}

// SpillEntry is a voxel detached from an overflow bucket during a split,
// addressed to the child chunk at Key - every entry drained from the same
// bucket in the same split shares that same child key.
type SpillEntry struct {
	Voxel voxel.Voxel
	Key   point.Key
}

// Chunk is one octree node's storage.
type Chunk struct {
	key    point.Key
	bounds point.Bounds
	cfg    Config

	grid *voxel.Grid

	overflowMu    sync.Mutex
	overflow      [point.DirCount]*voxel.Overflow
	overflowCount uint64

	refMu    sync.Mutex
	refCount uint64
}

// New constructs a chunk at key/bounds. Per child direction, the overflow
// slot is born non-nil only if the hierarchy does not already report a
// nonzero count for that child - if it does, new points for that octant
// must be routed directly to the (already-existing) child instead of
// overflowing here, per the overflow-child exclusivity invariant.
func New(key point.Key, bounds point.Bounds, cfg Config, hier HierarchyReader) *Chunk {
	c := &Chunk{key: key, bounds: bounds, cfg: cfg, grid: voxel.NewGrid(cfg.BodySpan), refCount: 1}
	for i := 0; i < point.DirCount; i++ {
		dir := point.Dir(i)
		childKey := key.Child(dir)
		if hier == nil || hier.Get(childKey) == 0 {
			c.overflow[i] = voxel.NewOverflow()
		}
	}
	return c
}

// Key returns the chunk's identity.
func (c *Chunk) Key() point.Key { return c.key }

// Bounds returns the chunk's cube.
func (c *Chunk) Bounds() point.Bounds { return c.bounds }

// AddRef increments the chunk's reference count. Called only by the
// ChunkCache, which serializes access via its own lock.
func (c *Chunk) AddRef() {
	c.refMu.Lock()
	c.refCount++
	c.refMu.Unlock()
}

// DelRef decrements the reference count and returns the new value.
func (c *Chunk) DelRef() uint64 {
	c.refMu.Lock()
	c.refCount--
	n := c.refCount
	c.refMu.Unlock()
	return n
}

// Insert attempts to place v into this chunk's grid, falling back to
// overflow on contention. It returns true if the point came to rest here
// (grid or overflow), false if the caller must descend to a child at
// direction(c.bounds.Mid(), v.Point). Any spills produced by a triggered
// split are returned for the caller to reinsert via the normal top-level
// entry point, starting at each entry's own Key.
func (c *Chunk) Insert(v voxel.Voxel) (bool, []SpillEntry) {
	mid := c.bounds.Mid()
	x, y, z := c.bounds.Quantize(v.Point, c.cfg.BodySpan)
	outcome, other := c.grid.Insert(mid, x, y, z, v, c.cfg.KeepDuplicates)
	switch outcome {
	case voxel.Placed:
		return true, nil
	case voxel.Displaced:
		// The ejected resident re-contends at this same node, as if it had
		// just arrived - it may overflow or force a split.
		return c.insertOverflow(other)
	default: // Collision
		return c.insertOverflow(other)
	}
}

func (c *Chunk) insertOverflow(v voxel.Voxel) (bool, []SpillEntry) {
	if c.key.Depth < c.cfg.OverflowDepth {
		return false, nil
	}

	dir := point.Direction(c.bounds.Mid(), v.Point)

	c.overflowMu.Lock()
	defer c.overflowMu.Unlock()

	slot := c.overflow[dir]
	if slot == nil {
		return false, nil
	}

	slot.Insert(v)
	c.overflowCount++

	var spills []SpillEntry
	if c.overflowCount >= c.cfg.MinNodeSize {
		spills = c.maybeSplitLocked()
	}
	return true, spills
}

// maybeSplitLocked runs the split policy. Caller must hold overflowMu.
func (c *Chunk) maybeSplitLocked() []SpillEntry {
	total := c.grid.Size() + c.overflowCount
	if total < c.cfg.MaxNodeSize {
		return nil
	}

	var bestDir point.Dir
	var bestSize int
	for i := 0; i < point.DirCount; i++ {
		if c.overflow[i] == nil {
			continue
		}
		if sz := c.overflow[i].Size(); sz > bestSize {
			bestSize, bestDir = sz, point.Dir(i)
		}
	}

	ratio := c.cfg.OverflowRatio
	if ratio <= 0 {
		ratio = 0.25
	}
	minSize := uint64(float64(c.cfg.MinNodeSize) * ratio)
	if uint64(bestSize) < minSize {
		return nil
	}

	return c.doSplitLocked(bestDir)
}

func (c *Chunk) doSplitLocked(dir point.Dir) []SpillEntry {
	d.PanicIfTrue(c.overflow[dir] == nil, "split chosen direction %s has no overflow buffer", dir)
	entries := c.overflow[dir].Drain()
	c.overflow[dir] = nil
	c.overflowCount -= uint64(len(entries))

	childKey := c.key.Child(dir)
	spills := make([]SpillEntry, len(entries))
	for i, v := range entries {
		spills[i] = SpillEntry{Voxel: v, Key: childKey}
	}
	return spills
}

// OverflowNonEmpty reports, for direction dir, whether this chunk still
// holds an overflow buffer in that direction (i.e. the child does not yet
// exist). Used by tests.
func (c *Chunk) OverflowNonEmpty(dir point.Dir) bool {
	c.overflowMu.Lock()
	defer c.overflowMu.Unlock()
	return c.overflow[dir] != nil
}
