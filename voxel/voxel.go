// Package voxel implements the per-chunk point container described by the
// spec: a fixed S*S grid of z-tubes, plus eight per-direction overflow
// buffers for points that have not yet justified spawning a child chunk.
package voxel

import "github.com/hobu-inc/ept/point"

// Voxel is one resident point plus its attribute bytes.
type Voxel struct {
	Point point.Point
	Attr  []byte
}

// New copies attr so the caller's buffer can be reused.
func New(p point.Point, attr []byte) Voxel {
	cp := make([]byte, len(attr))
	copy(cp, attr)
	return Voxel{Point: p, Attr: cp}
}

// Outcome is the result of attempting to place a Voxel into a Grid.
type Outcome int

const (
	// Placed means the voxel came to rest in an empty slot.
	Placed Outcome = iota
	// Displaced means the voxel won its slot's tube-winner contest; the
	// ejected resident is returned for the caller to re-place.
	Displaced
	// Collision means the voxel lost its slot's tube-winner contest; the
	// voxel itself must be re-placed (overflow or a deeper chunk).
	Collision
)
