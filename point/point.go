// Package point defines the data model shared by the indexing core: the
// point/bounds geometry, octant direction arithmetic, and the bit-packed
// octree key used to address chunks and their grid slots.
package point

import "math"

// Point is a single sample location. Attribute bytes travel alongside a
// Point in voxel.Voxel rather than here, since the core treats them as an
// opaque blob whose layout is owned by the schema, not the geometry.
type Point struct {
	X, Y, Z float64
}

// SqDist returns the squared distance between p and o. Squared distance is
// sufficient everywhere the core compares distances (tube-winner rule,
// direction heuristics) and avoids a sqrt in the hot insert path.
func (p Point) SqDist(o Point) float64 {
	dx, dy, dz := p.X-o.X, p.Y-o.Y, p.Z-o.Z
	return dx*dx + dy*dy + dz*dz
}

// Less implements the lexicographic tiebreak used by the tube-winner rule:
// x, then y, then z.
func (p Point) Less(o Point) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}

// Closer reports whether a is the tube-winner against b relative to mid:
// strictly closer to mid, or equidistant and lexicographically smaller.
func Closer(a, b, mid Point) bool {
	da, db := a.SqDist(mid), b.SqDist(mid)
	if da != db {
		return da < db
	}
	return a.Less(b)
}

// IsNaN reports whether any coordinate of p is NaN. Key arithmetic does not
// validate its inputs (spec: "invalid inputs ... are the caller's
// responsibility"); the Builder does not call this, so a NaN record is
// handled only by the bounds check it runs before inserting.
func (p Point) IsNaN() bool {
	return math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z)
}
