package point

// Bounds is an axis-aligned box in 3D.
type Bounds struct {
	Min, Max Point
}

// NewBounds builds Bounds from two corners, normalizing min/max per axis.
func NewBounds(a, b Point) Bounds {
	min := Point{mathMin(a.X, b.X), mathMin(a.Y, b.Y), mathMin(a.Z, b.Z)}
	max := Point{mathMax(a.X, b.X), mathMax(a.Y, b.Y), mathMax(a.Z, b.Z)}
	return Bounds{min, max}
}

func mathMin(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func mathMax(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Mid returns the center of the box.
func (b Bounds) Mid() Point {
	return Point{
		(b.Min.X + b.Max.X) / 2,
		(b.Min.Y + b.Max.Y) / 2,
		(b.Min.Z + b.Max.Z) / 2,
	}
}

// Width returns the per-axis extent (Max - Min).
func (b Bounds) Width() Point {
	return Point{b.Max.X - b.Min.X, b.Max.Y - b.Min.Y, b.Max.Z - b.Min.Z}
}

// Cubify grows b to the smallest cube centered on its midpoint that still
// contains it, the "cube-extended" bounds the octree descends through.
func (b Bounds) Cubify() Bounds {
	w := b.Width()
	span := w.X
	if w.Y > span {
		span = w.Y
	}
	if w.Z > span {
		span = w.Z
	}
	half := span / 2
	mid := b.Mid()
	return Bounds{
		Point{mid.X - half, mid.Y - half, mid.Z - half},
		Point{mid.X + half, mid.Y + half, mid.Z + half},
	}
}

// Contains reports whether p falls within b, inclusive of both Min and Max
// on every axis. It does not distinguish a root cube from a sub-cube: a
// point on a face shared by two adjacent boxes is reported inside both.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Quantize maps p's position within b onto a span*span*span integer grid,
// clamped to [0, span) per axis. This is how a chunk locates a point's grid
// cell directly from its own cube, without tracking a separate finer-
// grained key through the body levels the reference implementation
// accumulates one bit at a time - binary subdivision log2(span) times over
// is exactly proportional division by span, so the result is identical.
func (b Bounds) Quantize(p Point, span uint64) (x, y, z uint64) {
	w := b.Width()
	x = quantizeAxis(p.X, b.Min.X, w.X, span)
	y = quantizeAxis(p.Y, b.Min.Y, w.Y, span)
	z = quantizeAxis(p.Z, b.Min.Z, w.Z, span)
	return x, y, z
}

func quantizeAxis(v, min, width float64, span uint64) uint64 {
	if width <= 0 {
		return 0
	}
	f := (v - min) / width * float64(span)
	if f < 0 {
		return 0
	}
	n := uint64(f)
	if n >= span {
		n = span - 1
	}
	return n
}

// Step halves b toward the given octant direction.
func (b Bounds) Step(dir Dir) Bounds {
	mid := b.Mid()
	out := b
	if dir.East() {
		out.Min.X = mid.X
	} else {
		out.Max.X = mid.X
	}
	if dir.North() {
		out.Min.Y = mid.Y
	} else {
		out.Max.Y = mid.Y
	}
	if dir.Up() {
		out.Min.Z = mid.Z
	} else {
		out.Max.Z = mid.Z
	}
	return out
}
