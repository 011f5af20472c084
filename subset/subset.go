// Package subset partitions the root cube into 4^k independent XY regions
// so that disjoint builds can run in parallel and be merged afterward.
package subset

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
)

// Subset identifies one of Of equal XY partitions of the root cube, Of
// being a power of four. K = log4(Of) is how many times each axis has
// been halved.
type Subset struct {
	ID uint64
	Of uint64
	K  uint64
}

// New validates (id, of) and returns the corresponding Subset. of must be
// a power of four (1, 4, 16, 64, ...); id must be in [0, of).
func New(id, of uint64) (Subset, error) {
	if !isPowerOfFour(of) {
		return Subset{}, errors.Errorf("subset: of=%d is not a power of four", of)
	}
	if id >= of {
		return Subset{}, errors.Errorf("subset: id=%d out of range for of=%d", id, of)
	}
	return Subset{ID: id, Of: of, K: log4(of)}, nil
}

func isPowerOfFour(n uint64) bool {
	if n == 0 {
		return false
	}
	for n > 1 {
		if n%4 != 0 {
			return false
		}
		n /= 4
	}
	return true
}

func log4(n uint64) uint64 {
	var k uint64
	for n > 1 {
		n /= 4
		k++
	}
	return k
}

// side is the number of divisions per axis: side*side == Of.
func (s Subset) side() uint64 { return uint64(1) << s.K }

// SubBounds returns this subset's XY cell of root, full height on Z.
func (s Subset) SubBounds(root point.Bounds) point.Bounds {
	side := s.side()
	col := s.ID % side
	row := s.ID / side

	w := root.Width()
	cellW := w.X / float64(side)
	cellH := w.Y / float64(side)

	minX := root.Min.X + float64(col)*cellW
	minY := root.Min.Y + float64(row)*cellH
	return point.NewBounds(
		point.Point{minX, minY, root.Min.Z},
		point.Point{minX + cellW, minY + cellH, root.Max.Z},
	)
}

// Contains reports whether p falls within this subset's cell of root.
func (s Subset) Contains(root point.Bounds, p point.Point) bool {
	return s.SubBounds(root).Contains(p)
}

// Postfix is the "-{id}" suffix subset builds append to their
// per-subset metadata and hierarchy file names.
func (s Subset) Postfix() string {
	return "-" + strconv.FormatUint(s.ID, 10)
}
