package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

func cubeBounds() point.Bounds {
	return point.NewBounds(point.Point{0, 0, 0}, point.Point{8, 8, 8})
}

func TestSinglePointAtCenter(t *testing.T) {
	cfg := Config{BodySpan: 1, OverflowDepth: 1, MinNodeSize: 4, MaxNodeSize: 8, OverflowRatio: 0.25}
	c := New(point.RootKey(), cubeBounds(), cfg, nil)

	placed, spills := c.Insert(voxel.New(point.Point{4, 4, 4}, nil))
	assert.True(t, placed)
	assert.Empty(t, spills)
	assert.EqualValues(t, 1, c.Count())
}

func TestEightCornerSplitLexSmallestWins(t *testing.T) {
	// Root can hold exactly one point (span 1, min=max=1); all eight octant
	// centroids are equidistant from the cube's center, so ties resolve
	// lexicographically and every other point immediately overflows and
	// splits away to its own child.
	cfg := Config{BodySpan: 1, OverflowDepth: 0, MinNodeSize: 1, MaxNodeSize: 1, OverflowRatio: 0.25}
	root := New(point.RootKey(), cubeBounds(), cfg, nil)

	centroids := []point.Point{
		{2, 2, 2}, {6, 2, 2}, {2, 6, 2}, {6, 6, 2},
		{2, 2, 6}, {6, 2, 6}, {2, 6, 6}, {6, 6, 6},
	}

	var allSpills []SpillEntry
	for _, p := range centroids {
		placed, spills := root.Insert(voxel.New(p, nil))
		assert.True(t, placed)
		allSpills = append(allSpills, spills...)
	}

	assert.Len(t, allSpills, 7)
	contents := root.Contents()
	assert.Len(t, contents, 1)
	assert.Equal(t, point.Point{2, 2, 2}, contents[0].Point)
}

func TestOverflowPromotion(t *testing.T) {
	// min=4, max=8, grid span 4 (16 slots) - 8 points all in octant NEU,
	// the first 4 at distinct (x,y) land in the grid; the next 4 each
	// collide against an already-resident tube (exact duplicate position,
	// so the resident always wins) and overflow into NEU. The fourth
	// overflow both crosses MinNodeSize and brings total to MaxNodeSize,
	// triggering a split that drains the whole NEU bucket in one shot.
	cfg := Config{BodySpan: 4, OverflowDepth: 0, MinNodeSize: 4, MaxNodeSize: 8, OverflowRatio: 1.0}
	c := New(point.RootKey(), cubeBounds(), cfg, nil)

	// With span 4 over an 8-wide cube, each grid bucket is 2 units wide;
	// the NEU octant (x,y >= 4) only reaches buckets {2,3} per axis, so
	// these four distinct points are the only four distinct tubes that
	// octant's grid cells can offer.
	corners := []point.Point{
		{4.5, 4.5, 6}, {4.5, 6.5, 6}, {6.5, 4.5, 6}, {6.5, 6.5, 6},
	}

	var allSpills []SpillEntry
	for _, p := range append(append([]point.Point{}, corners...), corners...) {
		placed, spills := c.Insert(voxel.New(p, nil))
		assert.True(t, placed)
		allSpills = append(allSpills, spills...)
	}

	assert.EqualValues(t, 4, c.grid.Size())
	assert.Len(t, allSpills, 4)
	assert.False(t, c.OverflowNonEmpty(point.NEU))
}
