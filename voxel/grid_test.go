package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hobu-inc/ept/point"
)

func TestGridPlacedOnEmptySlot(t *testing.T) {
	g := NewGrid(4)
	mid := point.Point{4, 4, 4}
	outcome, _ := g.Insert(mid, 1, 1, 1, New(point.Point{1, 1, 1}, nil), false)
	assert.Equal(t, Placed, outcome)
	assert.EqualValues(t, 1, g.Size())
}

func TestGridDisplacesFartherPoint(t *testing.T) {
	g := NewGrid(4)
	mid := point.Point{4, 4, 4}

	far := New(point.Point{0, 0, 0}, []byte("far"))
	outcome, _ := g.Insert(mid, 1, 1, 1, far, false)
	assert.Equal(t, Placed, outcome)

	near := New(point.Point{3, 3, 3}, []byte("near"))
	outcome, ejected := g.Insert(mid, 1, 1, 1, near, false)
	assert.Equal(t, Displaced, outcome)
	assert.Equal(t, far.Point, ejected.Point)
	assert.EqualValues(t, 1, g.Size())
}

func TestGridCollisionReturnsNewVoxelUnchanged(t *testing.T) {
	g := NewGrid(4)
	mid := point.Point{4, 4, 4}

	near := New(point.Point{3, 3, 3}, []byte("near"))
	g.Insert(mid, 1, 1, 1, near, false)

	far := New(point.Point{0, 0, 0}, []byte("far"))
	outcome, v := g.Insert(mid, 1, 1, 1, far, false)
	assert.Equal(t, Collision, outcome)
	assert.Equal(t, far.Point, v.Point)
	assert.EqualValues(t, 1, g.Size())
}

func TestGridKeepDuplicatesStacksAttrs(t *testing.T) {
	g := NewGrid(4)
	mid := point.Point{4, 4, 4}

	p := point.Point{2, 2, 2}
	g.Insert(mid, 1, 1, 1, New(p, []byte("a")), true)
	outcome, _ := g.Insert(mid, 1, 1, 1, New(p, []byte("b")), true)
	assert.Equal(t, Placed, outcome)
	assert.EqualValues(t, 1, g.Size())

	var got []byte
	g.Each(func(x, y, z uint64, v Voxel) { got = v.Attr })
	assert.Equal(t, "ab", string(got))
}

func TestOverflowDrainEmptiesBuffer(t *testing.T) {
	o := NewOverflow()
	o.Insert(New(point.Point{1, 1, 1}, nil))
	o.Insert(New(point.Point{2, 2, 2}, nil))
	assert.Equal(t, 2, o.Size())

	entries := o.Drain()
	assert.Len(t, entries, 2)
	assert.Equal(t, 0, o.Size())
}
