package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/manifest"
	"github.com/hobu-inc/ept/point"
)

func TestCodecByNameResolvesKnownCodecs(t *testing.T) {
	_, err := codecByName("binary")
	require.NoError(t, err)

	_, err = codecByName("zstandard")
	require.NoError(t, err)

	_, err = codecByName("las")
	assert.Error(t, err)
}

func TestResolveBoundsCubifiesUnion(t *testing.T) {
	entries := []manifest.Entry{
		{Status: manifest.Inserted, Bounds: point.NewBounds(point.Point{0, 0, 0}, point.Point{10, 2, 2})},
	}
	root := resolveBounds(entries)

	w := root.Width()
	assert.InDelta(t, w.X, w.Y, 1e-9)
	assert.InDelta(t, w.X, w.Z, 1e-9)
	assert.Equal(t, point.Point{5, 1, 1}, root.Mid())
}
