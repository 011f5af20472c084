package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

func samplePoints() []voxel.Voxel {
	return []voxel.Voxel{
		voxel.New(point.Point{1, 2, 3}, []byte("abc")),
		voxel.New(point.Point{4.5, -1.25, 0}, nil),
		voxel.New(point.Point{0, 0, 0}, []byte{}),
	}
}

func TestRawRoundTrip(t *testing.T) {
	c := NewRaw()
	data, err := c.Encode(samplePoints(), point.Schema{})
	require.NoError(t, err)

	got, err := c.Decode(data, point.Schema{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, v := range samplePoints() {
		assert.Equal(t, v.Point, got[i].Point)
	}
}

func TestZstdRoundTrip(t *testing.T) {
	c := NewZstd()
	data, err := c.Encode(samplePoints(), point.Schema{})
	require.NoError(t, err)

	got, err := c.Decode(data, point.Schema{})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "abc", string(got[0].Attr))
}

func TestByNameResolvesRegisteredCodecs(t *testing.T) {
	c, ok := ByName("binary")
	require.True(t, ok)
	assert.Equal(t, "binary", c.Name())

	c, ok = ByName("zstandard")
	require.True(t, ok)
	assert.Equal(t, "zstandard", c.Name())

	_, ok = ByName("laz")
	assert.False(t, ok)
}
