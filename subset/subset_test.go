package subset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/chunkcache"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

func TestNewRejectsNonPowerOfFour(t *testing.T) {
	_, err := New(0, 8)
	assert.Error(t, err)

	_, err = New(5, 4)
	assert.Error(t, err)

	s, err := New(1, 4)
	require.NoError(t, err)
	assert.EqualValues(t, 1, s.K)
}

func TestSubBoundsPartitionsRootIntoFourQuadrants(t *testing.T) {
	root := point.NewBounds(point.Point{0, 0, 0}, point.Point{8, 8, 8})

	s0, err := New(0, 4)
	require.NoError(t, err)
	b0 := s0.SubBounds(root)
	assert.Equal(t, point.Point{0, 0, 0}, b0.Min)
	assert.Equal(t, point.Point{4, 4, 8}, b0.Max)

	s3, err := New(3, 4)
	require.NoError(t, err)
	b3 := s3.SubBounds(root)
	assert.Equal(t, point.Point{4, 4, 0}, b3.Min)
	assert.Equal(t, point.Point{8, 8, 8}, b3.Max)
}

func TestPostfixFormatsID(t *testing.T) {
	s, err := New(7, 16)
	require.NoError(t, err)
	assert.Equal(t, "-7", s.Postfix())
}

func newCacheAndOut(t *testing.T, dir string) (*chunkcache.ChunkCache, *hierarchy.Hierarchy, *endpoint.Local) {
	t.Helper()
	out, err := endpoint.NewLocal(dir)
	require.NoError(t, err)
	hier := hierarchy.New()
	cfg := chunkcache.Config{
		ChunkConfig: chunk.Config{BodySpan: 4, OverflowDepth: 1, MinNodeSize: 4, MaxNodeSize: 8, OverflowRatio: 0.25},
		Root:        point.NewBounds(point.Point{0, 0, 0}, point.Point{8, 8, 8}),
		DataDir:     "ept-data",
		Retry:       chunkcache.DefaultRetryPolicy(),
	}
	return chunkcache.New(cfg, hier, codec.NewRaw(), out), hier, out
}

func TestMergeRehydratesSharedDepthAndRecordsDeep(t *testing.T) {
	ctx := context.Background()

	srcCache, srcHier, srcOut := newCacheAndOut(t, t.TempDir())
	require.NoError(t, srcCache.Insert(ctx, voxel.New(point.Point{1, 1, 1}, nil), point.RootKey()))
	require.NoError(t, srcCache.Flush(ctx))
	deep := point.Key{Depth: 10}
	srcHier.Set(deep, 5)

	dstCache, dstHier, _ := newCacheAndOut(t, t.TempDir())

	src := Source{
		Hierarchy: srcHier,
		Out:       srcOut,
		Codec:     codec.NewRaw(),
		DataDir:   "ept-data",
		Schema:    point.Schema{},
	}
	require.NoError(t, Merge(ctx, dstCache, dstHier, src, 10))
	require.NoError(t, dstCache.Flush(ctx))

	assert.EqualValues(t, 1, dstHier.Get(point.RootKey()))
	assert.EqualValues(t, 5, dstHier.Get(deep))
}
