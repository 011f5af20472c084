package chunkcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

func newTestCache(t *testing.T) (*ChunkCache, *hierarchy.Hierarchy, endpoint.Endpoint) {
	t.Helper()
	out, err := endpoint.NewLocal(t.TempDir())
	require.NoError(t, err)

	hier := hierarchy.New()
	cfg := Config{
		ChunkConfig: chunk.Config{BodySpan: 4, OverflowDepth: 1, MinNodeSize: 4, MaxNodeSize: 8, OverflowRatio: 0.25},
		Schema:      point.Schema{},
		Root:        point.NewBounds(point.Point{0, 0, 0}, point.Point{8, 8, 8}),
		DataDir:     "ept-data",
		Retry:       DefaultRetryPolicy(),
	}
	return New(cfg, hier, codec.NewRaw(), out), hier, out
}

func TestAcquireRefSharesOneChunkAcrossCallers(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()
	key := point.RootKey()

	first, err := c.AcquireRef(ctx, key)
	require.NoError(t, err)
	second, err := c.AcquireRef(ctx, key)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, c.ReleaseRef(ctx, key))
	require.NoError(t, c.ReleaseRef(ctx, key))
}

func TestReleaseRefEvictsAndRecordsHierarchyOnLastRef(t *testing.T) {
	c, hier, _ := newTestCache(t)
	ctx := context.Background()
	key := point.RootKey()

	require.NoError(t, c.Insert(ctx, voxel.New(point.Point{1, 1, 1}, nil), key))
	assert.Equal(t, uint64(1), hier.Get(key))
}

func TestRehydrateRestoresPreviouslyEvictedContents(t *testing.T) {
	c, hier, out := newTestCache(t)
	ctx := context.Background()
	key := point.RootKey()

	p := point.Point{2, 2, 2}
	require.NoError(t, c.Insert(ctx, voxel.New(p, nil), key))
	require.Equal(t, uint64(1), hier.Get(key))

	// A fresh cache over the same hierarchy/endpoint must rehydrate the
	// chunk's single resident point on first access rather than starting
	// empty.
	c2 := New(c.cfg, hier, codec.NewRaw(), out)
	ch, err := c2.AcquireRef(ctx, key)
	require.NoError(t, err)
	assert.Len(t, ch.Contents(), 1)
	require.NoError(t, c2.ReleaseRef(ctx, key))

	assert.EqualValues(t, 1, c2.Stats().RehydrateLatency.Samples())
}

func TestRehydrateMismatchIsFatal(t *testing.T) {
	c, hier, out := newTestCache(t)
	ctx := context.Background()
	key := point.RootKey()

	require.NoError(t, c.Insert(ctx, voxel.New(point.Point{2, 2, 2}, nil), key))

	// Claim more points were recorded than the chunk file actually holds.
	hier.Set(key, hier.Get(key)+1)

	c2 := New(c.cfg, hier, codec.NewRaw(), out)
	_, err := c2.AcquireRef(ctx, key)
	assert.Error(t, err)
}

func TestFlushWritesEveryResidentChunkRegardlessOfRefCount(t *testing.T) {
	c, hier, _ := newTestCache(t)
	ctx := context.Background()
	key := point.RootKey()

	ch, err := c.AcquireRef(ctx, key)
	require.NoError(t, err)
	placed, spills := ch.Insert(voxel.New(point.Point{3, 3, 3}, nil))
	require.True(t, placed)
	require.Empty(t, spills)

	require.NoError(t, c.Flush(ctx))
	assert.Equal(t, uint64(1), hier.Get(key))

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.EvictLatency.Samples())
}
