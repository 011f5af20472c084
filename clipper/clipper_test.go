package clipper

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

func newTestCache(t *testing.T) *chunkcache.ChunkCache {
	t.Helper()
	out, err := endpoint.NewLocal(t.TempDir())
	require.NoError(t, err)

	cfg := chunkcache.Config{
		ChunkConfig: chunk.Config{BodySpan: 4, OverflowDepth: 1, MinNodeSize: 4, MaxNodeSize: 8, OverflowRatio: 0.25},
		Schema:      point.Schema{},
		Root:        point.NewBounds(point.Point{0, 0, 0}, point.Point{8, 8, 8}),
		DataDir:     "ept-data",
		Retry:       chunkcache.DefaultRetryPolicy(),
	}
	return chunkcache.New(cfg, hierarchy.New(), codec.NewRaw(), out)
}

func TestGetCachesAcrossFastAndSlowTiers(t *testing.T) {
	cache := newTestCache(t)
	c := New(cache, DefaultConfig())
	ctx := context.Background()

	key := point.RootKey()
	first, err := c.Get(ctx, key)
	require.NoError(t, err)

	second, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, c.Close(ctx))
}

func TestInsertDescendsIntoChildOnOverflow(t *testing.T) {
	cache := newTestCache(t)
	c := New(cache, DefaultConfig())
	ctx := context.Background()

	// Same exact position inserted nine times. The root (depth 0, below
	// OverflowDepth 1) never overflows, so the second point descends into the
	// NEU child's grid; each later one collides there and lands in the
	// child's NEU overflow bucket. The ninth brings that bucket to 7 and the
	// child's total to MaxNodeSize (8), splitting the bucket into a grandchild.
	p := point.Point{6, 6, 6}
	for i := 0; i < 9; i++ {
		err := c.Insert(ctx, voxel.New(p, nil), point.RootKey())
		require.NoError(t, err)
	}

	require.NoError(t, c.Close(ctx))
	assert.True(t, c.Overflowed() > 0)
	assert.EqualValues(t, 9, c.InsertLatency().Samples())
}

func TestClipReleasesStaleDeepEntries(t *testing.T) {
	cache := newTestCache(t)
	cfg := DefaultConfig()
	cfg.SleepCount = 1
	cfg.MinClipDepth = 0
	cfg.ClipCacheSize = 0
	c := New(cache, cfg)
	ctx := context.Background()

	key := point.RootKey()
	_, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.NotNil(t, c.slow[0][key.Xyz])

	// Next clip pass: the root slot went unaccessed since it was marked
	// fresh on creation and not touched again, so the *second* pass (this
	// one, since sleepCount=1 triggers a clip on every point) clears its
	// freshness; a following pass with no access in between releases it.
	require.NoError(t, c.maybeClip(ctx))
	require.NotNil(t, c.slow[0][key.Xyz])

	require.NoError(t, c.maybeClip(ctx))
	assert.Nil(t, c.slow[0][key.Xyz])
}
