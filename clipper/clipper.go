// Package clipper implements the per-worker chunk residency cache that
// batches reference-count traffic against the shared chunkcache: without
// it, every point's root-to-leaf descent would acquire and release a
// reference on each chunk it passes through.
package clipper

import (
	"context"
	"time"

	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/chunkcache"
	"github.com/hobu-inc/ept/metrics"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

// Config tunes the clip policy.
type Config struct {
	// SleepCount is how many points are processed between clip passes.
	SleepCount uint64

	// MinClipDepth is the shallowest depth the clip pass ever evicts from;
	// chunks above it (closer to the root) are held for the life of the
	// clipper, since nearly every point passes through them.
	MinClipDepth uint64

	// ClipCacheSize bounds how many chunks at or below MinClipDepth this
	// clipper holds after a clip pass, evicting the deepest first when
	// over budget. Zero means unbounded (stale-only eviction).
	ClipCacheSize uint64
}

// DefaultConfig matches the reference implementation's defaults closely
// enough to exercise the same tradeoffs: clip every 65536 points,
// never evict the top few levels, cap residency in the low thousands.
func DefaultConfig() Config {
	return Config{SleepCount: 65536, MinClipDepth: 4, ClipCacheSize: 4096}
}

type slot struct {
	chunk *chunk.Chunk
	fresh bool
}

type fastSlot struct {
	xyz   point.Xyz
	valid bool
	slot  *slot
}

// Clipper is a single worker's view of chunk residency. It is not safe for
// concurrent use - exactly one goroutine (one file's worker) owns a
// Clipper for its lifetime.
type Clipper struct {
	cache  *chunkcache.ChunkCache
	cfg    Config
	fast   [point.MaxDepth]fastSlot
	slow   [point.MaxDepth]map[point.Xyz]*slot
	sinceClip uint64

	// overflowed counts points this clipper has routed through a split,
	// i.e. drained from a node's overflow bucket into a child - the
	// per-origin statistic the manifest records.
	overflowed uint64

	// insertLatency times the whole of Insert, recursion included: the
	// full cost of placing one top-level point, whether it resolves in
	// one chunk or cascades through several overflow splits.
	insertLatency metrics.TimeHistogram
}

// New returns a Clipper backed by cache.
func New(cache *chunkcache.ChunkCache, cfg Config) *Clipper {
	return &Clipper{cache: cache, cfg: cfg}
}

// Get resolves key to a chunk pointer, consulting this clipper's fast and
// slow tiers before falling through to the shared cache. The returned
// chunk is marked fresh, surviving the next clip pass.
func (c *Clipper) Get(ctx context.Context, key point.Key) (*chunk.Chunk, error) {
	if key.Depth >= point.MaxDepth {
		return nil, errTooDeep(key)
	}

	f := &c.fast[key.Depth]
	if f.valid && f.xyz == key.Xyz {
		f.slot.fresh = true
		return f.slot.chunk, nil
	}

	m := c.slow[key.Depth]
	if m == nil {
		m = make(map[point.Xyz]*slot)
		c.slow[key.Depth] = m
	}
	if s, ok := m[key.Xyz]; ok {
		s.fresh = true
		*f = fastSlot{xyz: key.Xyz, valid: true, slot: s}
		return s.chunk, nil
	}

	ch, err := c.cache.AcquireRef(ctx, key)
	if err != nil {
		return nil, err
	}
	s := &slot{chunk: ch, fresh: true}
	m[key.Xyz] = s
	*f = fastSlot{xyz: key.Xyz, valid: true, slot: s}
	return ch, nil
}

// Insert is the top-level per-point entry point: resolve the chunk at key,
// place v, and on overflow-to-child or split-spill recurse into this same
// clipper so the whole descent shares its batched residency.
func (c *Clipper) Insert(ctx context.Context, v voxel.Voxel, key point.Key) error {
	start := time.Now()
	err := c.insert(ctx, v, key)
	c.insertLatency.Sample(uint64(time.Since(start)))
	return err
}

func (c *Clipper) insert(ctx context.Context, v voxel.Voxel, key point.Key) error {
	ch, err := c.Get(ctx, key)
	if err != nil {
		return err
	}

	placed, spills := ch.Insert(v)
	if len(spills) > 0 {
		c.overflowed += uint64(len(spills))
	}
	for _, sp := range spills {
		if err := c.insert(ctx, sp.Voxel, sp.Key); err != nil {
			return err
		}
	}
	if placed {
		if err := c.maybeClip(ctx); err != nil {
			return err
		}
		return nil
	}

	dir := point.Direction(ch.Bounds().Mid(), v.Point)
	if err := c.insert(ctx, v, key.Child(dir)); err != nil {
		return err
	}
	return c.maybeClip(ctx)
}

// Overflowed returns the number of points this clipper has routed through a
// node's overflow bucket and on into a child split, since construction.
func (c *Clipper) Overflowed() uint64 { return c.overflowed }

// InsertLatency returns this clipper's insert-latency samples, for the
// builder to fold into its build-wide stats once the file is done.
func (c *Clipper) InsertLatency() metrics.TimeHistogram { return c.insertLatency }

func (c *Clipper) maybeClip(ctx context.Context) error {
	c.sinceClip++
	if c.sinceClip < c.cfg.SleepCount {
		return nil
	}
	c.sinceClip = 0
	return c.clip(ctx)
}

// clip walks the slow tier from the deepest populated level to the
// shallowest, releasing anything at or below MinClipDepth that went
// un-accessed since the last pass, clearing the freshness of everything
// else, and finally trimming
// the depths at or below MinClipDepth down to ClipCacheSize if over
// budget - deepest chunks first, since they are the least likely to be
// revisited.
func (c *Clipper) clip(ctx context.Context) error {
	type held struct {
		depth uint64
		xyz   point.Xyz
	}
	var heldAboveMin []held

	for d := point.MaxDepth - 1; d >= 0; d-- {
		m := c.slow[d]
		if len(m) == 0 {
			continue
		}
		for xyz, s := range m {
			if !s.fresh && uint64(d) >= c.cfg.MinClipDepth {
				if err := c.release(ctx, uint64(d), xyz, s); err != nil {
					return err
				}
				continue
			}
			s.fresh = false
			if uint64(d) >= c.cfg.MinClipDepth {
				heldAboveMin = append(heldAboveMin, held{uint64(d), xyz})
			}
		}
	}

	if c.cfg.ClipCacheSize == 0 || uint64(len(heldAboveMin)) <= c.cfg.ClipCacheSize {
		return nil
	}
	excess := uint64(len(heldAboveMin)) - c.cfg.ClipCacheSize
	for i := uint64(0); i < excess; i++ {
		h := heldAboveMin[i]
		s := c.slow[h.depth][h.xyz]
		if err := c.release(ctx, h.depth, h.xyz, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Clipper) release(ctx context.Context, depth uint64, xyz point.Xyz, s *slot) error {
	delete(c.slow[depth], xyz)
	if f := &c.fast[depth]; f.valid && f.slot == s {
		f.valid = false
	}
	return c.cache.ReleaseRef(ctx, point.Key{Depth: depth, Xyz: xyz})
}

// Close releases every chunk this clipper still holds. Call once after the
// worker has finished its file.
func (c *Clipper) Close(ctx context.Context) error {
	for d := point.MaxDepth - 1; d >= 0; d-- {
		m := c.slow[d]
		for xyz, s := range m {
			if err := c.release(ctx, uint64(d), xyz, s); err != nil {
				return err
			}
		}
	}
	return nil
}

type depthError struct {
	key point.Key
}

func (e depthError) Error() string {
	return "clipper: key " + e.key.String() + " exceeds max addressable depth"
}

func errTooDeep(key point.Key) error { return depthError{key} }
