// Package chunkcache owns every live Chunk for a build: creating them on
// first access, rehydrating previously-evicted ones from the endpoint, and
// writing them back out once their reference count drops to zero.
package chunkcache

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/metrics"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

const numShards = 256

// RetryPolicy bounds the exponential backoff applied to endpoint I/O during
// eviction and rehydration. Exhausting it is fatal: the cache cannot make
// forward progress if it cannot evict or rehydrate a chunk.
type RetryPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultRetryPolicy matches the reference implementation's intent: retry
// transient endpoint failures for a little under a minute before giving up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  45 * time.Second,
	}
}

func (p RetryPolicy) build(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = p.MaxElapsedTime
	return backoff.WithContext(b, ctx)
}

// Config bundles everything a ChunkCache needs to create, rehydrate, and
// evict chunks.
type Config struct {
	ChunkConfig chunk.Config
	Schema      point.Schema
	Root        point.Bounds
	DataDir     string // e.g. "ept-data"
	Retry       RetryPolicy
	Log         *zap.Logger
}

// ChunkCache is the shared, mutable map of every chunk currently resident
// in memory for this build.
type ChunkCache struct {
	cfg  Config
	hier *hierarchy.Hierarchy
	cdc  codec.Codec
	out  endpoint.Endpoint
	log  *zap.Logger

	shards [numShards]cacheShard

	statsMu          sync.Mutex
	evictLatency     metrics.TimeHistogram
	rehydrateLatency metrics.TimeHistogram
	evictRetries     metrics.Histogram
	rehydrateRetries metrics.Histogram
	evictedBytes     metrics.ByteHistogram
}

// Stats is a snapshot of this cache's eviction/rehydration instrumentation,
// read once at the end of a build.
type Stats struct {
	EvictLatency     metrics.TimeHistogram
	RehydrateLatency metrics.TimeHistogram
	EvictRetries     metrics.Histogram
	RehydrateRetries metrics.Histogram
	EvictedBytes     metrics.ByteHistogram
}

// Stats returns a copy of the cache's current instrumentation.
func (c *ChunkCache) Stats() Stats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return Stats{
		EvictLatency:     c.evictLatency,
		RehydrateLatency: c.rehydrateLatency,
		EvictRetries:     c.evictRetries,
		RehydrateRetries: c.rehydrateRetries,
		EvictedBytes:     c.evictedBytes,
	}
}

type cacheShard struct {
	mu     sync.Mutex
	chunks map[point.Key]*chunk.Chunk
}

// New builds a ChunkCache. hier, cdc, and out are shared across the whole
// build; cfg.ChunkConfig/Schema/Root parameterize every chunk it creates.
func New(cfg Config, hier *hierarchy.Hierarchy, cdc codec.Codec, out endpoint.Endpoint) *ChunkCache {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	c := &ChunkCache{cfg: cfg, hier: hier, cdc: cdc, out: out, log: log}
	for i := range c.shards {
		c.shards[i].chunks = make(map[point.Key]*chunk.Chunk)
	}
	return c
}

func shardIndex(key point.Key) uint64 {
	return xxhash.Sum64String(key.String()) % numShards
}

func (c *ChunkCache) shardFor(key point.Key) *cacheShard {
	return &c.shards[shardIndex(key)]
}

// AcquireRef returns the chunk at key, creating and, if the hierarchy shows
// prior residency, rehydrating it on first access. The caller owns one
// reference and must eventually call ReleaseRef.
func (c *ChunkCache) AcquireRef(ctx context.Context, key point.Key) (*chunk.Chunk, error) {
	s := c.shardFor(key)

	s.mu.Lock()
	if existing, ok := s.chunks[key]; ok {
		existing.AddRef()
		s.mu.Unlock()
		return existing, nil
	}

	ch := chunk.New(key, key.Bounds(c.cfg.Root), c.cfg.ChunkConfig, c.hier)
	s.chunks[key] = ch
	s.mu.Unlock()

	if np := c.hier.Get(key); np > 0 {
		if err := c.rehydrate(ctx, ch, key, np); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// ReleaseRef drops one reference to the chunk at key. When the count
// reaches zero, the chunk's contents are encoded and written, and the
// hierarchy is updated with its final point count.
func (c *ChunkCache) ReleaseRef(ctx context.Context, key point.Key) error {
	s := c.shardFor(key)

	s.mu.Lock()
	ch, ok := s.chunks[key]
	if !ok {
		s.mu.Unlock()
		return errors.Errorf("release of unknown chunk %s", key)
	}
	remaining := ch.DelRef()
	if remaining > 0 {
		s.mu.Unlock()
		return nil
	}
	delete(s.chunks, key)
	s.mu.Unlock()

	return c.evict(ctx, ch, key)
}

// Insert is the top-level entry point: place v, currently addressed by
// key, descending through child chunks as needed.
func (c *ChunkCache) Insert(ctx context.Context, v voxel.Voxel, key point.Key) error {
	ch, err := c.AcquireRef(ctx, key)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := c.ReleaseRef(ctx, key); releaseErr != nil && c.log != nil {
			c.log.Error("release ref after insert", zap.String("key", key.String()), zap.Error(releaseErr))
		}
	}()

	placed, spills := ch.Insert(v)
	for _, sp := range spills {
		if err := c.Insert(ctx, sp.Voxel, sp.Key); err != nil {
			return err
		}
	}
	if placed {
		return nil
	}

	dir := point.Direction(ch.Bounds().Mid(), v.Point)
	return c.Insert(ctx, v, key.Child(dir))
}

func (c *ChunkCache) evict(ctx context.Context, ch *chunk.Chunk, key point.Key) error {
	contents := ch.Contents()
	if len(contents) == 0 {
		return nil
	}

	data, err := c.cdc.Encode(contents, c.cfg.Schema)
	if err != nil {
		return errors.Wrapf(err, "encode chunk %s", key)
	}

	name := c.cfg.DataDir + "/" + key.String() + c.cdc.Ext()
	var attempts uint64
	op := func() error {
		attempts++
		if err := c.out.Put(ctx, name, data); err != nil {
			return err
		}
		return nil
	}
	start := time.Now()
	err = backoff.Retry(op, c.cfg.Retry.build(ctx))
	c.recordEvict(time.Since(start), attempts, uint64(len(data)))
	if err != nil {
		return errors.Wrapf(err, "fatal: could not evict chunk %s after retrying", key)
	}

	c.hier.Set(key, uint64(len(contents)))
	c.log.Debug("evicted chunk", zap.String("key", key.String()), zap.Int("points", len(contents)))
	return nil
}

func (c *ChunkCache) recordEvict(d time.Duration, attempts, bytes uint64) {
	c.statsMu.Lock()
	c.evictLatency.Sample(uint64(d))
	if attempts > 0 {
		c.evictRetries.Sample(attempts - 1)
	}
	c.evictedBytes.Sample(bytes)
	c.statsMu.Unlock()
}

func (c *ChunkCache) recordRehydrate(d time.Duration, attempts uint64) {
	c.statsMu.Lock()
	c.rehydrateLatency.Sample(uint64(d))
	if attempts > 0 {
		c.rehydrateRetries.Sample(attempts - 1)
	}
	c.statsMu.Unlock()
}

func (c *ChunkCache) rehydrate(ctx context.Context, ch *chunk.Chunk, key point.Key, expected uint64) error {
	name := c.cfg.DataDir + "/" + key.String() + c.cdc.Ext()

	var data []byte
	var attempts uint64
	op := func() error {
		attempts++
		d, err := c.out.Get(ctx, name)
		if err != nil {
			if endpoint.IsNotFound(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		data = d
		return nil
	}
	start := time.Now()
	err := backoff.Retry(op, c.cfg.Retry.build(ctx))
	c.recordRehydrate(time.Since(start), attempts)
	if err != nil {
		return errors.Wrapf(err, "fatal: could not rehydrate chunk %s after retrying", key)
	}

	points, err := c.cdc.Decode(data, c.cfg.Schema)
	if err != nil {
		return errors.Wrapf(err, "decode chunk %s", key)
	}
	if uint64(len(points)) != expected {
		return errors.Errorf("fatal: chunk %s decoded %d points, hierarchy recorded %d", key, len(points), expected)
	}

	for _, v := range points {
		placed, spills := ch.Insert(v)
		for _, sp := range spills {
			if err := c.Insert(ctx, sp.Voxel, sp.Key); err != nil {
				return err
			}
		}
		if !placed {
			dir := point.Direction(ch.Bounds().Mid(), v.Point)
			if err := c.Insert(ctx, v, key.Child(dir)); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush evicts every currently-resident chunk regardless of ref count,
// called once at the end of a run after all Clippers have dropped.
func (c *ChunkCache) Flush(ctx context.Context) error {
	for i := range c.shards {
		s := &c.shards[i]
		s.mu.Lock()
		remaining := make(map[point.Key]*chunk.Chunk, len(s.chunks))
		for k, v := range s.chunks {
			remaining[k] = v
		}
		s.chunks = make(map[point.Key]*chunk.Chunk)
		s.mu.Unlock()

		for key, ch := range remaining {
			if err := c.evict(ctx, ch, key); err != nil {
				return err
			}
		}
	}
	return nil
}
