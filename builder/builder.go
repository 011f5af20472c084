// Package builder drives a manifest of source files through the octree,
// owning the chunk cache, the hierarchy, and the worker pool that inserts
// points concurrently.
package builder

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hobu-inc/ept/chunk"
	"github.com/hobu-inc/ept/chunkcache"
	"github.com/hobu-inc/ept/clipper"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/manifest"
	"github.com/hobu-inc/ept/metadata"
	"github.com/hobu-inc/ept/metrics"
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/source"
	"github.com/hobu-inc/ept/voxel"
)

// Config bundles a build job's fixed parameters.
type Config struct {
	Threads      int
	Limit        int // 0 means no limit on origins processed this run
	Schema       point.Schema
	Root         point.Bounds // cube-extended bounds
	ConformingBounds point.Bounds // pre-cubify data extent, recorded in metadata
	SRS          string
	Codec        string // codec name recorded in metadata
	DataDir      string
	SourcesDir   string
	SubsetPostfix string
	SubsetID     uint64
	SubsetOf     uint64 // 0 or 1 means this is not a subset build
	ChunkConfig  chunk.Config
	ClipperConfig clipper.Config
	Retry        chunkcache.RetryPolicy
	Log          *zap.Logger
}

// Builder runs a single indexing job end to end.
type Builder struct {
	cfg      Config
	out      endpoint.Endpoint
	opener   source.Opener
	manifest *manifest.Manifest
	hier     *hierarchy.Hierarchy
	cache    *chunkcache.ChunkCache
	log      *zap.Logger
	runID    string

	metricsMu     sync.Mutex
	insertLatency metrics.TimeHistogram
}

// New constructs a Builder that will write through out using cdc as its
// chunk codec, reading files via opener.
func New(cfg Config, out endpoint.Endpoint, cdc codec.Codec, opener source.Opener, m *manifest.Manifest) *Builder {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	hier := hierarchy.New()
	cacheCfg := chunkcache.Config{
		ChunkConfig: cfg.ChunkConfig,
		Schema:      cfg.Schema,
		Root:        cfg.Root,
		DataDir:     cfg.DataDir,
		Retry:       cfg.Retry,
		Log:         log,
	}
	return &Builder{
		cfg:      cfg,
		out:      out,
		opener:   opener,
		manifest: m,
		hier:     hier,
		cache:    chunkcache.New(cacheCfg, hier, cdc, out),
		log:      log,
		runID:    uuid.NewString(),
	}
}

// Hierarchy exposes the build's hierarchy, read by Save and by subset
// merge.
func (b *Builder) Hierarchy() *hierarchy.Hierarchy { return b.hier }

// Run drives every outstanding manifest entry through the octree, up to
// cfg.Limit origins, cfg.Threads at a time. A per-file error marks that
// entry Errored and the run continues; only fatal cache/endpoint errors
// abort the whole run.
func (b *Builder) Run(ctx context.Context) error {
	entries := b.manifest.Entries()

	eg, ctx := errgroup.WithContext(ctx)
	if b.cfg.Threads > 0 {
		eg.SetLimit(b.cfg.Threads)
	}

	dispatched := 0
	for _, e := range entries {
		if e.Status != manifest.Outstanding {
			continue
		}
		if b.cfg.Limit > 0 && dispatched >= b.cfg.Limit {
			break
		}
		dispatched++

		entry := e
		eg.Go(func() error {
			return b.runOne(ctx, entry)
		})
	}

	return eg.Wait()
}

func (b *Builder) runOne(ctx context.Context, entry manifest.Entry) error {
	stream, err := b.opener.Open(ctx, entry.Path)
	if err != nil {
		b.manifest.MarkErrored(entry.Origin, err)
		b.log.Warn("skipping unreadable file", zap.String("path", entry.Path), zap.Error(err))
		return nil
	}
	defer stream.Close()

	clp := clipper.New(b.cache, b.cfg.ClipperConfig)

	var inserted, outOfBounds uint64
	for {
		rec, ok, err := stream.Next(ctx)
		if err != nil {
			b.manifest.MarkErrored(entry.Origin, err)
			b.log.Warn("aborting file after read error", zap.String("path", entry.Path), zap.Error(err))
			return clp.Close(ctx)
		}
		if !ok {
			break
		}
		if !b.cfg.Root.Contains(rec.Point) {
			outOfBounds++
			continue
		}

		v := voxel.New(rec.Point, rec.Attr)
		if err := clp.Insert(ctx, v, point.RootKey()); err != nil {
			if closeErr := clp.Close(ctx); closeErr != nil {
				b.log.Error("close clipper after fatal insert error", zap.Error(closeErr))
			}
			return errors.Wrapf(err, "fatal: inserting point from %s", entry.Path)
		}
		inserted++
	}

	overflowed := clp.Overflowed()
	b.metricsMu.Lock()
	b.insertLatency.Add(clp.InsertLatency().Histogram)
	b.metricsMu.Unlock()

	if err := clp.Close(ctx); err != nil {
		return errors.Wrapf(err, "fatal: releasing clipper for %s", entry.Path)
	}

	b.manifest.MarkInserted(entry.Origin, inserted, outOfBounds, overflowed, stream.Bounds())
	return nil
}

// Save flushes every remaining resident chunk, then writes the hierarchy,
// the manifest, and finally the top-level metadata file that ties them
// together. Call once after Run completes.
func (b *Builder) Save(ctx context.Context) error {
	if err := b.cache.Flush(ctx); err != nil {
		return errors.Wrap(err, "flush chunk cache")
	}
	if err := b.hier.Save(endpoint.HierarchyStore{Endpoint: b.out, Ctx: ctx, Dir: "ept-hierarchy"}, b.cfg.SubsetPostfix); err != nil {
		return errors.Wrap(err, "save hierarchy")
	}
	if err := b.manifest.Save(ctx, b.out, b.cfg.SourcesDir, b.cfg.SubsetPostfix); err != nil {
		return errors.Wrap(err, "save manifest")
	}

	cacheStats := b.cache.Stats()
	b.log.Info("build metrics",
		zap.String("insertLatency", b.insertLatency.String()),
		zap.String("evictLatency", cacheStats.EvictLatency.String()),
		zap.String("rehydrateLatency", cacheStats.RehydrateLatency.String()),
		zap.String("evictRetries", cacheStats.EvictRetries.String()),
		zap.String("rehydrateRetries", cacheStats.RehydrateRetries.String()),
		zap.String("evictedBytes", cacheStats.EvictedBytes.String()),
	)

	var points, overflowed uint64
	for _, e := range b.manifest.Entries() {
		points += e.Inserted
		overflowed += e.Overflowed
	}

	md := metadata.Metadata{
		RunID:  b.runID,
		Schema: b.cfg.Schema,
		ConformingBoundsMin: [3]float64{b.cfg.ConformingBounds.Min.X, b.cfg.ConformingBounds.Min.Y, b.cfg.ConformingBounds.Min.Z},
		ConformingBoundsMax: [3]float64{b.cfg.ConformingBounds.Max.X, b.cfg.ConformingBounds.Max.Y, b.cfg.ConformingBounds.Max.Z},
		CubeBoundsMin:       [3]float64{b.cfg.Root.Min.X, b.cfg.Root.Min.Y, b.cfg.Root.Min.Z},
		CubeBoundsMax:       [3]float64{b.cfg.Root.Max.X, b.cfg.Root.Max.Y, b.cfg.Root.Max.Z},
		SRS:                 b.cfg.SRS,
		Codec:               b.cfg.Codec,
		HierarchyStep:       b.hier.Step(),
		PointCount:          points,
		Overflowed:          overflowed,
	}
	if b.cfg.SubsetOf > 1 {
		md.Subset = &metadata.Subset{ID: b.cfg.SubsetID, Of: b.cfg.SubsetOf}
	}
	if err := md.Save(ctx, b.out, b.cfg.SubsetPostfix); err != nil {
		return errors.Wrap(err, "save metadata")
	}
	return nil
}
