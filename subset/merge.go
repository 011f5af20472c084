package subset

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/chunkcache"
	"github.com/hobu-inc/ept/codec"
	"github.com/hobu-inc/ept/endpoint"
	"github.com/hobu-inc/ept/hierarchy"
	"github.com/hobu-inc/ept/point"
)

// Source is one already-built subset's output, read back for merging.
type Source struct {
	Hierarchy *hierarchy.Hierarchy
	Out       endpoint.Endpoint
	Codec     codec.Codec
	DataDir   string
	Schema    point.Schema
}

// Merge folds src into dst. Entries at depth below sharedDepth are
// rehydrated from src's chunk files and reinserted into dst through the
// normal descent, reconciling points that landed in chunks the subset
// partitions share; entries at or above sharedDepth are disjoint by
// construction and are simply recorded in dst's hierarchy.
func Merge(ctx context.Context, dstCache *chunkcache.ChunkCache, dstHier *hierarchy.Hierarchy, src Source, sharedDepth uint64) error {
	for key, count := range src.Hierarchy.Map() {
		if key.Depth >= sharedDepth {
			dstHier.Set(key, count)
			continue
		}

		name := src.DataDir + "/" + key.String() + src.Codec.Ext()
		data, err := src.Out.Get(ctx, name)
		if err != nil {
			return errors.Wrapf(err, "merge: read %s", name)
		}
		points, err := src.Codec.Decode(data, src.Schema)
		if err != nil {
			return errors.Wrapf(err, "merge: decode %s", name)
		}
		for _, v := range points {
			if err := dstCache.Insert(ctx, v, point.RootKey()); err != nil {
				return errors.Wrapf(err, "merge: reinsert point from %s", name)
			}
		}
	}
	return nil
}
