// Package metadata writes the top-level file a build or merge produces once
// its hierarchy and manifest are final: the schema, bounds, codec, subset
// descriptor, hierarchy step, and point count a reader needs before it can
// make sense of anything else in the output.
package metadata

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
)

// Store is the narrow write surface Save needs; endpoint.Endpoint satisfies
// it without either package importing the other's types.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
}

// Subset describes the partition a build covers, present only when the
// dataset was produced as one of several independent subset jobs.
type Subset struct {
	ID uint64 `json:"id"`
	Of uint64 `json:"of"`
}

// Metadata is the top-level record a build or merge writes once its
// hierarchy and manifest are final.
type Metadata struct {
	// RunID identifies this build or merge invocation, distinct from any
	// identity of the data itself - useful for correlating a dataset's
	// metadata file with the logs that produced it.
	RunID string `json:"runId"`

	Schema point.Schema `json:"schema"`

	// ConformingBounds is the actual extent of the inserted points, before
	// cube expansion. CubeBounds is the octree's root cube, which the
	// conforming bounds were expanded to fit.
	ConformingBoundsMin [3]float64 `json:"conformingBoundsMin"`
	ConformingBoundsMax [3]float64 `json:"conformingBoundsMax"`
	CubeBoundsMin       [3]float64 `json:"cubeBoundsMin"`
	CubeBoundsMax       [3]float64 `json:"cubeBoundsMax"`

	SRS string `json:"srs,omitempty"`

	Codec string `json:"codec"`

	Subset *Subset `json:"subset,omitempty"`

	HierarchyStep uint64 `json:"hierarchyStep"`

	PointCount uint64 `json:"points"`
	Overflowed uint64 `json:"overflowed"`
}

// New stamps a fresh run identifier onto an otherwise-zero Metadata.
func New() Metadata {
	return Metadata{RunID: uuid.NewString()}
}

func filename(postfix string) string {
	return "ept" + postfix + ".json"
}

// Save marshals m and writes it as the output's top-level metadata file,
// "ept.json" or "ept-{id}.json" for a subset build.
func (m Metadata) Save(ctx context.Context, store Store, postfix string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}
	name := filename(postfix)
	if err := store.Put(ctx, name, data); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}

// Load reads back the metadata file written by Save.
func Load(ctx context.Context, store interface {
	Get(ctx context.Context, name string) ([]byte, error)
}, postfix string) (Metadata, error) {
	name := filename(postfix)
	data, err := store.Get(ctx, name)
	if err != nil {
		return Metadata{}, errors.Wrapf(err, "read %s", name)
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, errors.Wrapf(err, "unmarshal %s", name)
	}
	return m, nil
}
