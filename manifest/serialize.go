package manifest

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Store is the narrow write surface Save needs; endpoint.Endpoint
// satisfies it without either package importing the other's types.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
}

type wireEntry struct {
	Origin       uint64  `json:"origin"`
	Path         string  `json:"path"`
	Status       Status  `json:"status"`
	PointCount   uint64  `json:"pointCount"`
	Inserted     uint64  `json:"inserted"`
	OutOfBounds  uint64  `json:"outOfBounds"`
	Overflowed   uint64  `json:"overflowed"`
	ErrorMessage string  `json:"error,omitempty"`
	BoundsMin    [3]float64 `json:"boundsMin"`
	BoundsMax    [3]float64 `json:"boundsMax"`
}

// Save writes "list<postfix>.json" under dir (ept-sources/list.json for a
// non-subset build with dir "ept-sources"), one record per origin in
// manifest order, matching the persisted-layout convention used for
// hierarchy and metadata files.
func (m *Manifest) Save(ctx context.Context, store Store, dir, postfix string) error {
	entries := m.Entries()
	wire := make([]wireEntry, len(entries))
	for i, e := range entries {
		wire[i] = wireEntry{
			Origin:       e.Origin,
			Path:         e.Path,
			Status:       e.Status,
			PointCount:   e.PointCount,
			Inserted:     e.Inserted,
			OutOfBounds:  e.OutOfBounds,
			Overflowed:   e.Overflowed,
			ErrorMessage: e.ErrorMessage,
			BoundsMin:    [3]float64{e.Bounds.Min.X, e.Bounds.Min.Y, e.Bounds.Min.Z},
			BoundsMax:    [3]float64{e.Bounds.Max.X, e.Bounds.Max.Y, e.Bounds.Max.Z},
		}
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal manifest")
	}
	name := dir + "/list" + postfix + ".json"
	if err := store.Put(ctx, name, data); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	return nil
}
