// Package codec serializes a chunk's resident voxels to and from the byte
// layout stored at rest, independent of where those bytes end up (see
// endpoint).
package codec

import (
	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/voxel"
)

// Codec encodes/decodes one chunk's worth of voxels. Schema carries the
// attribute layout needed to size each point's record.
type Codec interface {
	// Name identifies the codec in ept.json ("binary", "zstandard", ...).
	Name() string

	// Ext is the file extension chunk data files carry under this codec.
	Ext() string

	// Encode serializes points: their float64 coordinates as given, plus
	// their attribute bytes.
	Encode(points []voxel.Voxel, schema point.Schema) ([]byte, error)

	// Decode is Encode's inverse.
	Decode(data []byte, schema point.Schema) ([]voxel.Voxel, error)
}

// ByName resolves a codec by its Name(). The CLI uses it to turn the codec
// named in a build or merge config into a Codec.
func ByName(name string) (Codec, bool) {
	switch name {
	case rawCodec{}.Name():
		return rawCodec{}, true
	case (&zstdCodec{}).Name():
		return NewZstd(), true
	default:
		return nil, false
	}
}
