// Package source abstracts the point-cloud file formats a build reads
// from. Parsing LAS/LAZ and reprojecting coordinates are out of scope here;
// this package only defines the boundary and a simple reference
// implementation used by tests and by any input already in a plain,
// delimited form.
package source

import (
	"context"

	"github.com/hobu-inc/ept/point"
)

// Record is one point as read from a source file, before it is addressed
// into the octree.
type Record struct {
	Point point.Point
	Attr  []byte
}

// Stream yields a source file's points one at a time.
type Stream interface {
	// Next returns the next record, or ok=false once exhausted.
	Next(ctx context.Context) (rec Record, ok bool, err error)

	// Bounds is the stream's own bounds, known from its header without a
	// full scan.
	Bounds() point.Bounds

	// PointCount is the stream's declared point count.
	PointCount() uint64

	Close() error
}

// Opener opens a path into a Stream. One Opener implementation typically
// covers one file format.
type Opener interface {
	Open(ctx context.Context, path string) (Stream, error)
}
