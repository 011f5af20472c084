// Package endpoint abstracts the blob store a build reads its source
// manifest from and writes chunk/hierarchy/metadata files to.
package endpoint

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by Get when the named object does not exist
// (TryGetSize reports absence through its bool instead). Endpoint
// implementations must wrap their underlying not-found signal with this
// sentinel so callers can branch on it uniformly.
var ErrNotFound = errors.New("endpoint: object not found")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Endpoint is a named blob store: the output/temp locations a build writes
// to, or the location a source manifest or an existing dataset is read
// from.
type Endpoint interface {
	// Put writes data under name, replacing any existing object.
	Put(ctx context.Context, name string, data []byte) error

	// Get reads the full contents of name. Returns ErrNotFound if absent.
	Get(ctx context.Context, name string) ([]byte, error)

	// TryGetSize returns the byte size of name without fetching its
	// contents, and whether it exists at all.
	TryGetSize(ctx context.Context, name string) (uint64, bool, error)

	// List returns every object name under prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Root describes the endpoint's location, for logging.
	Root() string
}
