// Package manifest tracks the build's input files: one entry per origin,
// its status, and the per-file counters recorded in the final metadata.
package manifest

import (
	"context"
	"sync"

	"github.com/hobu-inc/ept/point"
	"github.com/hobu-inc/ept/source"
)

// Status is an origin's position in the build lifecycle.
type Status string

const (
	Outstanding Status = "outstanding"
	Inserted    Status = "inserted"
	Omitted     Status = "omitted"
	Errored     Status = "errored"
)

// Entry is one input file's manifest record.
type Entry struct {
	Origin uint64
	Path   string
	Status Status

	PointCount   uint64
	Inserted     uint64
	OutOfBounds  uint64
	Overflowed   uint64
	Bounds       point.Bounds
	ErrorMessage string
}

// Manifest is the build-wide, origin-ordered list of inputs.
type Manifest struct {
	mu      sync.Mutex
	entries []*Entry
}

// New returns an empty manifest.
func New() *Manifest { return &Manifest{} }

// Add appends a new outstanding entry for path, assigning it the next
// origin ID in manifest order.
func (m *Manifest) Add(path string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	origin := uint64(len(m.entries))
	m.entries = append(m.entries, &Entry{Origin: origin, Path: path, Status: Outstanding})
	return origin
}

// Entries returns a snapshot copy of every entry, ordered by origin.
func (m *Manifest) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}

// Get returns a copy of the entry for origin.
func (m *Manifest) Get(origin uint64) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if origin >= uint64(len(m.entries)) {
		return Entry{}, false
	}
	return *m.entries[origin], true
}

// MarkInserted records a successful pass over origin's file.
func (m *Manifest) MarkInserted(origin uint64, inserted, outOfBounds, overflowed uint64, bounds point.Bounds) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[origin]
	e.Status = Inserted
	e.Inserted = inserted
	e.OutOfBounds = outOfBounds
	e.Overflowed = overflowed
	e.Bounds = bounds
}

// MarkErrored records a per-file failure. The build continues regardless.
func (m *Manifest) MarkErrored(origin uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.entries[origin]
	e.Status = Errored
	e.ErrorMessage = err.Error()
}

// Scan opens every path via opener to discover its bounds and point count
// up front, without inserting any points, populating a fresh Manifest in
// path order. Per-path open failures are recorded as Errored entries
// rather than aborting the scan.
func Scan(ctx context.Context, paths []string, opener source.Opener) *Manifest {
	m := New()
	for _, p := range paths {
		origin := m.Add(p)
		stream, err := opener.Open(ctx, p)
		if err != nil {
			m.MarkErrored(origin, err)
			continue
		}
		func() {
			defer stream.Close()
			m.mu.Lock()
			e := m.entries[origin]
			e.PointCount = stream.PointCount()
			e.Bounds = stream.Bounds()
			m.mu.Unlock()
		}()
	}
	return m
}

// UnionBounds returns the bounds enclosing every scanned entry's bounds.
func UnionBounds(entries []Entry) point.Bounds {
	var b point.Bounds
	first := true
	for _, e := range entries {
		if e.Status == Errored {
			continue
		}
		if first {
			b = e.Bounds
			first = false
			continue
		}
		b = point.NewBounds(
			point.Point{minF(b.Min.X, e.Bounds.Min.X), minF(b.Min.Y, e.Bounds.Min.Y), minF(b.Min.Z, e.Bounds.Min.Z)},
			point.Point{maxF(b.Max.X, e.Bounds.Max.X), maxF(b.Max.Y, e.Bounds.Max.Y), maxF(b.Max.Z, e.Bounds.Max.Z)},
		)
	}
	return b
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
