// Package config loads and validates a build job's JSON configuration,
// layering field defaults onto whatever the input document leaves unset.
package config

import (
	"encoding/json"
	"io"
	"os"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
)

// Build is the on-disk configuration for a "build" job.
type Build struct {
	Input  []string `json:"input"`
	Output string   `json:"output"`

	Threads int `json:"threads" default:"4"`
	Limit   int `json:"limit"`

	Codec string `json:"codec" default:"binary"`

	// SRS is the spatial reference system identifier (e.g. an EPSG code)
	// recorded verbatim in the output metadata. Reprojection itself is out
	// of scope here.
	SRS string `json:"srs,omitempty"`

	BodyDepth uint64 `json:"bodyDepth" default:"4"`

	MinNodeSize   uint64  `json:"minNodeSize" default:"4096"`
	MaxNodeSize   uint64  `json:"maxNodeSize" default:"32768"`
	OverflowRatio float64 `json:"overflowRatio" default:"0.25"`
	OverflowDepth uint64  `json:"overflowDepth" default:"4"`

	SleepCount    uint64 `json:"sleepCount" default:"65536"`
	MinClipDepth  uint64 `json:"minClipDepth" default:"4"`
	ClipCacheSize uint64 `json:"clipCacheSize" default:"4096"`

	SubsetID uint64 `json:"subsetId"`
	SubsetOf uint64 `json:"subsetOf" default:"1"`

	Scale  *point.Point `json:"scale,omitempty"`
	Offset *point.Point `json:"offset,omitempty"`
}

// Load reads, defaults, and validates a Build config from r.
func Load(r io.Reader) (Build, error) {
	var b Build
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return Build{}, errors.Wrap(err, "parse config")
	}
	if err := defaults.Set(&b); err != nil {
		return Build{}, errors.Wrap(err, "apply config defaults")
	}
	if err := b.Validate(); err != nil {
		return Build{}, err
	}
	return b, nil
}

// LoadFile opens path and loads a Build config from it.
func LoadFile(path string) (Build, error) {
	f, err := os.Open(path)
	if err != nil {
		return Build{}, errors.Wrapf(err, "open config %s", path)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks cross-field invariants Load's per-field defaults can't
// express on their own.
func (b Build) Validate() error {
	if len(b.Input) == 0 {
		return errors.New("config: input must list at least one path")
	}
	if b.Output == "" {
		return errors.New("config: output is required")
	}
	if b.Threads <= 0 {
		return errors.New("config: threads must be positive")
	}
	if b.MinNodeSize == 0 || b.MaxNodeSize < b.MinNodeSize {
		return errors.New("config: maxNodeSize must be >= minNodeSize > 0")
	}
	if b.BodyDepth == 0 || b.BodyDepth > 16 {
		return errors.New("config: bodyDepth must be in [1, 16]")
	}
	return nil
}

// BodySpan is 2^BodyDepth, the per-axis grid cell count each chunk's grid
// spans.
func (b Build) BodySpan() uint64 { return uint64(1) << b.BodyDepth }

// Merge is the on-disk configuration for a "merge" job: folding the outputs
// of several subset builds, run independently, back into one dataset.
type Merge struct {
	Output  string   `json:"output"`
	Subsets []string `json:"subsets"` // output dirs of each subset build, in id order

	// RootMin/RootMax are the cube-extended bounds the subset builds were
	// partitioned from - merge has no input files of its own to rederive
	// them, so they travel with the job.
	RootMin [3]float64 `json:"rootMin"`
	RootMax [3]float64 `json:"rootMax"`

	Codec string `json:"codec" default:"binary"`

	SRS string `json:"srs,omitempty"`

	BodyDepth     uint64  `json:"bodyDepth" default:"4"`
	OverflowDepth uint64  `json:"overflowDepth" default:"4"`
	MinNodeSize   uint64  `json:"minNodeSize" default:"4096"`
	MaxNodeSize   uint64  `json:"maxNodeSize" default:"32768"`
	OverflowRatio float64 `json:"overflowRatio" default:"0.25"`

	Retry struct {
		InitialMillis    int `json:"initialMillis" default:"200"`
		MaxMillis        int `json:"maxMillis" default:"5000"`
		MaxElapsedMillis int `json:"maxElapsedMillis" default:"45000"`
	} `json:"retry"`
}

// LoadMerge reads, defaults, and validates a Merge config from r.
func LoadMerge(r io.Reader) (Merge, error) {
	var m Merge
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return Merge{}, errors.Wrap(err, "parse merge config")
	}
	if err := defaults.Set(&m); err != nil {
		return Merge{}, errors.Wrap(err, "apply merge config defaults")
	}
	if err := m.Validate(); err != nil {
		return Merge{}, err
	}
	return m, nil
}

// LoadMergeFile opens path and loads a Merge config from it.
func LoadMergeFile(path string) (Merge, error) {
	f, err := os.Open(path)
	if err != nil {
		return Merge{}, errors.Wrapf(err, "open merge config %s", path)
	}
	defer f.Close()
	return LoadMerge(f)
}

// Validate checks cross-field invariants.
func (m Merge) Validate() error {
	if len(m.Subsets) == 0 {
		return errors.New("merge config: subsets must list at least one subset build")
	}
	if m.Output == "" {
		return errors.New("merge config: output is required")
	}
	if m.MinNodeSize == 0 || m.MaxNodeSize < m.MinNodeSize {
		return errors.New("merge config: maxNodeSize must be >= minNodeSize > 0")
	}
	if m.RootMin == m.RootMax {
		return errors.New("merge config: rootMin/rootMax must describe a non-degenerate cube")
	}
	return nil
}

// BodySpan is 2^BodyDepth, matching Build.BodySpan.
func (m Merge) BodySpan() uint64 { return uint64(1) << m.BodyDepth }

// Root builds the point.Bounds RootMin/RootMax describe.
func (m Merge) Root() point.Bounds {
	return point.NewBounds(
		point.Point{m.RootMin[0], m.RootMin[1], m.RootMin[2]},
		point.Point{m.RootMax[0], m.RootMax[1], m.RootMax[2]},
	)
}
