package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/point"
)

func TestLoadAppliesDefaults(t *testing.T) {
	r := strings.NewReader(`{"input": ["a.csv"], "output": "out/"}`)
	b, err := Load(r)
	require.NoError(t, err)

	assert.Equal(t, 4, b.Threads)
	assert.Equal(t, "binary", b.Codec)
	assert.EqualValues(t, 4, b.BodyDepth)
	assert.EqualValues(t, 16, b.BodySpan())
	assert.InDelta(t, 0.25, b.OverflowRatio, 1e-9)
	assert.EqualValues(t, 1, b.SubsetOf)
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	r := strings.NewReader(`{"input": ["a.csv"], "output": "out/", "threads": 8, "codec": "zstandard"}`)
	b, err := Load(r)
	require.NoError(t, err)

	assert.Equal(t, 8, b.Threads)
	assert.Equal(t, "zstandard", b.Codec)
}

func TestLoadRejectsMissingInput(t *testing.T) {
	r := strings.NewReader(`{"output": "out/"}`)
	_, err := Load(r)
	assert.Error(t, err)
}

func TestLoadRejectsInvertedNodeSizes(t *testing.T) {
	r := strings.NewReader(`{"input": ["a.csv"], "output": "out/", "minNodeSize": 100, "maxNodeSize": 10}`)
	_, err := Load(r)
	assert.Error(t, err)
}

func TestLoadMergeAppliesDefaultsAndRoot(t *testing.T) {
	r := strings.NewReader(`{
		"output": "merged/",
		"subsets": ["s0/", "s1/", "s2/", "s3/"],
		"rootMin": [0, 0, 0],
		"rootMax": [16, 16, 16]
	}`)
	m, err := LoadMerge(r)
	require.NoError(t, err)

	assert.Equal(t, "binary", m.Codec)
	assert.EqualValues(t, 4, m.OverflowDepth)
	assert.Len(t, m.Subsets, 4)
	assert.Equal(t, point.Point{8, 8, 8}, m.Root().Mid())
}

func TestLoadMergeRejectsDegenerateRoot(t *testing.T) {
	r := strings.NewReader(`{"output": "merged/", "subsets": ["s0/"]}`)
	_, err := LoadMerge(r)
	assert.Error(t, err)
}

func TestLoadMergeRejectsEmptySubsets(t *testing.T) {
	r := strings.NewReader(`{"output": "merged/", "rootMin": [0,0,0], "rootMax": [1,1,1]}`)
	_, err := LoadMerge(r)
	assert.Error(t, err)
}
