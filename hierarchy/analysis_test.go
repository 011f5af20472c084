package hierarchy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hobu-inc/ept/point"
)

// TestNewAnalysisStddevIsOverFilesNotNodes guards against computing the
// per-file spread as a sample variance across every node in the hierarchy
// instead of across the shard files themselves: with counts {10, 10, 10,
// 100}, three files are perfectly uniform and one is an outlier, so the
// variance must come out large relative to the mean even though the total
// node count (130) would otherwise swamp a totalNodes-1 denominator.
func TestNewAnalysisStddevIsOverFilesNotNodes(t *testing.T) {
	counts := map[point.Key]uint64{
		chainKey(0): 10,
		chainKey(1): 10,
		chainKey(2): 10,
		chainKey(3): 100,
	}
	a := newAnalysis(7, counts)

	assert.EqualValues(t, 4, a.totalFiles)
	assert.EqualValues(t, 130, a.totalNodes)
	assert.InDelta(t, 32.5, a.mean, 1e-9)

	wantSS := 3*math.Pow(10-32.5, 2) + math.Pow(100-32.5, 2)
	wantStddev := math.Sqrt(wantSS / 3.0)
	assert.InDelta(t, wantStddev, a.stddev, 1e-6)
}

func TestNewAnalysisSingleFileHasZeroStddev(t *testing.T) {
	a := newAnalysis(5, map[point.Key]uint64{chainKey(0): 42})
	assert.EqualValues(t, 1, a.totalFiles)
	assert.Zero(t, a.stddev)
	assert.Zero(t, a.rsd)
}
