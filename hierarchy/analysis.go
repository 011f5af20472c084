package hierarchy

import (
	"math"

	"github.com/hobu-inc/ept/point"
)

// analysis summarizes what a candidate step would produce, mirroring the
// reference implementation's own per-step bookkeeping: how many shard files
// result, how unevenly sized they are, and whether they all stay under the
// per-file cap.
type analysis struct {
	step            uint64
	totalFiles      uint64
	totalNodes      uint64
	maxNodesPerFile uint64
	mean            float64
	stddev          float64
	rsd             float64
}

func newAnalysis(step uint64, counts map[point.Key]uint64) analysis {
	a := analysis{step: step, totalFiles: uint64(len(counts))}
	for _, n := range counts {
		a.totalNodes += n
		if n > a.maxNodesPerFile {
			a.maxNodesPerFile = n
		}
	}
	if a.totalFiles > 0 {
		a.mean = float64(a.totalNodes) / float64(a.totalFiles)
	}
	var ss float64
	for _, n := range counts {
		d := float64(n) - a.mean
		ss += d * d
	}
	if a.totalFiles > 1 {
		a.stddev = math.Sqrt(ss / (float64(a.totalFiles) - 1.0))
	}
	if a.mean > 0 {
		a.rsd = a.stddev / a.mean
	}
	return a
}

func (a analysis) fits() bool { return a.maxNodesPerFile <= maxNodesPerFile }

// less orders two analyses so the best candidate sorts first: fitting under
// the cap beats not fitting; among fits, a clearly tighter spread (one-fifth
// the relative standard deviation or better) wins; ties prefer the larger
// step, since fewer, bigger shards mean fewer round trips at read time.
func (a analysis) less(b analysis) bool {
	if a.fits() && !b.fits() {
		return true
	}
	if b.fits() && !a.fits() {
		return false
	}
	if a.rsd < b.rsd/5.0 {
		return true
	}
	if b.rsd < a.rsd/5.0 {
		return false
	}
	return a.step > b.step
}
