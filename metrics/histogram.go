// Package metrics provides small bucketed counters for build-time
// instrumentation: points inserted, bytes written, time spent evicting.
package metrics

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/dustin/go-humanize"
)

const numBuckets = 64

// Histogram is a power-of-two bucketed distribution of uint64 samples,
// cheap enough to update on every insert without its own lock - callers
// that need concurrent access wrap one per worker and Add() them together
// at the end, mirroring how a Clipper batches its own state before
// reporting.
type Histogram struct {
	buckets [numBuckets]uint64
	sum     uint64
}

func (h *Histogram) bucketVal(i int) uint64 { return uint64(1) << uint(i) }

func bucketIndex(v uint64) int {
	if v == 0 {
		return 0
	}
	return bits.Len64(v) - 1
}

// Sample records one observation.
func (h *Histogram) Sample(v uint64) {
	h.buckets[bucketIndex(v)]++
	h.sum += v
}

// Samples returns the total number of observations recorded.
func (h *Histogram) Samples() uint64 {
	var n uint64
	for _, c := range h.buckets {
		n += c
	}
	return n
}

// Sum returns the sum of every observation recorded.
func (h *Histogram) Sum() uint64 { return h.sum }

// Mean returns Sum() / Samples(), or 0 if there are no samples.
func (h *Histogram) Mean() uint64 {
	n := h.Samples()
	if n == 0 {
		return 0
	}
	return h.Sum() / n
}

// Add merges other's buckets into h.
func (h *Histogram) Add(other Histogram) {
	for i, c := range other.buckets {
		h.buckets[i] += c
	}
	h.sum += other.sum
}

func (h *Histogram) String() string {
	return fmt.Sprintf("Mean: %d, Sum: %d, Samples: %d", h.Mean(), h.Sum(), h.Samples())
}

// TimeHistogram renders its samples as durations, for timing the cost of
// chunk eviction and rehydration.
type TimeHistogram struct {
	Histogram
}

// NewTimeHistogram returns an empty TimeHistogram.
func NewTimeHistogram() TimeHistogram { return TimeHistogram{} }

func (h TimeHistogram) String() string {
	return fmt.Sprintf("Mean: %s, Sum: %s, Samples: %d",
		time.Duration(h.Mean()), time.Duration(h.Sum()), h.Samples())
}

// ByteHistogram renders its samples as byte sizes, for tracking encoded
// chunk payload sizes.
type ByteHistogram struct {
	Histogram
}

// NewByteHistogram returns an empty ByteHistogram.
func NewByteHistogram() ByteHistogram { return ByteHistogram{} }

func (h ByteHistogram) String() string {
	return fmt.Sprintf("Mean: %s, Sum: %s, Samples: %d",
		humanize.Bytes(h.Mean()), humanize.Bytes(h.Sum()), h.Samples())
}
