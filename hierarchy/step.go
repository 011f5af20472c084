package hierarchy

import "github.com/hobu-inc/ept/point"

// ChooseStep selects the hierarchy step via a grid search over
// candidateSteps, simulating how many shard files each step would produce
// and how evenly populated they'd be, and pins the winner on h. If the
// entire hierarchy already fits in a single file, no search runs and the
// current step is returned unchanged (0, meaning "one file, no sharding",
// unless SetStep pinned another).
func (h *Hierarchy) ChooseStep() uint64 {
	h.mu.Lock()
	m := h.m
	if len(m) <= maxNodesPerFile {
		h.mu.Unlock()
		return h.step
	}
	snapshot := make(map[point.Key]uint64, len(m))
	for k, v := range m {
		snapshot[k] = v
	}
	h.mu.Unlock()

	get := func(k point.Key) uint64 { return snapshot[k] }

	var best analysis
	haveBest := false
	for _, step := range candidateSteps {
		a := newAnalysis(step, simulateShards(step, get))
		if !haveBest || a.less(best) {
			best, haveBest = a, true
		}
	}
	if !haveBest {
		return 0
	}

	h.mu.Lock()
	h.step = best.step
	h.mu.Unlock()
	return best.step
}

// simulateShards walks the hierarchy exactly as Save would, tallying how
// many entries land in each shard file under the given step, without
// actually writing anything.
func simulateShards(step uint64, get func(point.Key) uint64) map[point.Key]uint64 {
	counts := make(map[point.Key]uint64)
	root := point.RootKey()
	if get(root) == 0 {
		return counts
	}
	counts[root] = 1
	for i := 0; i < point.DirCount; i++ {
		walkShards(step, root.Child(point.Dir(i)), root, get, counts)
	}
	return counts
}

func walkShards(step uint64, key, file point.Key, get func(point.Key) uint64, counts map[point.Key]uint64) {
	if get(key) == 0 {
		return
	}
	counts[file]++

	if step != 0 && key.Depth != 0 && key.Depth%step == 0 {
		counts[key] = 1
		for i := 0; i < point.DirCount; i++ {
			walkShards(step, key.Child(point.Dir(i)), key, get, counts)
		}
		return
	}

	for i := 0; i < point.DirCount; i++ {
		walkShards(step, key.Child(point.Dir(i)), file, get, counts)
	}
}
