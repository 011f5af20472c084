package chunk

import "github.com/hobu-inc/ept/voxel"

// Contents returns every voxel currently resident in this chunk - grid and
// any remaining overflow buckets - for encoding at eviction time. It does
// not mutate the chunk: grid tubes are read under their own locks and the
// overflow buckets under the chunk's overflow lock.
func (c *Chunk) Contents() []voxel.Voxel {
	var out []voxel.Voxel
	c.grid.Each(func(_, _, _ uint64, v voxel.Voxel) {
		out = append(out, v)
	})

	c.overflowMu.Lock()
	for _, o := range c.overflow {
		if o == nil {
			continue
		}
		entries := o.Drain()
		for _, v := range entries {
			o.Insert(v)
		}
		out = append(out, entries...)
	}
	c.overflowMu.Unlock()

	return out
}

// Count is the chunk's current total resident point count (grid + all
// overflow), the value recorded in the hierarchy on eviction.
func (c *Chunk) Count() uint64 {
	c.overflowMu.Lock()
	n := c.overflowCount
	c.overflowMu.Unlock()
	return c.grid.Size() + n
}
