package hierarchy

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hobu-inc/ept/point"
)

func filename(key point.Key, postfix string) string {
	return key.String() + postfix + ".json"
}

// Save writes the hierarchy as a tree of sharded JSON files rooted at
// "0-0-0-0<postfix>.json". A file boundary falls every Step() depths (after
// ChooseStep has run, if it hasn't already); the boundary key is recorded in
// its parent file as sentinel -1 and carries its real count only in the new
// child file.
func (h *Hierarchy) Save(store Store, postfix string) error {
	step := h.ChooseStep()
	snapshot := h.Map()
	get := func(k point.Key) uint64 { return snapshot[k] }

	root := point.RootKey()
	curr := map[string]int64{}
	if err := h.saveNode(store, postfix, step, root, get, curr); err != nil {
		return err
	}
	return writeShard(store, postfix, root, curr)
}

func (h *Hierarchy) saveNode(store Store, postfix string, step uint64, key point.Key, get func(point.Key) uint64, curr map[string]int64) error {
	n := get(key)
	if n == 0 {
		return nil
	}

	if step != 0 && key.Depth != 0 && key.Depth%step == 0 {
		curr[key.String()] = -1
		next := map[string]int64{key.String(): int64(n)}
		for i := 0; i < point.DirCount; i++ {
			if err := h.saveNode(store, postfix, step, key.Child(point.Dir(i)), get, next); err != nil {
				return err
			}
		}
		return writeShard(store, postfix, key, next)
	}

	curr[key.String()] = int64(n)
	for i := 0; i < point.DirCount; i++ {
		if err := h.saveNode(store, postfix, step, key.Child(point.Dir(i)), get, curr); err != nil {
			return err
		}
	}
	return nil
}

func writeShard(store Store, postfix string, key point.Key, m map[string]int64) error {
	data, err := json.Marshal(m)
	if err != nil {
		return errors.Wrapf(err, "marshal hierarchy shard %s", key)
	}
	return store.Put(filename(key, postfix), data)
}

// Load reads the sharded hierarchy tree back into h, starting from the root
// shard and following -1 sentinels into their child files.
func (h *Hierarchy) Load(store Store, postfix string) error {
	return h.loadNode(store, postfix, point.RootKey())
}

func (h *Hierarchy) loadNode(store Store, postfix string, key point.Key) error {
	data, err := store.Get(filename(key, postfix))
	if err != nil {
		return errors.Wrapf(err, "load hierarchy shard %s", key)
	}

	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return errors.Wrapf(err, "unmarshal hierarchy shard %s", key)
	}

	for s, n := range m {
		k, err := point.ParseKey(s)
		if err != nil {
			return errors.Wrapf(err, "hierarchy shard %s", key)
		}
		if n < 0 {
			if err := h.loadNode(store, postfix, k); err != nil {
				return err
			}
			continue
		}
		h.Set(k, uint64(n))
	}
	return nil
}
