package endpoint

import "context"

// HierarchyStore adapts an Endpoint, plus a fixed directory prefix and
// background context, into the context-free hierarchy.Store interface.
type HierarchyStore struct {
	Endpoint Endpoint
	Ctx      context.Context
	Dir      string
}

func (s HierarchyStore) Put(name string, data []byte) error {
	return s.Endpoint.Put(s.Ctx, s.Dir+"/"+name, data)
}

func (s HierarchyStore) Get(name string) ([]byte, error) {
	return s.Endpoint.Get(s.Ctx, s.Dir+"/"+name)
}
