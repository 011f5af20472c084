package manifest

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hobu-inc/ept/point"
)

func TestAddAssignsOriginsInOrder(t *testing.T) {
	m := New()
	a := m.Add("a.csv")
	b := m.Add("b.csv")
	assert.EqualValues(t, 0, a)
	assert.EqualValues(t, 1, b)

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, Outstanding, entries[0].Status)
	assert.Equal(t, Outstanding, entries[1].Status)
}

func TestMarkInsertedAndErrored(t *testing.T) {
	m := New()
	a := m.Add("a.csv")
	b := m.Add("b.csv")

	bounds := point.NewBounds(point.Point{0, 0, 0}, point.Point{1, 1, 1})
	m.MarkInserted(a, 10, 2, 1, bounds)
	m.MarkErrored(b, errors.New("bad header"))

	entries := m.Entries()
	assert.Equal(t, Inserted, entries[0].Status)
	assert.EqualValues(t, 10, entries[0].Inserted)
	assert.EqualValues(t, 2, entries[0].OutOfBounds)
	assert.Equal(t, bounds, entries[0].Bounds)

	assert.Equal(t, Errored, entries[1].Status)
	assert.Equal(t, "bad header", entries[1].ErrorMessage)
}

type memStore struct {
	puts map[string][]byte
}

func (s *memStore) Put(_ context.Context, name string, data []byte) error {
	if s.puts == nil {
		s.puts = map[string][]byte{}
	}
	s.puts[name] = data
	return nil
}

func TestSaveWritesListFile(t *testing.T) {
	m := New()
	m.Add("a.csv")
	m.MarkInserted(0, 5, 0, 0, point.NewBounds(point.Point{0, 0, 0}, point.Point{1, 1, 1}))

	store := &memStore{}
	require.NoError(t, m.Save(context.Background(), store, "ept-sources", ""))
	assert.Contains(t, store.puts, "ept-sources/list.json")
	assert.Contains(t, string(store.puts["ept-sources/list.json"]), "\"path\": \"a.csv\"")
}

func TestUnionBoundsSkipsErroredEntries(t *testing.T) {
	entries := []Entry{
		{Status: Inserted, Bounds: point.NewBounds(point.Point{0, 0, 0}, point.Point{1, 1, 1})},
		{Status: Errored, Bounds: point.NewBounds(point.Point{-100, -100, -100}, point.Point{-99, -99, -99})},
		{Status: Inserted, Bounds: point.NewBounds(point.Point{2, 2, 2}, point.Point{3, 3, 3})},
	}
	got := UnionBounds(entries)
	assert.Equal(t, point.Point{0, 0, 0}, got.Min)
	assert.Equal(t, point.Point{3, 3, 3}, got.Max)
}
