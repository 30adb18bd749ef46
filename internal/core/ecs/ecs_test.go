package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type health struct{ v float64 }
type tag struct{}

func TestEntityPoolRecyclesWithNewGeneration(t *testing.T) {
	p := NewEntityPool()
	a := p.Create()
	require.False(t, a.IsZero())
	assert.True(t, p.Alive(a))
	assert.Equal(t, 1, p.Live())

	assert.True(t, p.Destroy(a))
	assert.False(t, p.Alive(a))
	assert.False(t, p.Destroy(a), "second destroy of a stale id")

	b := p.Create()
	assert.Equal(t, a.Index(), b.Index())
	assert.NotEqual(t, a.Generation(), b.Generation())
	assert.False(t, p.Alive(a))
	assert.True(t, p.Alive(b))
}

func TestAliveRejectsUnknownIndex(t *testing.T) {
	p := NewEntityPool()
	assert.False(t, p.Alive(NewEntityID(42, 1)))
	assert.False(t, p.Alive(0))
}

func TestWorldDeferredDestroy(t *testing.T) {
	w := NewWorld()
	hs := NewPtrComponentStore[health]()
	w.Registry().Register(hs)

	id := w.CreateEntity()
	hs.Set(id, &health{v: 10})

	assert.True(t, w.MarkForDestruction(id))
	assert.False(t, w.MarkForDestruction(id), "already queued")
	assert.True(t, w.Pending(id))
	assert.True(t, w.Alive(id), "still alive until flush")

	assert.Equal(t, 1, w.FlushDestroyQueue())
	assert.False(t, w.Alive(id))
	assert.False(t, hs.Has(id))
	assert.False(t, w.Pending(id))
	assert.Equal(t, 0, w.Pool().Live())
}

func TestEach2AndGet2(t *testing.T) {
	hs := NewPtrComponentStore[health]()
	ts := NewPtrComponentStore[tag]()
	for i := uint32(1); i <= 5; i++ {
		id := NewEntityID(i, 1)
		hs.Set(id, &health{v: float64(i)})
		if i%2 == 1 {
			ts.Set(id, &tag{})
		}
	}

	sum := 0.0
	Each2(hs, ts, func(_ EntityID, h *health, _ *tag) { sum += h.v })
	assert.Equal(t, 9.0, sum)

	_, _, ok := Get2(hs, ts, NewEntityID(2, 1))
	assert.False(t, ok)
	h, _, ok := Get2(hs, ts, NewEntityID(3, 1))
	require.True(t, ok)
	assert.Equal(t, 3.0, h.v)
}

func TestStoreKeepsSlotOrderAcrossRemoval(t *testing.T) {
	s := NewPtrComponentStore[health]()
	ids := make([]EntityID, 4)
	for i := range ids {
		ids[i] = NewEntityID(uint32(i+1), 1)
		s.Set(ids[i], &health{v: float64(i)})
	}
	s.Set(ids[1], &health{v: 10})
	assert.Equal(t, 4, s.Len(), "set on an existing id replaces in place")

	assert.True(t, s.Remove(ids[0]))
	assert.False(t, s.Remove(ids[0]))

	var order []EntityID
	s.Each(func(id EntityID, _ *health) { order = append(order, id) })
	assert.Equal(t, []EntityID{ids[3], ids[1], ids[2]}, order, "last slot fills the gap")

	h, ok := s.Get(ids[3])
	require.True(t, ok)
	assert.Equal(t, 3.0, h.v)
	h, _ = s.Get(ids[1])
	assert.Equal(t, 10.0, h.v)
}

func TestRegistryCountsStoresHoldingData(t *testing.T) {
	r := NewRegistry()
	hs := NewPtrComponentStore[health]()
	ts := NewPtrComponentStore[tag]()
	r.Register(hs)
	r.Register(ts)

	id := NewEntityID(1, 1)
	hs.Set(id, &health{})
	assert.Equal(t, 1, r.RemoveAll(id))
	assert.Equal(t, 0, r.RemoveAll(id))
	assert.Equal(t, 2, r.Len())
}
