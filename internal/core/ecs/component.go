package ecs

// Removable is implemented by every component store so the Registry can drop
// an entity's data everywhere when it is destroyed. Remove reports whether the
// store held data for id.
type Removable interface {
	Remove(id EntityID) bool
}

// PtrComponentStore keeps one *T per entity in a dense slice with an index
// map beside it. Iteration follows slot order, which depends only on the
// sequence of Set and Remove calls, so two runs with the same inputs visit
// entities in the same order.
type PtrComponentStore[T any] struct {
	index map[EntityID]int
	ids   []EntityID
	items []*T
}

func NewPtrComponentStore[T any]() *PtrComponentStore[T] {
	return &PtrComponentStore[T]{
		index: make(map[EntityID]int, 1024),
		ids:   make([]EntityID, 0, 1024),
		items: make([]*T, 0, 1024),
	}
}

// Set stores c for id, replacing any previous value in place.
func (s *PtrComponentStore[T]) Set(id EntityID, c *T) {
	if i, ok := s.index[id]; ok {
		s.items[i] = c
		return
	}
	s.index[id] = len(s.ids)
	s.ids = append(s.ids, id)
	s.items = append(s.items, c)
}

func (s *PtrComponentStore[T]) Get(id EntityID) (*T, bool) {
	i, ok := s.index[id]
	if !ok {
		return nil, false
	}
	return s.items[i], true
}

// Remove swaps the last slot into id's place.
func (s *PtrComponentStore[T]) Remove(id EntityID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	last := len(s.ids) - 1
	if i != last {
		s.ids[i] = s.ids[last]
		s.items[i] = s.items[last]
		s.index[s.ids[i]] = i
	}
	s.items[last] = nil
	s.ids = s.ids[:last]
	s.items = s.items[:last]
	delete(s.index, id)
	return true
}

func (s *PtrComponentStore[T]) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *PtrComponentStore[T]) Len() int {
	return len(s.ids)
}

// Each visits entries in slot order. fn must not add or remove entries.
func (s *PtrComponentStore[T]) Each(fn func(EntityID, *T)) {
	for i, id := range s.ids {
		fn(id, s.items[i])
	}
}
