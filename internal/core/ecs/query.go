package ecs

// Each2 visits entities holding both A and B, walking the smaller store in
// its slot order.
func Each2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for i, id := range sa.ids {
			if b, ok := sb.Get(id); ok {
				fn(id, sa.items[i], b)
			}
		}
		return
	}
	for i, id := range sb.ids {
		if a, ok := sa.Get(id); ok {
			fn(id, a, sb.items[i])
		}
	}
}

// Get2 fetches two components for one entity; ok only when both exist.
// Domain systems use it to walk the scheduler's active set rather than a whole store.
func Get2[A, B any](sa *PtrComponentStore[A], sb *PtrComponentStore[B], id EntityID) (*A, *B, bool) {
	a, ok := sa.Get(id)
	if !ok {
		return nil, nil, false
	}
	b, ok := sb.Get(id)
	if !ok {
		return nil, nil, false
	}
	return a, b, true
}
