package ecs

// Registry tracks every component store so a destroyed entity leaves no data
// behind in any of them.
type Registry struct {
	stores []Removable
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]Removable, 0, 8),
	}
}

func (r *Registry) Register(store Removable) {
	r.stores = append(r.stores, store)
}

// RemoveAll clears the entity from every registered store and returns how
// many stores held data for it.
func (r *Registry) RemoveAll(id EntityID) int {
	n := 0
	for _, s := range r.stores {
		if s.Remove(id) {
			n++
		}
	}
	return n
}

// Len returns the number of registered stores.
func (r *Registry) Len() int { return len(r.stores) }
