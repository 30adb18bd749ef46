package world

import (
	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/metrics"
)

// SpawnSpec describes one entity to create. Nil component pointers leave
// that component off the entity.
type SpawnSpec struct {
	Archetype  string
	Marker     component.Marker
	Categories component.Category
	X, Y       float64

	Vitals    *component.Vitals
	Wounds    *component.Wounds
	Growth    *component.Growth
	Condition *component.Condition
	Motion    *component.Motion
}

// State hosts every entity and its components. It owns the event bus that
// carries spawn, despawn and move notifications to the scheduler and the
// chunk store.
// Single-goroutine access only (game loop).
type State struct {
	ecs     *ecs.World
	bus     *event.Bus
	metrics *metrics.Counters

	Positions  *ecs.PtrComponentStore[component.Position]
	Identities *ecs.PtrComponentStore[component.Identity]
	Vitals     *ecs.PtrComponentStore[component.Vitals]
	Wounds     *ecs.PtrComponentStore[component.Wounds]
	Growth     *ecs.PtrComponentStore[component.Growth]
	Conditions *ecs.PtrComponentStore[component.Condition]
	Motions    *ecs.PtrComponentStore[component.Motion]
}

func NewState(bus *event.Bus, m *metrics.Counters) *State {
	if m == nil {
		m = metrics.New()
	}
	s := &State{
		ecs:        ecs.NewWorld(),
		bus:        bus,
		metrics:    m,
		Positions:  ecs.NewPtrComponentStore[component.Position](),
		Identities: ecs.NewPtrComponentStore[component.Identity](),
		Vitals:     ecs.NewPtrComponentStore[component.Vitals](),
		Wounds:     ecs.NewPtrComponentStore[component.Wounds](),
		Growth:     ecs.NewPtrComponentStore[component.Growth](),
		Conditions: ecs.NewPtrComponentStore[component.Condition](),
		Motions:    ecs.NewPtrComponentStore[component.Motion](),
	}
	r := s.ecs.Registry()
	r.Register(s.Positions)
	r.Register(s.Identities)
	r.Register(s.Vitals)
	r.Register(s.Wounds)
	r.Register(s.Growth)
	r.Register(s.Conditions)
	r.Register(s.Motions)
	return s
}

// Bus returns the notification bus.
func (s *State) Bus() *event.Bus { return s.bus }

// Spawn creates an entity and announces it with EntitySpawned.
func (s *State) Spawn(spec SpawnSpec) ecs.EntityID {
	id := s.ecs.CreateEntity()
	s.Positions.Set(id, &component.Position{X: spec.X, Y: spec.Y})
	s.Identities.Set(id, &component.Identity{
		Archetype:  spec.Archetype,
		Marker:     spec.Marker,
		Categories: spec.Categories,
	})
	if spec.Vitals != nil {
		v := *spec.Vitals
		s.Vitals.Set(id, &v)
	}
	if spec.Wounds != nil {
		w := *spec.Wounds
		s.Wounds.Set(id, &w)
	}
	if spec.Growth != nil {
		g := *spec.Growth
		s.Growth.Set(id, &g)
	}
	if spec.Condition != nil {
		c := *spec.Condition
		s.Conditions.Set(id, &c)
	}
	if spec.Motion != nil {
		m := *spec.Motion
		s.Motions.Set(id, &m)
	}
	event.Emit(s.bus, event.EntitySpawned{ID: id})
	return id
}

// Despawn queues the entity for destruction at the end of the tick and
// announces EntityDespawned. Stale or already queued ids return false.
func (s *State) Despawn(id ecs.EntityID) bool {
	if !s.ecs.MarkForDestruction(id) {
		s.metrics.StaleWorld.Add(1)
		return false
	}
	event.Emit(s.bus, event.EntityDespawned{ID: id})
	return true
}

// Move relocates an entity and announces EntityMoved.
func (s *State) Move(id ecs.EntityID, x, y float64) bool {
	pos, ok := s.Positions.Get(id)
	if !ok || !s.ecs.Alive(id) {
		s.metrics.StaleWorld.Add(1)
		return false
	}
	if pos.X == x && pos.Y == y {
		return true
	}
	from := *pos
	pos.X, pos.Y = x, y
	event.Emit(s.bus, event.EntityMoved{ID: id, FromX: from.X, FromY: from.Y, ToX: x, ToY: y})
	return true
}

// Flush destroys entities queued by Despawn and returns how many went.
func (s *State) Flush() int {
	return s.ecs.FlushDestroyQueue()
}

// Alive reports whether id names a live entity.
func (s *State) Alive(id ecs.EntityID) bool { return s.ecs.Alive(id) }

// Len returns the number of live entities.
func (s *State) Len() int { return s.ecs.Pool().Live() }

func (s *State) Marker(id ecs.EntityID) (component.Marker, bool) {
	ident, ok := s.Identities.Get(id)
	if !ok {
		return component.MarkerNone, false
	}
	return ident.Marker, true
}

func (s *State) Position(id ecs.EntityID) (component.Position, bool) {
	pos, ok := s.Positions.Get(id)
	if !ok {
		return component.Position{}, false
	}
	return *pos, true
}

// Locate returns the position and query categories of a live entity.
func (s *State) Locate(id ecs.EntityID) (component.Position, component.Category, bool) {
	pos, ok := s.Positions.Get(id)
	if !ok {
		return component.Position{}, 0, false
	}
	var cats component.Category
	if ident, ok := s.Identities.Get(id); ok {
		cats = ident.Categories
	}
	return *pos, cats, true
}

// ReadField returns a numeric field; ok is false when the entity is gone or
// lacks the owning component.
func (s *State) ReadField(id ecs.EntityID, f component.Field) (float64, bool) {
	p := s.fieldRef(id, f)
	if p == nil {
		return 0, false
	}
	return *p, true
}

// WriteField sets a numeric field; it reports false under the same
// conditions as ReadField.
func (s *State) WriteField(id ecs.EntityID, f component.Field, v float64) bool {
	p := s.fieldRef(id, f)
	if p == nil {
		return false
	}
	*p = v
	return true
}

func (s *State) fieldRef(id ecs.EntityID, f component.Field) *float64 {
	spec, ok := f.Spec()
	if !ok {
		return nil
	}
	switch spec.Owner {
	case component.OwnerVitals:
		v, ok := s.Vitals.Get(id)
		if !ok {
			return nil
		}
		switch f {
		case component.FieldBloodLoss:
			return &v.BloodLoss
		case component.FieldHealth:
			return &v.Health
		case component.FieldHunger:
			return &v.Hunger
		case component.FieldFatigue:
			return &v.Fatigue
		}
	case component.OwnerGrowth:
		g, ok := s.Growth.Get(id)
		if !ok {
			return nil
		}
		switch f {
		case component.FieldGrowth:
			return &g.Stage
		case component.FieldMoisture:
			return &g.Moisture
		}
	case component.OwnerCondition:
		c, ok := s.Conditions.Get(id)
		if !ok {
			return nil
		}
		switch f {
		case component.FieldDurability:
			return &c.Durability
		case component.FieldFreshness:
			return &c.Freshness
		}
	}
	return nil
}
