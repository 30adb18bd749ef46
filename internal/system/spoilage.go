package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/mutation"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/world"
)

const SourceSpoil = "spoil"

// SpoilageSystem gives perishable items a freshness delta when they spawn.
// Items are Passive, so this is event-driven: the delta is registered once
// and the engine expires it after the archetype's shelf life. Nothing here
// iterates items per tick. Phase 2 (Update).
type SpoilageSystem struct {
	world      *world.State
	engine     *mutation.Engine
	lua        *scripting.Engine
	archetypes *data.ArchetypeTable
	pending    []ecs.EntityID
	rejected   int
}

func NewSpoilageSystem(ws *world.State, engine *mutation.Engine, lua *scripting.Engine, archetypes *data.ArchetypeTable) *SpoilageSystem {
	return &SpoilageSystem{world: ws, engine: engine, lua: lua, archetypes: archetypes}
}

// Subscribe queues spawned entities for evaluation on the next update.
func (s *SpoilageSystem) Subscribe(b *event.Bus) {
	event.Subscribe(b, func(e event.EntitySpawned) { s.pending = append(s.pending, e.ID) })
}

func (s *SpoilageSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *SpoilageSystem) Update(tick uint64, _ time.Duration) {
	for _, id := range s.pending {
		s.register(id, tick)
	}
	s.pending = s.pending[:0]
}

func (s *SpoilageSystem) register(id ecs.EntityID, tick uint64) {
	ident, ok := s.world.Identities.Get(id)
	if !ok {
		return
	}
	cond, ok := s.world.Conditions.Get(id)
	if !ok {
		return
	}
	a := s.archetypes.Get(ident.Archetype)
	if a == nil || a.ShelfLife == 0 {
		return
	}
	rate := s.lua.Rate("spoil_rate", scripting.RateContext{
		Archetype:  ident.Archetype,
		Durability: cond.Durability,
		Freshness:  cond.Freshness,
	})
	if rate == 0 {
		return
	}
	_, err := s.engine.RegisterDelta(mutation.Delta{
		Entity:        id,
		Field:         component.FieldFreshness,
		RatePerMinute: rate,
		Min:           mutation.Limit(0),
		Source:        SourceSpoil,
		ExpiresAt:     tick + a.ShelfLife,
		StopAtBound:   true,
	})
	if err != nil {
		s.rejected++
	}
}

// Rejected returns how many spoilage registrations the engine refused.
func (s *SpoilageSystem) Rejected() int { return s.rejected }
