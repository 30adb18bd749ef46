package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/mutation"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/world"
)

// Delta source tags owned by VitalsSystem.
const (
	SourceBleed   = "bleed"
	SourceRecover = "recover"
	SourceHunger  = "hunger"
	SourceFatigue = "fatigue"
	SourceHealth  = "health"
)

// VitalsSystem turns creature conditions into rate deltas. Phase 2 (Update).
//
// It runs on mutation interval boundaries, ahead of the mutation pass. Each
// run re-evaluates every active creature, recomputes rates from current
// state through Lua and renews its sources: retire first, then register
// again if the condition still holds. Wounds close one per run while resting.
type VitalsSystem struct {
	world    *world.State
	frame    *Frame
	lua      *scripting.Engine
	renew    *renewer
	interval uint64
}

func NewVitalsSystem(ws *world.State, frame *Frame, engine *mutation.Engine, lua *scripting.Engine, interval uint64) *VitalsSystem {
	return &VitalsSystem{
		world:    ws,
		frame:    frame,
		lua:      lua,
		renew:    newRenewer(engine, SourceBleed, SourceRecover, SourceHunger, SourceFatigue, SourceHealth),
		interval: max(interval, 1),
	}
}

func (s *VitalsSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *VitalsSystem) Update(tick uint64, _ time.Duration) {
	if tick%s.interval != 0 {
		return
	}
	s.renew.begin()
	for _, id := range s.frame.Active {
		v, w, ok := ecs.Get2(s.world.Vitals, s.world.Wounds, id)
		if !ok {
			continue
		}
		s.renew.touch(id)
		s.evaluate(id, v, w)
	}
	s.renew.sweep()
}

func (s *VitalsSystem) evaluate(id ecs.EntityID, v *component.Vitals, w *component.Wounds) {
	if w.Resting && w.Count > 0 {
		w.Count--
	}
	ctx := scripting.RateContext{
		BloodLoss: v.BloodLoss,
		Health:    v.Health,
		Hunger:    v.Hunger,
		Fatigue:   v.Fatigue,
		Wounds:    w.Count,
		Resting:   w.Resting,
	}
	if ident, ok := s.world.Identities.Get(id); ok {
		ctx.Archetype = ident.Archetype
	}

	bleeding := w.Count > 0
	s.renew.set(id, SourceBleed, bleeding, mutation.Delta{
		Field:         component.FieldBloodLoss,
		RatePerMinute: s.lua.Rate("bleed_rate", ctx),
		Max:           mutation.Limit(100),
	})
	s.renew.set(id, SourceRecover, !bleeding && v.BloodLoss > 0, mutation.Delta{
		Field:         component.FieldBloodLoss,
		RatePerMinute: s.lua.Rate("recover_rate", ctx),
		Min:           mutation.Limit(0),
		StopAtBound:   true,
	})
	s.renew.set(id, SourceHunger, true, mutation.Delta{
		Field:         component.FieldHunger,
		RatePerMinute: s.lua.Rate("hunger_rate", ctx),
		Max:           mutation.Limit(100),
	})
	s.renew.set(id, SourceFatigue, true, mutation.Delta{
		Field:         component.FieldFatigue,
		RatePerMinute: s.lua.Rate("fatigue_rate", ctx),
		Min:           mutation.Limit(0),
		Max:           mutation.Limit(100),
	})
	s.renew.set(id, SourceHealth, true, mutation.Delta{
		Field:         component.FieldHealth,
		RatePerMinute: s.lua.Rate("health_rate", ctx),
	})
}
