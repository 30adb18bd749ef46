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

const (
	SourceGrow = "grow"
	SourceSoil = "soil"
)

// GrowthSystem drives plant growth and soil moisture for flora near an
// anchor. Phase 2 (Update), on mutation interval boundaries. Frozen flora
// has its deltas retired and stops growing until an anchor returns.
type GrowthSystem struct {
	world    *world.State
	frame    *Frame
	lua      *scripting.Engine
	terrain  *world.Seeder
	renew    *renewer
	interval uint64
}

func NewGrowthSystem(ws *world.State, frame *Frame, engine *mutation.Engine, lua *scripting.Engine, terrain *world.Seeder, interval uint64) *GrowthSystem {
	return &GrowthSystem{
		world:    ws,
		frame:    frame,
		lua:      lua,
		terrain:  terrain,
		renew:    newRenewer(engine, SourceGrow, SourceSoil),
		interval: max(interval, 1),
	}
}

func (s *GrowthSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *GrowthSystem) Update(tick uint64, _ time.Duration) {
	if tick%s.interval != 0 {
		return
	}
	s.renew.begin()
	for _, id := range s.frame.Active {
		g, pos, ok := ecs.Get2(s.world.Growth, s.world.Positions, id)
		if !ok {
			continue
		}
		s.renew.touch(id)
		ctx := scripting.RateContext{
			Stage:    g.Stage,
			Moisture: g.Moisture,
			Density:  s.terrain.Density(pos.X, pos.Y),
		}
		s.renew.set(id, SourceGrow, g.Stage < 1, mutation.Delta{
			Field:         component.FieldGrowth,
			RatePerMinute: s.lua.Rate("growth_rate", ctx),
			StopAtBound:   true,
		})
		s.renew.set(id, SourceSoil, true, mutation.Delta{
			Field:         component.FieldMoisture,
			RatePerMinute: s.lua.Rate("moisture_rate", ctx),
		})
	}
	s.renew.sweep()
}
