package system

import (
	"math"
	"math/rand"
	"time"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/l1jgo/simcore/internal/world"
)

const (
	fleeRadius   = 48.0 // fauna turn away from agents inside this
	restRadius   = 4.0  // agents rest once this close to a structure
	tiredAt      = 70.0 // fatigue that sends an agent looking for shelter
	restedAt     = 10.0 // fatigue at which a resting agent sets off again
	turnJitter   = 0.3  // max heading change per tick, radians
	fleeInterval = 4    // ticks between fauna threat scans
)

// WanderSystem moves active entities that carry Motion. Phase 2 (Update).
//
// Fauna steer away from the first agent within fleeRadius. Tired agents
// head for the nearest structure and rest there until fatigue falls. Every
// accepted step is a world move, which reaches the chunk store as a
// notification next tick.
type WanderSystem struct {
	world *world.State
	frame *Frame
	query *spatial.Engine
	cfg   config.WorldConfig
	rng   *rand.Rand
}

func NewWanderSystem(ws *world.State, frame *Frame, query *spatial.Engine, cfg config.WorldConfig, seed int64) *WanderSystem {
	return &WanderSystem{
		world: ws,
		frame: frame,
		query: query,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

func (s *WanderSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *WanderSystem) Update(tick uint64, _ time.Duration) {
	for _, id := range s.frame.Active {
		pos, m, ok := ecs.Get2(s.world.Positions, s.world.Motions, id)
		if !ok || m.Speed <= 0 {
			continue
		}
		ident, ok := s.world.Identities.Get(id)
		if !ok {
			continue
		}
		switch {
		case ident.Categories&component.CategoryFauna != 0:
			if tick%fleeInterval == 0 {
				s.flee(pos, m)
			}
		case ident.Categories&component.CategoryAgent != 0:
			if s.rest(id, pos, m) {
				continue
			}
		}
		s.step(id, pos, m)
	}
}

func (s *WanderSystem) flee(pos *component.Position, m *component.Motion) {
	threats := s.query.WithinRadius(pos.X, pos.Y, fleeRadius, component.CategoryAgent)
	if len(threats) == 0 {
		return
	}
	// Results may name an agent that moved or despawned since the last rebuild.
	if p, ok := s.world.Position(threats[0]); ok {
		m.Heading = math.Atan2(pos.Y-p.Y, pos.X-p.X)
	}
}

// rest reports whether the agent stays put this tick.
func (s *WanderSystem) rest(id ecs.EntityID, pos *component.Position, m *component.Motion) bool {
	v, w, ok := ecs.Get2(s.world.Vitals, s.world.Wounds, id)
	if !ok {
		return false
	}
	if w.Resting {
		if v.Fatigue > restedAt {
			return true
		}
		w.Resting = false
		return false
	}
	if v.Fatigue < tiredAt {
		return false
	}
	shelter, ok := s.query.Nearest(pos.X, pos.Y, component.CategoryStructure)
	if !ok {
		return false
	}
	if shelter.Distance <= restRadius {
		w.Resting = true
		return true
	}
	if p, ok := s.world.Position(shelter.ID); ok {
		m.Heading = math.Atan2(p.Y-pos.Y, p.X-pos.X)
	}
	return false
}

func (s *WanderSystem) step(id ecs.EntityID, pos *component.Position, m *component.Motion) {
	m.Heading += (s.rng.Float64()*2 - 1) * turnJitter
	x := pos.X + math.Cos(m.Heading)*m.Speed
	y := pos.Y + math.Sin(m.Heading)*m.Speed
	if x < 0 || x >= s.cfg.Width {
		m.Heading = math.Pi - m.Heading
		x = math.Min(math.Max(x, 0), math.Nextafter(s.cfg.Width, 0))
	}
	if y < 0 || y >= s.cfg.Height {
		m.Heading = -m.Heading
		y = math.Min(math.Max(y, 0), math.Nextafter(s.cfg.Height, 0))
	}
	s.world.Move(id, x, y)
}
