// Package scheduler decides which entities are processed each tick.
//
// Always entities run every tick. Proximity entities run while their chunk
// lies within a Chebyshev chunk radius of some Always entity's chunk, and
// freeze only after staying out of range for DemoteAfterPasses consecutive
// passes, so an anchor hovering on the boundary does not flicker them.
// Passive entities never appear in the active set.
package scheduler

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/metrics"
	"github.com/l1jgo/simcore/internal/spatial"
)

// Classifier exposes the classification marker of a live entity.
type Classifier interface {
	Marker(id ecs.EntityID) (component.Marker, bool)
}

// Locator exposes the current position of a live entity.
type Locator interface {
	Position(id ecs.EntityID) (component.Position, bool)
}

// TierListener is told about every tier assignment change, synchronously.
// The chunk store implements it to index or drop entities.
type TierListener interface {
	TierChanged(id ecs.EntityID, from, to component.Tier)
}

type entry struct {
	tier   component.Tier
	active bool // Proximity only: in range as of the last pass
	missed int  // consecutive out-of-range passes
}

// Scheduler is an explicitly owned, single-goroutine structure.
type Scheduler struct {
	cfg        config.SchedulerConfig
	chunkSize  float64
	classifier Classifier
	locator    Locator
	listeners  []TierListener
	metrics    *metrics.Counters
	log        *zap.Logger

	entries map[ecs.EntityID]*entry
	byTier  [3]map[ecs.EntityID]struct{}

	passTick uint64
	passed   bool
	active   []ecs.EntityID
	passes   uint64

	covered map[spatial.ChunkCoord]struct{}
	anchors map[spatial.ChunkCoord]struct{}
}

func New(cfg config.SchedulerConfig, chunkSize float64, c Classifier, l Locator, m *metrics.Counters, log *zap.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("scheduler: %w: chunk size must be positive, got %v", config.ErrInvalid, chunkSize)
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		cfg:        cfg,
		chunkSize:  chunkSize,
		classifier: c,
		locator:    l,
		metrics:    m,
		log:        log,
		entries:    make(map[ecs.EntityID]*entry, 4096),
		covered:    make(map[spatial.ChunkCoord]struct{}, 1024),
		anchors:    make(map[spatial.ChunkCoord]struct{}, 256),
	}
	for i := range s.byTier {
		s.byTier[i] = make(map[ecs.EntityID]struct{}, 1024)
	}
	return s, nil
}

// AddListener registers a TierListener.
func (s *Scheduler) AddListener(l TierListener) {
	s.listeners = append(s.listeners, l)
}

// Subscribe tracks entities from world spawn and despawn notifications.
func (s *Scheduler) Subscribe(b *event.Bus) {
	event.Subscribe(b, func(e event.EntitySpawned) { s.Track(e.ID) })
	event.Subscribe(b, func(e event.EntityDespawned) { s.Untrack(e.ID) })
}

// Classify returns the entity's tier: the tracked assignment when known,
// otherwise the marker policy. Entities without a marker, or that no longer
// exist, are Passive.
func (s *Scheduler) Classify(id ecs.EntityID) component.Tier {
	if e, ok := s.entries[id]; ok {
		return e.tier
	}
	m, ok := s.classifier.Marker(id)
	if !ok {
		return component.TierPassive
	}
	return m.DefaultTier()
}

// Tier returns the tracked tier.
func (s *Scheduler) Tier(id ecs.EntityID) (component.Tier, bool) {
	e, ok := s.entries[id]
	if !ok {
		return component.TierPassive, false
	}
	return e.tier, true
}

// Track classifies and starts tracking an entity. Stale ids are counted and
// ignored. Tracking an already-tracked entity keeps its current tier.
func (s *Scheduler) Track(id ecs.EntityID) component.Tier {
	if e, ok := s.entries[id]; ok {
		return e.tier
	}
	m, ok := s.classifier.Marker(id)
	if !ok {
		s.metrics.StaleScheduler.Add(1)
		return component.TierPassive
	}
	tier := m.DefaultTier()
	s.entries[id] = &entry{tier: tier}
	s.byTier[tier][id] = struct{}{}
	if tier.Indexed() {
		s.notify(id, component.TierPassive, tier)
	}
	return tier
}

// Untrack forgets an entity.
func (s *Scheduler) Untrack(id ecs.EntityID) {
	e, ok := s.entries[id]
	if !ok {
		return
	}
	delete(s.entries, id)
	delete(s.byTier[e.tier], id)
	if e.tier.Indexed() {
		s.notify(id, e.tier, component.TierPassive)
	}
}

// Promote raises an entity to a higher tier. It returns false when the id is
// unknown or tier is not above the current one. The change is visible from
// the next scheduling pass; the set already handed out for this tick stays.
func (s *Scheduler) Promote(id ecs.EntityID, tier component.Tier) bool {
	return s.retier(id, tier, true)
}

// Demote lowers an entity to a lower tier, with the same rules as Promote.
func (s *Scheduler) Demote(id ecs.EntityID, tier component.Tier) bool {
	return s.retier(id, tier, false)
}

func (s *Scheduler) retier(id ecs.EntityID, tier component.Tier, up bool) bool {
	if !tier.Valid() {
		return false
	}
	e, ok := s.entries[id]
	if !ok {
		s.metrics.StaleScheduler.Add(1)
		return false
	}
	if (up && tier <= e.tier) || (!up && tier >= e.tier) {
		return false
	}
	from := e.tier
	delete(s.byTier[from], id)
	e.tier = tier
	e.active = false
	e.missed = 0
	s.byTier[tier][id] = struct{}{}
	s.notify(id, from, tier)
	s.log.Debug("tier changed",
		zap.Uint64("entity", uint64(id)),
		zap.Stringer("from", from),
		zap.Stringer("to", tier))
	return true
}

func (s *Scheduler) notify(id ecs.EntityID, from, to component.Tier) {
	for _, l := range s.listeners {
		l.TierChanged(id, from, to)
	}
}

// GetActiveEntities returns the active set for tick, ascending by id. The
// first call for a tick runs the scheduling pass; later calls for the same
// tick return the same slice. Callers must not modify it.
func (s *Scheduler) GetActiveEntities(tick uint64) []ecs.EntityID {
	if s.passed && tick == s.passTick {
		return s.active
	}
	s.pass(tick)
	return s.active
}

// IsActive reports whether id is in the set computed by the last pass. Tier
// changes since that pass are not reflected until the next one.
func (s *Scheduler) IsActive(id ecs.EntityID) bool {
	_, found := slices.BinarySearch(s.active, id)
	return found
}

func (s *Scheduler) pass(tick uint64) {
	s.passTick = tick
	s.passed = true
	s.passes++

	clear(s.anchors)
	clear(s.covered)
	r := int32(s.cfg.ProximityRadius)
	active := make([]ecs.EntityID, 0, len(s.byTier[component.TierAlways])+len(s.byTier[component.TierProximity])/4)

	for id := range s.byTier[component.TierAlways] {
		active = append(active, id)
		pos, ok := s.locator.Position(id)
		if !ok {
			s.metrics.StaleScheduler.Add(1)
			continue
		}
		c := spatial.CoordOf(pos.X, pos.Y, s.chunkSize)
		if _, seen := s.anchors[c]; seen {
			continue
		}
		s.anchors[c] = struct{}{}
		for dx := -r; dx <= r; dx++ {
			for dy := -r; dy <= r; dy++ {
				s.covered[spatial.ChunkCoord{X: c.X + dx, Y: c.Y + dy}] = struct{}{}
			}
		}
	}

	for id := range s.byTier[component.TierProximity] {
		e := s.entries[id]
		inRange := false
		if pos, ok := s.locator.Position(id); ok {
			_, inRange = s.covered[spatial.CoordOf(pos.X, pos.Y, s.chunkSize)]
		} else {
			s.metrics.StaleScheduler.Add(1)
		}
		switch {
		case inRange:
			e.active = true
			e.missed = 0
		case e.active:
			e.missed++
			if e.missed >= s.cfg.DemoteAfterPasses {
				e.active = false
				e.missed = 0
			}
		}
		if e.active {
			active = append(active, id)
		}
	}

	slices.Sort(active)
	s.active = active
}

// Stats is a point-in-time view of the scheduler.
type Stats struct {
	Always    int
	Proximity int
	Passive   int
	Active    int
	Passes    uint64
	LastTick  uint64
}

func (s *Scheduler) Stats() Stats {
	return Stats{
		Always:    len(s.byTier[component.TierAlways]),
		Proximity: len(s.byTier[component.TierProximity]),
		Passive:   len(s.byTier[component.TierPassive]),
		Active:    len(s.active),
		Passes:    s.passes,
		LastTick:  s.passTick,
	}
}
