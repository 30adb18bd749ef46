// Package mutation applies continuous rates of change to entity fields in
// batches. Domain systems register deltas; every interval the engine sums
// each field's contributions over the elapsed window and writes the field
// once, clamped to the narrowest bounds among its contributors.
package mutation

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/metrics"
)

// Resolver reads and writes entity fields for the engine.
type Resolver interface {
	Alive(id ecs.EntityID) bool
	ReadField(id ecs.EntityID, f component.Field) (float64, bool)
	WriteField(id ecs.EntityID, f component.Field, v float64) bool
}

// Clock reports the tick currently executing. *system.Runner satisfies it.
type Clock interface {
	Current() uint64
}

type key struct {
	entity ecs.EntityID
	field  component.Field
}

func cmpKey(a, b key) int {
	switch {
	case a.entity < b.entity:
		return -1
	case a.entity > b.entity:
		return 1
	case a.field < b.field:
		return -1
	case a.field > b.field:
		return 1
	}
	return 0
}

type contributor struct {
	handle Handle
	delta  Delta
	from   uint64 // accrues from this tick
}

// slot is one tracked (entity, field). Deltas retired mid-interval leave
// their accrual in pending so the next write still carries it.
type slot struct {
	contributors []*contributor
	pending      float64
	lo, hi       float64 // bounds carried by settled contributions
}

type tracked struct {
	fields map[component.Field]*slot
	count  int
}

type warnKey struct {
	field component.Field
	err   error
}

// Engine is an explicitly owned, single-goroutine structure.
type Engine struct {
	cfg            config.MutationConfig
	minutesPerTick float64
	clock          Clock
	resolver       Resolver
	metrics        *metrics.Counters
	log            *zap.Logger

	entities map[ecs.EntityID]*tracked
	handles  map[Handle]key
	next     Handle
	deltas   int

	last       uint64
	passes     uint64
	cursor     key
	haveCursor bool
	keys       []key

	warned map[warnKey]struct{}
}

func NewEngine(cfg config.MutationConfig, minutesPerTick float64, clock Clock, r Resolver, m *metrics.Counters, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("mutation engine: %w", err)
	}
	if minutesPerTick <= 0 {
		return nil, fmt.Errorf("mutation engine: %w: minutes per tick must be positive, got %v", config.ErrInvalid, minutesPerTick)
	}
	if m == nil {
		m = metrics.New()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:            cfg,
		minutesPerTick: minutesPerTick,
		clock:          clock,
		resolver:       r,
		metrics:        m,
		log:            log,
		entities:       make(map[ecs.EntityID]*tracked, 1024),
		handles:        make(map[Handle]key, 4096),
		warned:         make(map[warnKey]struct{}),
	}, nil
}

// RegisterDelta adds d, or replaces the live delta with the same entity,
// field and source in place and returns its handle. Configuration errors
// are logged once per (field, reason) and returned. A delta for an entity
// that no longer exists, or one already past its expiry, is dropped and
// yields a zero handle with no error.
func (e *Engine) RegisterDelta(d Delta) (Handle, error) {
	if err := d.validate(); err != nil {
		return 0, e.reject(d, err)
	}
	if !e.resolver.Alive(d.Entity) {
		e.metrics.StaleMutation.Add(1)
		return 0, nil
	}
	if _, ok := e.resolver.ReadField(d.Entity, d.Field); !ok {
		return 0, e.reject(d, ErrFieldAbsent)
	}
	now := e.clock.Current()
	if d.expired(now) {
		e.metrics.DeltasExpired.Add(1)
		return 0, nil
	}

	t := e.entities[d.Entity]
	if t != nil {
		if s := t.fields[d.Field]; s != nil {
			for _, c := range s.contributors {
				if c.delta.Source == d.Source {
					e.settle(s, c, now)
					c.delta = d
					c.from = now
					return c.handle, nil
				}
			}
		}
	}
	if e.cfg.MaxDeltasPerEntity > 0 && t != nil && t.count >= e.cfg.MaxDeltasPerEntity {
		return 0, e.reject(d, ErrDeltaLimit)
	}

	if t == nil {
		t = &tracked{fields: make(map[component.Field]*slot, 4)}
		e.entities[d.Entity] = t
	}
	s := t.fields[d.Field]
	if s == nil {
		s = newSlot(d.Field)
		t.fields[d.Field] = s
	}
	e.next++
	c := &contributor{handle: e.next, delta: d, from: now}
	s.contributors = append(s.contributors, c)
	t.count++
	e.deltas++
	e.handles[c.handle] = key{entity: d.Entity, field: d.Field}
	return c.handle, nil
}

func (e *Engine) reject(d Delta, err error) error {
	e.metrics.DeltasRejected.Add(1)
	wk := warnKey{field: d.Field, err: err}
	if _, seen := e.warned[wk]; !seen {
		e.warned[wk] = struct{}{}
		e.log.Warn("delta rejected",
			zap.Stringer("field", d.Field),
			zap.String("source", d.Source),
			zap.Uint64("entity", uint64(d.Entity)),
			zap.Error(err))
	}
	return fmt.Errorf("register delta %s/%s: %w", d.Field, d.Source, err)
}

// Cancel retires one delta. Accrual up to the current tick is kept for
// the next write. Returns false for unknown or already retired handles.
func (e *Engine) Cancel(h Handle) bool {
	k, ok := e.handles[h]
	if !ok {
		return false
	}
	t := e.entities[k.entity]
	s := t.fields[k.field]
	i := slices.IndexFunc(s.contributors, func(c *contributor) bool { return c.handle == h })
	if i < 0 {
		return false
	}
	e.settle(s, s.contributors[i], e.clock.Current())
	e.drop(k, t, s, i)
	return true
}

// RetireSource retires every delta on id tagged with source and returns
// how many were retired.
func (e *Engine) RetireSource(id ecs.EntityID, source string) int {
	t := e.entities[id]
	if t == nil {
		return 0
	}
	now := e.clock.Current()
	n := 0
	for f, s := range t.fields {
		for i := len(s.contributors) - 1; i >= 0; i-- {
			if s.contributors[i].delta.Source != source {
				continue
			}
			e.settle(s, s.contributors[i], now)
			e.drop(key{entity: id, field: f}, t, s, i)
			n++
		}
	}
	return n
}

// Renew retires id's deltas tagged source and registers the given ones
// under that tag. It returns the new handles and the first registration error.
func (e *Engine) Renew(id ecs.EntityID, source string, deltas ...Delta) ([]Handle, error) {
	e.RetireSource(id, source)
	var (
		handles []Handle
		first   error
	)
	for _, d := range deltas {
		d.Entity = id
		d.Source = source
		h, err := e.RegisterDelta(d)
		if err != nil {
			if first == nil {
				first = err
			}
			continue
		}
		if h != 0 {
			handles = append(handles, h)
		}
	}
	return handles, first
}

// Active reports whether h names a live delta.
func (e *Engine) Active(h Handle) bool {
	_, ok := e.handles[h]
	return ok
}

// Count returns the number of live deltas.
func (e *Engine) Count() int { return e.deltas }

// CountFor returns the number of live deltas on id.
func (e *Engine) CountFor(id ecs.EntityID) int {
	if t := e.entities[id]; t != nil {
		return t.count
	}
	return 0
}

// Tracking reports whether a write is due for (id, f) at the next pass.
// Domain systems must not write such a field directly.
func (e *Engine) Tracking(id ecs.EntityID, f component.Field) bool {
	t := e.entities[id]
	if t == nil {
		return false
	}
	_, ok := t.fields[f]
	return ok
}

// Tick applies due accumulation once Interval ticks have elapsed since the
// last pass. It returns the number of fields written.
func (e *Engine) Tick(current uint64) int {
	if current < e.last+e.cfg.Interval {
		return 0
	}
	e.last = current
	e.passes++
	e.metrics.MutationPasses.Add(1)

	e.keys = e.keys[:0]
	for id, t := range e.entities {
		for f := range t.fields {
			e.keys = append(e.keys, key{entity: id, field: f})
		}
	}
	if len(e.keys) == 0 {
		return 0
	}
	slices.SortFunc(e.keys, cmpKey)

	n := len(e.keys)
	if e.cfg.PassBudget > 0 && n > e.cfg.PassBudget {
		n = e.cfg.PassBudget
		e.metrics.MutationOverruns.Add(1)
	}
	start := 0
	if e.haveCursor {
		if i, found := slices.BinarySearchFunc(e.keys, e.cursor, cmpKey); found {
			start = i + 1
		} else {
			start = i
		}
		if start >= len(e.keys) {
			start = 0
		}
	}

	written := 0
	for i := 0; i < n; i++ {
		k := e.keys[(start+i)%len(e.keys)]
		if e.apply(k, current) {
			written++
		}
		e.cursor = k
	}
	e.haveCursor = n < len(e.keys)
	e.metrics.FieldWrites.Add(uint64(written))
	return written
}

// apply folds one field's contributions into a single write.
func (e *Engine) apply(k key, now uint64) bool {
	t := e.entities[k.entity]
	s := t.fields[k.field]

	v, ok := e.resolver.ReadField(k.entity, k.field)
	if !ok {
		e.metrics.StaleMutation.Add(uint64(max(len(s.contributors), 1)))
		e.dropSlot(k, t)
		return false
	}

	sum := s.pending
	lo, hi := s.lo, s.hi
	for _, c := range s.contributors {
		sum += e.accrual(c, now)
		lo, hi = c.delta.narrow(lo, hi)
	}
	v = clamp(v+sum, lo, hi)
	if !e.resolver.WriteField(k.entity, k.field, v) {
		e.metrics.StaleMutation.Add(uint64(max(len(s.contributors), 1)))
		e.dropSlot(k, t)
		return false
	}
	s.reset(k.field)

	for i := len(s.contributors) - 1; i >= 0; i-- {
		c := s.contributors[i]
		c.from = now
		switch {
		case c.delta.expired(now):
			e.metrics.DeltasExpired.Add(1)
			e.drop(k, t, s, i)
		case c.delta.StopAtBound && saturated(c.delta.RatePerMinute, v, lo, hi):
			e.metrics.DeltasSaturated.Add(1)
			e.drop(k, t, s, i)
		}
	}
	if len(s.contributors) == 0 {
		e.dropSlot(k, t)
	}
	return true
}

func saturated(rate, v, lo, hi float64) bool {
	return (rate > 0 && v >= hi) || (rate < 0 && v <= lo)
}

func (e *Engine) accrual(c *contributor, now uint64) float64 {
	end := c.delta.end(now)
	if end <= c.from {
		return 0
	}
	return c.delta.RatePerMinute * float64(end-c.from) * e.minutesPerTick
}

// settle moves a contributor's accrual so far into the slot's pending total.
func (e *Engine) settle(s *slot, c *contributor, now uint64) {
	if c.delta.end(now) <= c.from {
		return
	}
	s.pending += e.accrual(c, now)
	s.lo, s.hi = c.delta.narrow(s.lo, s.hi)
	c.from = now
}

// drop removes contributor i. An emptied slot stays while it holds
// pending accrual; the next pass writes it and then forgets it.
func (e *Engine) drop(k key, t *tracked, s *slot, i int) {
	delete(e.handles, s.contributors[i].handle)
	s.contributors = slices.Delete(s.contributors, i, i+1)
	t.count--
	e.deltas--
	if len(s.contributors) == 0 && s.pending == 0 {
		e.dropSlot(k, t)
	}
}

func (e *Engine) dropSlot(k key, t *tracked) {
	s, ok := t.fields[k.field]
	if !ok {
		return
	}
	for _, c := range s.contributors {
		delete(e.handles, c.handle)
	}
	t.count -= len(s.contributors)
	e.deltas -= len(s.contributors)
	delete(t.fields, k.field)
	if len(t.fields) == 0 {
		delete(e.entities, k.entity)
	}
}

func newSlot(f component.Field) *slot {
	s := &slot{}
	s.reset(f)
	return s
}

func (s *slot) reset(f component.Field) {
	spec, _ := f.Spec()
	s.pending = 0
	s.lo, s.hi = spec.Min, spec.Max
}

// Stats is a point-in-time view of the engine.
type Stats struct {
	Deltas      int
	Fields      int
	Entities    int
	Passes      uint64
	LastApplied uint64
}

func (e *Engine) Stats() Stats {
	fields := 0
	for _, t := range e.entities {
		fields += len(t.fields)
	}
	return Stats{
		Deltas:      e.deltas,
		Fields:      fields,
		Entities:    len(e.entities),
		Passes:      e.passes,
		LastApplied: e.last,
	}
}
