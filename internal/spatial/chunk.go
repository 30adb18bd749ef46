package spatial

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/metrics"
)

// Store partitions the world into square chunks of side S and keeps, per
// chunk, a cached membership index that queries read. Only Always and
// Proximity entities are ever indexed.
//
// Membership notifications update the authoritative residents table at once
// and mark chunks dirty. The cached index is rebuilt lazily by Rebuild on a
// throttled cadence, so query results lag movement by at most one rebuild
// interval (plus any budget deferral, counted as an overrun).
//
// Accessed only from the game loop goroutine, no locks.
type Store struct {
	cfg     config.ChunkConfig
	locator Locator
	metrics *metrics.Counters

	records   map[ecs.EntityID]*record
	residents map[ChunkCoord]map[ecs.EntityID]struct{}
	chunks    map[ChunkCoord]*Chunk

	dirtyQueue []ChunkCoord
	dirtySet   map[ChunkCoord]struct{}

	passes   uint64
	lastPass uint64
	partial  bool // a pass deferred dirty chunks; cached chunks may disagree

	bounds     [4]int32 // minX, minY, maxX, maxY over cached chunks
	haveBounds bool
}

// Locator resolves a newly indexed entity's position and query categories.
type Locator interface {
	Locate(id ecs.EntityID) (component.Position, component.Category, bool)
}

// ChunkCoord is an integer chunk coordinate.
type ChunkCoord struct {
	X int32
	Y int32
}

// CoordOf returns the chunk containing world point (x, y). Negative
// coordinates floor toward negative infinity; points beyond the int32 chunk
// range saturate to its edge and NaN maps to chunk 0.
func CoordOf(x, y, size float64) ChunkCoord {
	return ChunkCoord{X: chunkIndex(x / size), Y: chunkIndex(y / size)}
}

func chunkIndex(v float64) int32 {
	f := math.Floor(v)
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

// Chebyshev returns the chunk-grid Chebyshev distance between c and o.
func (c ChunkCoord) Chebyshev(o ChunkCoord) int64 {
	return max(abs64(int64(c.X)-int64(o.X)), abs64(int64(c.Y)-int64(o.Y)))
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// Member is one indexed entity as of the chunk's last rebuild.
type Member struct {
	ID         ecs.EntityID
	X          float64
	Y          float64
	Categories component.Category
}

// Chunk is the cached index of one cell.
type Chunk struct {
	Coord       ChunkCoord
	Generation  uint64 // bumped on every rebuild
	LastRebuild uint64

	members    []Member
	byCategory [component.NumCategories][]int32 // category bit -> member offsets
	counts     [component.NumCategories]int
	dirty      bool
}

// Members returns the cached members. Callers must not modify the slice.
func (c *Chunk) Members() []Member { return c.members }

func (c *Chunk) Len() int { return len(c.members) }

// Count returns the aggregate member count for a single category bit.
func (c *Chunk) Count(cat component.Category) int {
	if bits.OnesCount32(uint32(cat)) != 1 {
		return 0
	}
	return c.counts[bits.TrailingZeros32(uint32(cat))]
}

// Dirty reports whether membership changed since the last rebuild.
func (c *Chunk) Dirty() bool { return c.dirty }

// each visits cached members matching filter. A single-bit filter walks the
// per-category index; anything else tests every member.
func (c *Chunk) each(filter component.Category, fn func(*Member)) {
	if bits.OnesCount32(uint32(filter)) == 1 {
		for _, off := range c.byCategory[bits.TrailingZeros32(uint32(filter))] {
			fn(&c.members[off])
		}
		return
	}
	for i := range c.members {
		if c.members[i].Categories.Matches(filter) {
			fn(&c.members[i])
		}
	}
}

type record struct {
	pos   component.Position
	coord ChunkCoord
	cats  component.Category
}

// NewStore validates the chunk configuration and returns an empty store.
func NewStore(cfg config.ChunkConfig, locator Locator, m *metrics.Counters) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("chunk store: %w", err)
	}
	if m == nil {
		m = metrics.New()
	}
	return &Store{
		cfg:       cfg,
		locator:   locator,
		metrics:   m,
		records:   make(map[ecs.EntityID]*record, 4096),
		residents: make(map[ChunkCoord]map[ecs.EntityID]struct{}, 256),
		chunks:    make(map[ChunkCoord]*Chunk, 256),
		dirtySet:  make(map[ChunkCoord]struct{}, 64),
	}, nil
}

// Size returns the chunk side length S.
func (s *Store) Size() float64 { return s.cfg.Size }

// Subscribe wires world movement and removal notifications into the store.
func (s *Store) Subscribe(b *event.Bus) {
	event.Subscribe(b, func(e event.EntityMoved) { s.Move(e.ID, e.ToX, e.ToY) })
	event.Subscribe(b, func(e event.EntityDespawned) { s.Remove(e.ID) })
}

// TierChanged indexes entities entering Always/Proximity and drops entities
// falling to Passive. It is the scheduler's only way into the store.
func (s *Store) TierChanged(id ecs.EntityID, _, to component.Tier) {
	if !to.Indexed() {
		s.Remove(id)
		return
	}
	if _, ok := s.records[id]; ok {
		return
	}
	pos, cats, ok := s.locator.Locate(id)
	if !ok {
		s.metrics.StaleSpatial.Add(1)
		return
	}
	coord := CoordOf(pos.X, pos.Y, s.cfg.Size)
	s.records[id] = &record{pos: pos, coord: coord, cats: cats}
	s.addResident(coord, id)
	s.markDirty(coord)
}

// Move records a position change. Entities that are not indexed are ignored.
func (s *Store) Move(id ecs.EntityID, x, y float64) {
	rec, ok := s.records[id]
	if !ok {
		return
	}
	rec.pos = component.Position{X: x, Y: y}
	coord := CoordOf(x, y, s.cfg.Size)
	if coord != rec.coord {
		s.removeResident(rec.coord, id)
		s.markDirty(rec.coord)
		s.addResident(coord, id)
		rec.coord = coord
	}
	s.markDirty(coord)
}

// Remove drops an entity from the store.
func (s *Store) Remove(id ecs.EntityID) {
	rec, ok := s.records[id]
	if !ok {
		return
	}
	delete(s.records, id)
	s.removeResident(rec.coord, id)
	s.markDirty(rec.coord)
}

// Indexed reports whether the store tracks the entity.
func (s *Store) Indexed(id ecs.EntityID) bool {
	_, ok := s.records[id]
	return ok
}

// Rebuild runs a throttled rebuild pass: at most once every RebuildInterval
// ticks, over at most RebuildBudget dirty chunks in FIFO order. Deferred
// chunks keep their previous index. Returns the number of chunks rebuilt.
func (s *Store) Rebuild(tick uint64) int {
	if s.passes > 0 && tick-s.lastPass < s.cfg.RebuildInterval {
		return 0
	}
	return s.pass(tick, s.cfg.RebuildBudget)
}

// Flush rebuilds every dirty chunk regardless of cadence or budget. Used once
// after seeding so the first queries see a complete index.
func (s *Store) Flush(tick uint64) int {
	return s.pass(tick, 0)
}

func (s *Store) pass(tick uint64, budget int) int {
	s.passes++
	s.lastPass = tick
	s.metrics.RebuildPasses.Add(1)

	n := len(s.dirtyQueue)
	if budget > 0 && n > budget {
		n = budget
	}
	for _, coord := range s.dirtyQueue[:n] {
		delete(s.dirtySet, coord)
		s.rebuildChunk(coord, tick)
	}
	rest := copy(s.dirtyQueue, s.dirtyQueue[n:])
	s.dirtyQueue = s.dirtyQueue[:rest]

	if rest > 0 {
		s.partial = true
		s.metrics.RebuildOverruns.Add(1)
	} else {
		s.partial = false
	}
	if n > 0 {
		s.metrics.ChunksRebuilt.Add(uint64(n))
		s.recomputeBounds()
	}
	return n
}

func (s *Store) rebuildChunk(coord ChunkCoord, tick uint64) {
	ids := s.residents[coord]
	if len(ids) == 0 {
		delete(s.residents, coord)
		delete(s.chunks, coord)
		return
	}
	ch, ok := s.chunks[coord]
	if !ok {
		ch = &Chunk{Coord: coord}
		s.chunks[coord] = ch
	}
	ch.members = ch.members[:0]
	for i := range ch.byCategory {
		ch.byCategory[i] = ch.byCategory[i][:0]
		ch.counts[i] = 0
	}
	for id := range ids {
		rec, ok := s.records[id]
		if !ok {
			// Resident without a record heals here.
			delete(ids, id)
			s.metrics.StaleSpatial.Add(1)
			continue
		}
		off := int32(len(ch.members))
		ch.members = append(ch.members, Member{ID: id, X: rec.pos.X, Y: rec.pos.Y, Categories: rec.cats})
		rec.cats.Each(func(bit int) {
			if bit < component.NumCategories {
				ch.byCategory[bit] = append(ch.byCategory[bit], off)
				ch.counts[bit]++
			}
		})
	}
	if len(ch.members) == 0 {
		delete(s.residents, coord)
		delete(s.chunks, coord)
		return
	}
	ch.Generation++
	ch.LastRebuild = tick
	ch.dirty = false
}

func (s *Store) addResident(coord ChunkCoord, id ecs.EntityID) {
	set, ok := s.residents[coord]
	if !ok {
		set = make(map[ecs.EntityID]struct{}, 8)
		s.residents[coord] = set
	}
	set[id] = struct{}{}
}

func (s *Store) removeResident(coord ChunkCoord, id ecs.EntityID) {
	if set, ok := s.residents[coord]; ok {
		delete(set, id)
	}
}

func (s *Store) markDirty(coord ChunkCoord) {
	if ch, ok := s.chunks[coord]; ok {
		ch.dirty = true
	}
	if _, queued := s.dirtySet[coord]; queued {
		return
	}
	s.dirtySet[coord] = struct{}{}
	s.dirtyQueue = append(s.dirtyQueue, coord)
}

func (s *Store) recomputeBounds() {
	s.haveBounds = false
	for c := range s.chunks {
		if !s.haveBounds {
			s.bounds = [4]int32{c.X, c.Y, c.X, c.Y}
			s.haveBounds = true
			continue
		}
		s.bounds[0] = min(s.bounds[0], c.X)
		s.bounds[1] = min(s.bounds[1], c.Y)
		s.bounds[2] = max(s.bounds[2], c.X)
		s.bounds[3] = max(s.bounds[3], c.Y)
	}
}

// Chunk returns the cached chunk at coord.
func (s *Store) Chunk(coord ChunkCoord) (*Chunk, bool) {
	ch, ok := s.chunks[coord]
	return ch, ok
}

// Stats is a point-in-time view of the store.
type Stats struct {
	Chunks   int
	Dirty    int
	Indexed  int
	Passes   uint64
	LastPass uint64
}

func (s *Store) Stats() Stats {
	return Stats{
		Chunks:   len(s.chunks),
		Dirty:    len(s.dirtyQueue),
		Indexed:  len(s.records),
		Passes:   s.passes,
		LastPass: s.lastPass,
	}
}
