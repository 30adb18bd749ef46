package spatial

import (
	"math"
	"slices"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/core/ecs"
)

// Engine answers proximity questions from the Store's cached chunk index.
// Broad phase picks chunks by Chebyshev ring, narrow phase compares squared
// distances; sqrt runs only for hits whose distance is returned.
//
// Results reflect the index as of the last completed rebuild. Chunks that
// were never rebuilt, or whose rebuild was deferred, answer with what they
// cached; a query never forces a rebuild.
type Engine struct {
	store *Store
}

func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// Hit is a query result with its Euclidean distance from the query point.
type Hit struct {
	ID       ecs.EntityID
	Distance float64
}

// maxChunkRadius caps ring radii. A radius at the cap is unbounded: every
// cached chunk goes to the narrow phase, which still tests true distance.
const maxChunkRadius = math.MaxInt32

// chunkRadius converts a world radius to the ring of chunks that can hold
// points within it: ceil(radius / S), saturated at maxChunkRadius.
func (e *Engine) chunkRadius(radius float64) int64 {
	r := math.Ceil(radius / e.store.cfg.Size)
	if r >= maxChunkRadius {
		return maxChunkRadius
	}
	return int64(r)
}

// forChunks visits cached chunks within Chebyshev distance r of center,
// walking whichever is smaller: the ring square or the cached chunk map.
func (e *Engine) forChunks(center ChunkCoord, r int64, fn func(*Chunk)) {
	if r >= maxChunkRadius/2 || (2*r+1)*(2*r+1) > int64(len(e.store.chunks)) {
		for c, ch := range e.store.chunks {
			if r >= maxChunkRadius || c.Chebyshev(center) <= r {
				fn(ch)
			}
		}
		return
	}
	cx, cy := int64(center.X), int64(center.Y)
	for x := cx - r; x <= cx+r; x++ {
		for y := cy - r; y <= cy+r; y++ {
			if x < math.MinInt32 || x > math.MaxInt32 || y < math.MinInt32 || y > math.MaxInt32 {
				continue
			}
			if ch, ok := e.store.chunks[ChunkCoord{X: int32(x), Y: int32(y)}]; ok {
				fn(ch)
			}
		}
	}
}

// candidate is a narrow-phase pass before distances are materialized.
type candidate struct {
	id      ecs.EntityID
	d2      float64
	rebuilt uint64
}

// collect runs both phases and returns members within radius of (x, y).
func (e *Engine) collect(x, y, radius float64, filter component.Category) []candidate {
	if radius < 0 || math.IsNaN(radius) {
		return nil
	}
	r2 := radius * radius
	var out []candidate
	e.forChunks(CoordOf(x, y, e.store.cfg.Size), e.chunkRadius(radius), func(ch *Chunk) {
		ch.each(filter, func(m *Member) {
			dx, dy := m.X-x, m.Y-y
			if d2 := dx*dx + dy*dy; d2 <= r2 {
				out = append(out, candidate{id: m.ID, d2: d2, rebuilt: ch.LastRebuild})
			}
		})
	})
	if e.store.partial {
		out = freshest(out)
	}
	return out
}

// EntitiesInRadius returns every indexed entity within radius of (x, y)
// matching filter (0 = any), sorted by ascending distance then id.
func (e *Engine) EntitiesInRadius(x, y, radius float64, filter component.Category) []Hit {
	cands := e.collect(x, y, radius, filter)
	if len(cands) == 0 {
		return nil
	}
	hits := make([]Hit, len(cands))
	for i, c := range cands {
		hits[i] = Hit{ID: c.id, Distance: math.Sqrt(c.d2)}
	}
	slices.SortFunc(hits, func(a, b Hit) int {
		if a.Distance != b.Distance {
			if a.Distance < b.Distance {
				return -1
			}
			return 1
		}
		return cmpID(a.ID, b.ID)
	})
	return hits
}

// WithinRadius is EntitiesInRadius without distances: no sqrt, ids ascending.
func (e *Engine) WithinRadius(x, y, radius float64, filter component.Category) []ecs.EntityID {
	cands := e.collect(x, y, radius, filter)
	if len(cands) == 0 {
		return nil
	}
	ids := make([]ecs.EntityID, len(cands))
	for i, c := range cands {
		ids[i] = c.id
	}
	slices.Sort(ids)
	return ids
}

// EntitiesInChunkRadius returns members of every cached chunk within
// Chebyshev distance chunkRadius of (cx, cy), ids ascending. No distances.
func (e *Engine) EntitiesInChunkRadius(cx, cy int32, chunkRadius int, filter component.Category) []ecs.EntityID {
	if chunkRadius < 0 {
		return nil
	}
	var ids []ecs.EntityID
	e.forChunks(ChunkCoord{X: cx, Y: cy}, int64(chunkRadius), func(ch *Chunk) {
		ch.each(filter, func(m *Member) { ids = append(ids, m.ID) })
	})
	return sortUnique(ids)
}

// Nearest returns the closest indexed entity matching filter. Rings expand
// outward from the query chunk and stop once no farther ring can beat the
// best hit, or once the cached extent is exhausted.
func (e *Engine) Nearest(x, y float64, filter component.Category) (Hit, bool) {
	s := e.store
	if !s.haveBounds {
		return Hit{}, false
	}
	center := CoordOf(x, y, s.cfg.Size)
	cx, cy := int64(center.X), int64(center.Y)
	maxRing := max(
		abs64(cx-int64(s.bounds[0])), abs64(int64(s.bounds[2])-cx),
		abs64(cy-int64(s.bounds[1])), abs64(int64(s.bounds[3])-cy),
	)

	var (
		best   ecs.EntityID
		bestD2 = math.Inf(1)
		found  bool
	)
	visit := func(ch *Chunk) {
		ch.each(filter, func(m *Member) {
			dx, dy := m.X-x, m.Y-y
			d2 := dx*dx + dy*dy
			if d2 < bestD2 || (d2 == bestD2 && m.ID < best) {
				best, bestD2, found = m.ID, d2, true
			}
		})
	}
	for k := minRing(center, s.bounds); k <= maxRing; k++ {
		ring(center, k, s.bounds, func(c ChunkCoord) {
			if ch, ok := s.chunks[c]; ok {
				visit(ch)
			}
		})
		// Every point in ring k+1 is at least k*S away.
		if found {
			reach := float64(k) * s.cfg.Size
			if bestD2 <= reach*reach {
				break
			}
		}
	}
	if !found {
		return Hit{}, false
	}
	return Hit{ID: best, Distance: math.Sqrt(bestD2)}, true
}

// ring visits the perimeter of chunks at exactly Chebyshev distance k from
// center, clipped to the cached extent b (minX, minY, maxX, maxY). Clipped
// coordinates always fit in int32.
func ring(center ChunkCoord, k int64, b [4]int32, fn func(ChunkCoord)) {
	cx, cy := int64(center.X), int64(center.Y)
	if k == 0 {
		fn(center)
		return
	}
	minX, minY, maxX, maxY := int64(b[0]), int64(b[1]), int64(b[2]), int64(b[3])
	x0, x1 := max(cx-k, minX), min(cx+k, maxX)
	y0, y1 := max(cy-k+1, minY), min(cy+k-1, maxY)
	for _, y := range [2]int64{cy - k, cy + k} {
		if y < minY || y > maxY {
			continue
		}
		for x := x0; x <= x1; x++ {
			fn(ChunkCoord{X: int32(x), Y: int32(y)})
		}
	}
	for _, x := range [2]int64{cx - k, cx + k} {
		if x < minX || x > maxX {
			continue
		}
		for y := y0; y <= y1; y++ {
			fn(ChunkCoord{X: int32(x), Y: int32(y)})
		}
	}
}

// minRing is the first ring that can intersect the cached extent.
func minRing(center ChunkCoord, b [4]int32) int64 {
	cx, cy := int64(center.X), int64(center.Y)
	var dx, dy int64
	if cx < int64(b[0]) {
		dx = int64(b[0]) - cx
	} else if cx > int64(b[2]) {
		dx = cx - int64(b[2])
	}
	if cy < int64(b[1]) {
		dy = int64(b[1]) - cy
	} else if cy > int64(b[3]) {
		dy = cy - int64(b[3])
	}
	return max(dx, dy)
}

// freshest keeps one candidate per id, taken from the most recently rebuilt
// chunk. Only needed while a deferred rebuild can leave one entity cached in
// two chunks.
func freshest(cands []candidate) []candidate {
	if len(cands) < 2 {
		return cands
	}
	slices.SortFunc(cands, func(a, b candidate) int {
		if c := cmpID(a.id, b.id); c != 0 {
			return c
		}
		switch {
		case a.rebuilt > b.rebuilt:
			return -1
		case a.rebuilt < b.rebuilt:
			return 1
		}
		return 0
	})
	return slices.CompactFunc(cands, func(a, b candidate) bool { return a.id == b.id })
}

func sortUnique(ids []ecs.EntityID) []ecs.EntityID {
	slices.Sort(ids)
	return slices.Compact(ids)
}

func cmpID(a, b ecs.EntityID) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
