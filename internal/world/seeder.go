package world

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/data"
)

// noiseAttempts bounds rejection sampling for noise-placed archetypes.
const noiseAttempts = 24

// Seeder places archetype populations over the world rectangle. Placement
// is a pure function of seed, archetype name and index, so the same seed
// always yields the same world.
type Seeder struct {
	cfg     config.WorldConfig
	seed    int64
	density opensimplex.Noise
}

func NewSeeder(cfg config.WorldConfig, seed int64) *Seeder {
	return &Seeder{
		cfg:     cfg,
		seed:    seed,
		density: opensimplex.NewNormalized(seed),
	}
}

// Seed spawns every archetype in table order and returns the number of
// entities created. Noise-placed entities that find no dense enough spot
// are skipped.
func (s *Seeder) Seed(st *State, archetypes []*data.Archetype) int {
	n := 0
	for _, a := range archetypes {
		side := int(math.Ceil(math.Sqrt(float64(a.Count))))
		for i := 0; i < a.Count; i++ {
			x, y, ok := s.place(a, i, side)
			if !ok {
				continue
			}
			st.Spawn(specFor(a, x, y, s.unit(a.Name, i, -1)))
			n++
		}
	}
	return n
}

func (s *Seeder) place(a *data.Archetype, i, side int) (float64, float64, bool) {
	switch a.Placement {
	case data.PlaceUniform:
		// Stratified: one jittered point per grid cell.
		cw, ch := s.cfg.Width/float64(side), s.cfg.Height/float64(side)
		jx, jy := s.unit2(a.Name, i, 0)
		return (float64(i%side) + jx) * cw, (float64(i/side) + jy) * ch, true
	case data.PlaceNoise:
		for attempt := 0; attempt < noiseAttempts; attempt++ {
			ux, uy := s.unit2(a.Name, i, attempt)
			x, y := ux*s.cfg.Width, uy*s.cfg.Height
			if s.Density(x, y) >= a.Threshold {
				return x, y, true
			}
		}
		return 0, 0, false
	default:
		ux, uy := s.unit2(a.Name, i, 0)
		return ux * s.cfg.Width, uy * s.cfg.Height, true
	}
}

// Density samples layered terrain noise at a world point, in [0, 1].
func (s *Seeder) Density(x, y float64) float64 {
	const (
		octaves     = 3
		frequency   = 1.0 / 256
		persistence = 0.5
	)
	total, amplitude, maxVal, f := 0.0, 1.0, 0.0, frequency
	for o := 0; o < octaves; o++ {
		total += s.density.Eval2(x*f, y*f) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		f *= 2
	}
	return total / maxVal
}

func (s *Seeder) hash(name string, i, attempt int) uint64 {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], uint64(s.seed))
	binary.LittleEndian.PutUint64(buf[8:], uint64(i))
	binary.LittleEndian.PutUint64(buf[16:], uint64(attempt))
	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(name)
	return d.Sum64()
}

// unit2 returns two independent values in [0, 1).
func (s *Seeder) unit2(name string, i, attempt int) (float64, float64) {
	h := s.hash(name, i, attempt)
	return float64(h>>32) / (1 << 32), float64(uint32(h)) / (1 << 32)
}

func (s *Seeder) unit(name string, i, attempt int) float64 {
	return float64(s.hash(name, i, attempt)>>11) / (1 << 53)
}

func specFor(a *data.Archetype, x, y, heading float64) SpawnSpec {
	spec := SpawnSpec{
		Archetype:  a.Name,
		Marker:     a.Marker,
		Categories: a.Categories,
		X:          x,
		Y:          y,
		Vitals:     a.Vitals,
		Growth:     a.Growth,
		Condition:  a.Condition,
	}
	if a.Speed > 0 {
		spec.Motion = &component.Motion{Speed: a.Speed, Heading: heading * 2 * math.Pi}
	}
	if a.Vitals != nil {
		spec.Wounds = &component.Wounds{Count: a.Wounds}
	}
	return spec
}
