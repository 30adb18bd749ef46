package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/l1jgo/simcore/internal/component"
)

// Placement selects how the seeder distributes an archetype's entities.
type Placement uint8

const (
	PlaceUniform Placement = iota // stratified grid with jitter
	PlaceNoise                    // where terrain density exceeds Threshold
	PlaceScatter                  // independent hashed points
)

func parsePlacement(s string) (Placement, error) {
	switch s {
	case "", "uniform":
		return PlaceUniform, nil
	case "noise":
		return PlaceNoise, nil
	case "scatter":
		return PlaceScatter, nil
	}
	return 0, fmt.Errorf("unknown placement %q", s)
}

type vitalsEntry struct {
	BloodLoss float64 `yaml:"blood_loss"`
	Health    float64 `yaml:"health"`
	Hunger    float64 `yaml:"hunger"`
	Fatigue   float64 `yaml:"fatigue"`
}

type growthEntry struct {
	Stage    float64 `yaml:"stage"`
	Moisture float64 `yaml:"moisture"`
}

type conditionEntry struct {
	Durability float64 `yaml:"durability"`
	Freshness  float64 `yaml:"freshness"`
}

// archetypeEntry is the YAML shape of one archetype.
type archetypeEntry struct {
	Name       string          `yaml:"name"`
	Marker     string          `yaml:"marker"` // always, environmental, inert; empty = passive
	Categories []string        `yaml:"categories"`
	Count      int             `yaml:"count"`
	Placement  string          `yaml:"placement"`
	Threshold  float64         `yaml:"threshold"` // noise placement only, 0..1
	Speed      float64         `yaml:"speed"`     // units per tick; 0 = static
	Wounds     int             `yaml:"wounds"`
	ShelfLife  uint64          `yaml:"shelf_life"` // ticks until freshness stops decaying; 0 = never
	Vitals     *vitalsEntry    `yaml:"vitals"`
	Growth     *growthEntry    `yaml:"growth"`
	Condition  *conditionEntry `yaml:"condition"`
}

type archetypeFile struct {
	Archetypes []archetypeEntry `yaml:"archetypes"`
}

// Archetype is a resolved spawn template.
type Archetype struct {
	Name       string
	Marker     component.Marker
	Categories component.Category
	Count      int
	Placement  Placement
	Threshold  float64
	Speed      float64
	Wounds     int
	ShelfLife  uint64

	Vitals    *component.Vitals
	Growth    *component.Growth
	Condition *component.Condition
}

// ArchetypeTable holds archetypes in file order, indexed by name.
type ArchetypeTable struct {
	list   []*Archetype
	byName map[string]*Archetype
}

// LoadArchetypeTable loads archetypes from a YAML file.
func LoadArchetypeTable(path string) (*ArchetypeTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archetypes: %w", err)
	}
	return ParseArchetypeTable(data)
}

// ParseArchetypeTable decodes and validates archetype YAML.
func ParseArchetypeTable(data []byte) (*ArchetypeTable, error) {
	var f archetypeFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse archetypes: %w", err)
	}
	t := &ArchetypeTable{
		list:   make([]*Archetype, 0, len(f.Archetypes)),
		byName: make(map[string]*Archetype, len(f.Archetypes)),
	}
	for i := range f.Archetypes {
		a, err := f.Archetypes[i].resolve()
		if err != nil {
			return nil, fmt.Errorf("archetype %d (%s): %w", i, f.Archetypes[i].Name, err)
		}
		if _, dup := t.byName[a.Name]; dup {
			return nil, fmt.Errorf("archetype %s: duplicate name", a.Name)
		}
		t.list = append(t.list, a)
		t.byName[a.Name] = a
	}
	return t, nil
}

func (e *archetypeEntry) resolve() (*Archetype, error) {
	if e.Name == "" {
		return nil, fmt.Errorf("missing name")
	}
	if e.Count < 0 {
		return nil, fmt.Errorf("negative count %d", e.Count)
	}
	marker := component.ParseMarker(e.Marker)
	if e.Marker != "" && marker == component.MarkerNone {
		return nil, fmt.Errorf("unknown marker %q", e.Marker)
	}
	cats, err := component.ParseCategories(e.Categories)
	if err != nil {
		return nil, err
	}
	place, err := parsePlacement(e.Placement)
	if err != nil {
		return nil, err
	}
	if e.Threshold < 0 || e.Threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0,1]", e.Threshold)
	}
	a := &Archetype{
		Name:       e.Name,
		Marker:     marker,
		Categories: cats,
		Count:      e.Count,
		Placement:  place,
		Threshold:  e.Threshold,
		Speed:      e.Speed,
		Wounds:     e.Wounds,
		ShelfLife:  e.ShelfLife,
	}
	if v := e.Vitals; v != nil {
		a.Vitals = &component.Vitals{BloodLoss: v.BloodLoss, Health: v.Health, Hunger: v.Hunger, Fatigue: v.Fatigue}
	}
	if g := e.Growth; g != nil {
		a.Growth = &component.Growth{Stage: g.Stage, Moisture: g.Moisture}
	}
	if c := e.Condition; c != nil {
		a.Condition = &component.Condition{Durability: c.Durability, Freshness: c.Freshness}
	}
	return a, nil
}

// Get returns an archetype by name, or nil if not found.
func (t *ArchetypeTable) Get(name string) *Archetype {
	return t.byName[name]
}

// All returns archetypes in file order.
func (t *ArchetypeTable) All() []*Archetype {
	return t.list
}

// Count returns the number of loaded archetypes.
func (t *ArchetypeTable) Count() int {
	return len(t.list)
}
