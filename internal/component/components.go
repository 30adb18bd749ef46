package component

// Components are pure data. All mutation happens in systems or, for the
// numeric fields listed in field.go, through the mutation engine.

// Position is a world-space location in simulation units.
type Position struct {
	X float64
	Y float64
}

// Identity records what an entity is: its archetype, classification marker
// and query categories. Set once at spawn.
type Identity struct {
	Archetype  string
	Marker     Marker
	Categories Category
}

// Vitals carries creature body state (agents, fauna).
type Vitals struct {
	BloodLoss float64
	Health    float64
	Hunger    float64
	Fatigue   float64
}

// Wounds drives the bleed/recover conditions of VitalsSystem.
type Wounds struct {
	Count   int
	Resting bool
}

// Growth carries plant state.
type Growth struct {
	Stage    float64
	Moisture float64
}

// Condition carries item and resource wear.
type Condition struct {
	Durability float64
	Freshness  float64
}

// Motion lets WanderSystem move an entity; Speed is units per tick.
type Motion struct {
	Speed   float64
	Heading float64
}
