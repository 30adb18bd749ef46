package component

// Tier decides how often an entity is processed. The zero value is Passive so
// an unclassified entity is never touched by per-tick iteration.
type Tier uint8

const (
	TierPassive   Tier = iota // never iterated per tick; events and rate deltas only
	TierProximity             // iterated while near an Always anchor
	TierAlways                // iterated every tick
)

func (t Tier) String() string {
	switch t {
	case TierPassive:
		return "passive"
	case TierProximity:
		return "proximity"
	case TierAlways:
		return "always"
	}
	return "invalid"
}

// Valid reports whether t is one of the three tiers.
func (t Tier) Valid() bool { return t <= TierAlways }

// Indexed reports whether entities of this tier belong in chunk indexes.
func (t Tier) Indexed() bool { return t == TierProximity || t == TierAlways }

// Marker is the classification tag carried by an entity's Identity.
type Marker uint8

const (
	MarkerNone           Marker = iota
	MarkerAlwaysSimulate        // agents, buildings, deities
	MarkerEnvironmental         // flora, fauna, ambient objects
	MarkerInert                 // items, stored resources
)

// ParseMarker maps the data-table spelling to a Marker. Unknown names map to
// MarkerNone, which classifies as Passive.
func ParseMarker(s string) Marker {
	switch s {
	case "always":
		return MarkerAlwaysSimulate
	case "environmental":
		return MarkerEnvironmental
	case "inert":
		return MarkerInert
	}
	return MarkerNone
}

func (m Marker) String() string {
	switch m {
	case MarkerAlwaysSimulate:
		return "always"
	case MarkerEnvironmental:
		return "environmental"
	case MarkerInert:
		return "inert"
	}
	return "none"
}

// DefaultTier is the marker classification policy.
func (m Marker) DefaultTier() Tier {
	switch m {
	case MarkerAlwaysSimulate:
		return TierAlways
	case MarkerEnvironmental:
		return TierProximity
	}
	return TierPassive
}
