package system

import (
	"time"

	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/spatial"
)

// SpatialSystem runs the throttled chunk index rebuild after domain systems
// have moved entities, so queries next tick see this tick's movement at the
// earliest.
// Phase 3 (Spatial).
type SpatialSystem struct {
	store *spatial.Store
}

func NewSpatialSystem(store *spatial.Store) *SpatialSystem {
	return &SpatialSystem{store: store}
}

func (s *SpatialSystem) Phase() coresys.Phase { return coresys.PhaseSpatial }

func (s *SpatialSystem) Update(tick uint64, _ time.Duration) {
	s.store.Rebuild(tick)
}
