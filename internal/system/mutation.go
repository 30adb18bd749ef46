package system

import (
	"time"

	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/mutation"
)

// MutationSystem applies batched rate deltas on the engine's own interval,
// after every domain system has finished with the tick.
// Phase 4 (Mutation).
type MutationSystem struct {
	engine *mutation.Engine
}

func NewMutationSystem(engine *mutation.Engine) *MutationSystem {
	return &MutationSystem{engine: engine}
}

func (s *MutationSystem) Phase() coresys.Phase { return coresys.PhaseMutation }

func (s *MutationSystem) Update(tick uint64, _ time.Duration) {
	s.engine.Tick(tick)
}
