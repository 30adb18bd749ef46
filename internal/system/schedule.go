package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/ecs"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/scheduler"
)

// Frame carries the per-tick active set from ScheduleSystem to the domain
// systems. Active is ascending by id and must not be modified.
type Frame struct {
	Tick   uint64
	Active []ecs.EntityID
}

// ScheduleSystem fixes the active set for the tick before any domain
// system runs.
// Phase 1 (Schedule).
type ScheduleSystem struct {
	sched *scheduler.Scheduler
	frame *Frame
}

func NewScheduleSystem(sched *scheduler.Scheduler, frame *Frame) *ScheduleSystem {
	return &ScheduleSystem{sched: sched, frame: frame}
}

func (s *ScheduleSystem) Phase() coresys.Phase { return coresys.PhaseSchedule }

func (s *ScheduleSystem) Update(tick uint64, _ time.Duration) {
	s.frame.Tick = tick
	s.frame.Active = s.sched.GetActiveEntities(tick)
}
