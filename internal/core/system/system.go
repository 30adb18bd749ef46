package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseNotify   Phase = iota // 0: deliver last tick's world notifications
	PhaseSchedule              // 1: finalize the active-entity set
	PhaseUpdate                // 2: domain systems over the active set
	PhaseSpatial               // 3: throttled chunk index rebuild
	PhaseMutation              // 4: batched rate application
	PhaseCleanup               // 5: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseNotify:
		return "notify"
	case PhaseSchedule:
		return "schedule"
	case PhaseUpdate:
		return "update"
	case PhaseSpatial:
		return "spatial"
	case PhaseMutation:
		return "mutation"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements. tick is the number of
// the tick being executed, starting at 1.
type System interface {
	Phase() Phase
	Update(tick uint64, dt time.Duration)
}
