package system

import (
	"time"

	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
)

// NotifySystem delivers the previous tick's world notifications to the
// scheduler and the chunk store before anything else runs.
// Phase 0 (Notify).
type NotifySystem struct {
	bus *event.Bus
}

func NewNotifySystem(bus *event.Bus) *NotifySystem {
	return &NotifySystem{bus: bus}
}

func (s *NotifySystem) Phase() coresys.Phase { return coresys.PhaseNotify }

func (s *NotifySystem) Update(_ uint64, _ time.Duration) {
	s.bus.SwapBuffers()
	s.bus.DispatchAll()
}
