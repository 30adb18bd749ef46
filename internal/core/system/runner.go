package system

import (
	"sort"
	"time"
)

// Runner executes systems in phase order each tick and owns the tick counter.
// Systems sharing a phase run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	tick    uint64
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick advances the counter, runs one full tick and returns its number.
func (r *Runner) Tick(dt time.Duration) uint64 {
	r.ensureSorted()
	r.tick++
	for _, s := range r.systems {
		s.Update(r.tick, dt)
	}
	return r.tick
}

// Current returns the tick number last handed out by Tick. While systems
// run it is the tick in progress; between ticks it is the last completed one.
func (r *Runner) Current() uint64 { return r.tick }

// Len returns the number of registered systems.
func (r *Runner) Len() int { return len(r.systems) }

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
