package system

import (
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/mutation"
)

// renewer keeps a condition-driven system's deltas in step with the active
// set. Each pass re-evaluates every active entity and renews its sources;
// entities that dropped out of the active set since the last pass have all
// of the system's sources retired, so frozen entities stop changing.
type renewer struct {
	engine  *mutation.Engine
	sources []string
	seen    map[ecs.EntityID]uint64
	pass    uint64

	rejected int // registrations the engine refused; it logs each reason once
}

func newRenewer(engine *mutation.Engine, sources ...string) *renewer {
	return &renewer{
		engine:  engine,
		sources: sources,
		seen:    make(map[ecs.EntityID]uint64, 256),
	}
}

func (r *renewer) begin() { r.pass++ }

func (r *renewer) touch(id ecs.EntityID) { r.seen[id] = r.pass }

// set retires id's deltas for source and, while the condition holds with a
// non-zero rate, registers d in their place. It reports false when the
// engine rejected d.
func (r *renewer) set(id ecs.EntityID, source string, holds bool, d mutation.Delta) bool {
	if !holds || d.RatePerMinute == 0 {
		r.engine.RetireSource(id, source)
		return true
	}
	if _, err := r.engine.Renew(id, source, d); err != nil {
		r.rejected++
		return false
	}
	return true
}

// sweep retires every source on entities not touched this pass and returns
// how many entities were frozen.
func (r *renewer) sweep() int {
	n := 0
	for id, pass := range r.seen {
		if pass == r.pass {
			continue
		}
		for _, src := range r.sources {
			r.engine.RetireSource(id, src)
		}
		delete(r.seen, id)
		n++
	}
	return n
}
