// Package metrics holds the counters the simulation core reports instead of
// logging. Runtime races (stale references) and budget overruns are expected
// in a mutating world; they are counted here and never surface as errors.
package metrics

import "sync/atomic"

// Counters is written by the tick goroutine and read by the stats reporter.
type Counters struct {
	StaleWorld     atomic.Uint64 // world ops on destroyed ids
	StaleScheduler atomic.Uint64 // promote/demote/track on unknown ids
	StaleSpatial   atomic.Uint64 // chunk members gone at rebuild
	StaleMutation  atomic.Uint64 // deltas dropped because the entity vanished

	RebuildPasses   atomic.Uint64
	ChunksRebuilt   atomic.Uint64
	RebuildOverruns atomic.Uint64 // passes that left dirty chunks for later

	MutationPasses   atomic.Uint64
	FieldWrites      atomic.Uint64
	MutationOverruns atomic.Uint64 // passes that deferred fields to the next interval
	DeltasExpired    atomic.Uint64
	DeltasSaturated  atomic.Uint64
	DeltasRejected   atomic.Uint64 // configuration errors at registration
}

func New() *Counters { return &Counters{} }

// Snapshot is a plain copy of Counters for logging.
type Snapshot struct {
	StaleWorld       uint64
	StaleScheduler   uint64
	StaleSpatial     uint64
	StaleMutation    uint64
	RebuildPasses    uint64
	ChunksRebuilt    uint64
	RebuildOverruns  uint64
	MutationPasses   uint64
	FieldWrites      uint64
	MutationOverruns uint64
	DeltasExpired    uint64
	DeltasSaturated  uint64
	DeltasRejected   uint64
}

func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		StaleWorld:       c.StaleWorld.Load(),
		StaleScheduler:   c.StaleScheduler.Load(),
		StaleSpatial:     c.StaleSpatial.Load(),
		StaleMutation:    c.StaleMutation.Load(),
		RebuildPasses:    c.RebuildPasses.Load(),
		ChunksRebuilt:    c.ChunksRebuilt.Load(),
		RebuildOverruns:  c.RebuildOverruns.Load(),
		MutationPasses:   c.MutationPasses.Load(),
		FieldWrites:      c.FieldWrites.Load(),
		MutationOverruns: c.MutationOverruns.Load(),
		DeltasExpired:    c.DeltasExpired.Load(),
		DeltasSaturated:  c.DeltasSaturated.Load(),
		DeltasRejected:   c.DeltasRejected.Load(),
	}
}

// Stale sums every stale-reference counter.
func (s Snapshot) Stale() uint64 {
	return s.StaleWorld + s.StaleScheduler + s.StaleSpatial + s.StaleMutation
}
