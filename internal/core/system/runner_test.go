package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	trace *[]string
	ticks []uint64
}

func (r *recorder) Phase() Phase { return r.phase }

func (r *recorder) Update(tick uint64, _ time.Duration) {
	*r.trace = append(*r.trace, r.name)
	r.ticks = append(r.ticks, tick)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var trace []string
	r := NewRunner()
	cleanup := &recorder{name: "cleanup", phase: PhaseCleanup, trace: &trace}
	updA := &recorder{name: "updA", phase: PhaseUpdate, trace: &trace}
	updB := &recorder{name: "updB", phase: PhaseUpdate, trace: &trace}
	sched := &recorder{name: "sched", phase: PhaseSchedule, trace: &trace}
	r.Register(cleanup)
	r.Register(updA)
	r.Register(updB)
	r.Register(sched)

	assert.Equal(t, uint64(1), r.Tick(time.Millisecond))
	assert.Equal(t, []string{"sched", "updA", "updB", "cleanup"}, trace)

	r.Tick(time.Millisecond)
	assert.Equal(t, uint64(2), r.Current())
	assert.Equal(t, []uint64{1, 2}, updB.ticks)
	assert.Equal(t, 4, r.Len())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "mutation", PhaseMutation.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

type clockReader struct {
	runner *Runner
	seen   []uint64
}

func (c *clockReader) Phase() Phase { return PhaseMutation }

func (c *clockReader) Update(_ uint64, _ time.Duration) {
	c.seen = append(c.seen, c.runner.Current())
}

func TestCurrentIsTheTickInProgress(t *testing.T) {
	r := NewRunner()
	assert.Zero(t, r.Current())
	c := &clockReader{runner: r}
	r.Register(c)

	r.Tick(time.Millisecond)
	r.Tick(time.Millisecond)
	assert.Equal(t, []uint64{1, 2}, c.seen)
	assert.Equal(t, uint64(2), r.Current())
}
