package system

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/mutation"
	"github.com/l1jgo/simcore/internal/world"
)

func TestRenewerRetiresFrozenEntities(t *testing.T) {
	ws := world.NewState(event.NewBus(), nil)
	a := ws.Spawn(world.SpawnSpec{Vitals: &component.Vitals{}})
	b := ws.Spawn(world.SpawnSpec{Vitals: &component.Vitals{}})
	eng, err := mutation.NewEngine(config.MutationConfig{Interval: 1}, 1, coresys.NewRunner(), ws, nil, nil)
	require.NoError(t, err)

	r := newRenewer(eng, "x", "y")
	r.begin()
	r.touch(a)
	r.touch(b)
	r.set(a, "x", true, mutation.Delta{Field: component.FieldHunger, RatePerMinute: 1})
	r.set(a, "y", true, mutation.Delta{Field: component.FieldFatigue, RatePerMinute: 1})
	r.set(b, "x", true, mutation.Delta{Field: component.FieldHunger, RatePerMinute: 2})
	assert.Equal(t, 2, eng.CountFor(a))
	assert.Equal(t, 1, eng.CountFor(b))

	// Re-evaluating the same condition never stacks descriptors.
	r.set(a, "x", true, mutation.Delta{Field: component.FieldHunger, RatePerMinute: 3})
	assert.Equal(t, 2, eng.CountFor(a))

	r.set(a, "y", false, mutation.Delta{Field: component.FieldFatigue, RatePerMinute: 1})
	r.set(a, "x", true, mutation.Delta{Field: component.FieldHunger})
	assert.Zero(t, eng.CountFor(a), "false condition or zero rate retires")

	// Next pass only b is active.
	r.set(a, "x", true, mutation.Delta{Field: component.FieldHunger, RatePerMinute: 1})
	r.begin()
	r.touch(b)
	assert.Equal(t, 1, r.sweep())
	assert.Zero(t, eng.CountFor(a))
	assert.Equal(t, 1, eng.CountFor(b))
}

func TestRenewerCountsRejectedRegistrations(t *testing.T) {
	ws := world.NewState(event.NewBus(), nil)
	id := ws.Spawn(world.SpawnSpec{Vitals: &component.Vitals{}})
	eng, err := mutation.NewEngine(config.MutationConfig{Interval: 1}, 1, coresys.NewRunner(), ws, nil, nil)
	require.NoError(t, err)

	r := newRenewer(eng, "x")
	assert.True(t, r.set(id, "x", true, mutation.Delta{Field: component.FieldHunger, RatePerMinute: 1}))
	assert.False(t, r.set(id, "x", true, mutation.Delta{Field: component.FieldFreshness, RatePerMinute: 1}),
		"entity has no condition component")
	assert.Equal(t, 1, r.rejected)
	assert.True(t, r.set(id, "x", false, mutation.Delta{Field: component.FieldFreshness}), "retiring never fails")
	assert.Equal(t, 1, r.rejected)
}
