package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/core/event"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/metrics"
)

func deliver(b *event.Bus) int {
	b.SwapBuffers()
	return b.DispatchAll()
}

func TestSpawnMoveDespawnNotifications(t *testing.T) {
	b := event.NewBus()
	m := metrics.New()
	st := NewState(b, m)

	var spawned []event.EntitySpawned
	var despawned []event.EntityDespawned
	var moved []event.EntityMoved
	event.Subscribe(b, func(e event.EntitySpawned) { spawned = append(spawned, e) })
	event.Subscribe(b, func(e event.EntityMoved) { moved = append(moved, e) })
	event.Subscribe(b, func(e event.EntityDespawned) { despawned = append(despawned, e) })

	id := st.Spawn(SpawnSpec{
		Archetype:  "wanderer",
		Marker:     component.MarkerAlwaysSimulate,
		Categories: component.CategoryAgent,
		X:          1,
		Y:          2,
		Vitals:     &component.Vitals{Health: 100},
	})
	assert.Empty(t, spawned, "delivered next tick")
	deliver(b)
	require.Len(t, spawned, 1)
	assert.Equal(t, id, spawned[0].ID)

	require.True(t, st.Move(id, 5, 6))
	require.True(t, st.Move(id, 5, 6), "no-op move")
	deliver(b)
	require.Len(t, moved, 1)
	assert.Equal(t, event.EntityMoved{ID: id, FromX: 1, FromY: 2, ToX: 5, ToY: 6}, moved[0])

	pos, cats, ok := st.Locate(id)
	require.True(t, ok)
	assert.Equal(t, component.Position{X: 5, Y: 6}, pos)
	assert.Equal(t, component.CategoryAgent, cats)

	require.True(t, st.Despawn(id))
	assert.False(t, st.Despawn(id), "already queued")
	assert.True(t, st.Alive(id), "destroyed at flush")
	assert.Equal(t, 1, st.Flush())
	assert.False(t, st.Alive(id))
	deliver(b)
	require.Len(t, despawned, 1)

	assert.False(t, st.Move(id, 0, 0))
	_, ok = st.Marker(id)
	assert.False(t, ok)
	assert.Equal(t, uint64(2), m.StaleWorld.Load())
	assert.Zero(t, st.Len())
}

func TestFieldResolver(t *testing.T) {
	st := NewState(event.NewBus(), nil)
	creature := st.Spawn(SpawnSpec{
		Vitals: &component.Vitals{BloodLoss: 1, Health: 2, Hunger: 3, Fatigue: 4},
	})
	plant := st.Spawn(SpawnSpec{Growth: &component.Growth{Stage: 0.1, Moisture: 0.2}})
	item := st.Spawn(SpawnSpec{Condition: &component.Condition{Durability: 50, Freshness: 0.9}})

	for f, want := range map[component.Field]float64{
		component.FieldBloodLoss: 1, component.FieldHealth: 2,
		component.FieldHunger: 3, component.FieldFatigue: 4,
	} {
		v, ok := st.ReadField(creature, f)
		require.True(t, ok, f.String())
		assert.Equal(t, want, v, f.String())
		require.True(t, st.WriteField(creature, f, want*10))
		v, _ = st.ReadField(creature, f)
		assert.Equal(t, want*10, v)
	}

	v, ok := st.ReadField(plant, component.FieldMoisture)
	require.True(t, ok)
	assert.Equal(t, 0.2, v)
	v, ok = st.ReadField(item, component.FieldFreshness)
	require.True(t, ok)
	assert.Equal(t, 0.9, v)

	_, ok = st.ReadField(creature, component.FieldGrowth)
	assert.False(t, ok, "creature has no growth component")
	assert.False(t, st.WriteField(plant, component.FieldHealth, 1))
	_, ok = st.ReadField(item, component.FieldNone)
	assert.False(t, ok)
}

func TestSpawnCopiesTemplates(t *testing.T) {
	st := NewState(event.NewBus(), nil)
	tmpl := &component.Vitals{Health: 100}
	a := st.Spawn(SpawnSpec{Vitals: tmpl})
	b := st.Spawn(SpawnSpec{Vitals: tmpl})
	require.True(t, st.WriteField(a, component.FieldHealth, 10))
	v, _ := st.ReadField(b, component.FieldHealth)
	assert.Equal(t, 100.0, v)
	assert.Equal(t, 100.0, tmpl.Health)
}

func TestSeederIsDeterministicAndInBounds(t *testing.T) {
	cfg := config.WorldConfig{Width: 512, Height: 256}
	archetypes := []*data.Archetype{
		{Name: "wanderer", Marker: component.MarkerAlwaysSimulate, Categories: component.CategoryAgent, Count: 10, Placement: data.PlaceUniform, Speed: 1, Vitals: &component.Vitals{Health: 100}, Wounds: 1},
		{Name: "oak", Marker: component.MarkerEnvironmental, Categories: component.CategoryFlora, Count: 200, Placement: data.PlaceNoise, Threshold: 0.5},
		{Name: "ore", Marker: component.MarkerInert, Categories: component.CategoryResource, Count: 50, Placement: data.PlaceScatter},
	}

	run := func() (*State, int) {
		st := NewState(event.NewBus(), nil)
		return st, NewSeeder(cfg, 42).Seed(st, archetypes)
	}
	st1, n1 := run()
	st2, n2 := run()
	require.Equal(t, n1, n2)
	assert.Equal(t, n1, st1.Len())
	assert.GreaterOrEqual(t, n1, 60)

	seeder := NewSeeder(cfg, 42)
	st1.Positions.Each(func(id ecs.EntityID, p *component.Position) {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.Less(t, p.X, cfg.Width)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.Y, cfg.Height)
		q, ok := st2.Position(id)
		require.True(t, ok)
		assert.Equal(t, *p, q, "same seed, same world")

		ident, _ := st1.Identities.Get(id)
		if ident.Archetype == "oak" {
			assert.GreaterOrEqual(t, seeder.Density(p.X, p.Y), 0.5)
		}
	})

	walkers := 0
	st1.Motions.Each(func(id ecs.EntityID, m *component.Motion) {
		walkers++
		_, ok := st1.Wounds.Get(id)
		assert.True(t, ok)
	})
	assert.Equal(t, 10, walkers)
}
