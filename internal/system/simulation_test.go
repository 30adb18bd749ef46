package system

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/component"
	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/ecs"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
)

const archetypesYAML = `
archetypes:
  - name: wanderer
    marker: always
    categories: [agent]
    count: 2
    wounds: 2
    vitals: { health: 100 }
  - name: oak
    marker: environmental
    categories: [flora]
    count: 60
    placement: noise
    growth: { stage: 0.2, moisture: 0.5 }
  - name: berries
    marker: inert
    categories: [item]
    count: 20
    placement: scatter
    shelf_life: 1000
    condition: { durability: 100, freshness: 1 }
  - name: ore
    marker: inert
    categories: [resource]
    count: 5
    placement: scatter
    condition: { durability: 100, freshness: 1 }
  - name: rubble
    categories: [ambient]
    count: 5
    placement: scatter
`

func newSimulation(t *testing.T) *Simulation {
	t.Helper()
	cfg := config.Defaults()
	cfg.World = config.WorldConfig{Width: 256, Height: 256}
	cfg.Scheduler.ProximityRadius = 0
	cfg.Mutation.Interval = 10
	cfg.Simulation.MinutesPerTick = 1
	require.NoError(t, cfg.Validate())

	table, err := data.ParseArchetypeTable([]byte(archetypesYAML))
	require.NoError(t, err)
	lua, err := scripting.NewEngine(filepath.Join("..", "..", "scripts", "rates"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(lua.Close)

	sim, err := NewSimulation(cfg, table, lua, zap.NewNop())
	require.NoError(t, err)
	n, err := sim.Seed()
	require.NoError(t, err)
	require.Greater(t, n, 30)
	return sim
}

func (s *Simulation) byArchetype(name string) []ecs.EntityID {
	var ids []ecs.EntityID
	s.World.Identities.Each(func(id ecs.EntityID, ident *component.Identity) {
		if ident.Archetype == name {
			ids = append(ids, id)
		}
	})
	return ids
}

func TestPassiveEntitiesStayOutOfTheTickAndTheIndex(t *testing.T) {
	sim := newSimulation(t)
	passive := map[ecs.EntityID]bool{}
	for _, name := range []string{"berries", "ore", "rubble"} {
		for _, id := range sim.byArchetype(name) {
			passive[id] = true
			assert.False(t, sim.Chunks.Indexed(id))
		}
	}
	require.NotEmpty(t, passive)

	for i := 0; i < 50; i++ {
		sim.Step(time.Millisecond)
		for _, id := range sim.Frame.Active {
			assert.False(t, passive[id], "passive %d in active set at tick %d", id, sim.Frame.Tick)
		}
	}
	for _, h := range sim.Query.EntitiesInRadius(128, 128, 1000, 0) {
		assert.False(t, passive[h.ID])
	}
}

func TestProximityFollowsAnchorChunks(t *testing.T) {
	sim := newSimulation(t)
	sim.Step(time.Millisecond)

	anchors := map[spatial.ChunkCoord]bool{}
	for _, id := range sim.byArchetype("wanderer") {
		p, ok := sim.World.Position(id)
		require.True(t, ok)
		anchors[spatial.CoordOf(p.X, p.Y, sim.Chunks.Size())] = true
	}
	for _, id := range sim.byArchetype("oak") {
		p, _ := sim.World.Position(id)
		want := anchors[spatial.CoordOf(p.X, p.Y, sim.Chunks.Size())]
		assert.Equal(t, want, sim.Scheduler.IsActive(id), "oak %d", id)
	}
	st := sim.Scheduler.Stats()
	assert.Less(t, st.Active, sim.World.Len())
}

func TestBleedingAgentsLoseBlood(t *testing.T) {
	sim := newSimulation(t)
	for i := 0; i < 30; i++ {
		sim.Step(time.Millisecond)
	}
	for _, id := range sim.byArchetype("wanderer") {
		v, ok := sim.World.ReadField(id, component.FieldBloodLoss)
		require.True(t, ok)
		assert.Greater(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
		assert.True(t, sim.Mutation.Tracking(id, component.FieldBloodLoss))
	}
	snap := sim.Metrics.Snapshot()
	assert.Equal(t, uint64(3), snap.MutationPasses)
	assert.Positive(t, snap.FieldWrites)
	assert.Zero(t, snap.DeltasRejected)
}

func TestItemsSpoilWithoutPerTickIteration(t *testing.T) {
	sim := newSimulation(t)
	for i := 0; i < 20; i++ {
		sim.Step(time.Millisecond)
	}
	for _, id := range sim.byArchetype("berries") {
		v, ok := sim.World.ReadField(id, component.FieldFreshness)
		require.True(t, ok)
		assert.Less(t, v, 1.0)
		assert.GreaterOrEqual(t, v, 0.0)
	}
	for _, id := range sim.byArchetype("ore") {
		v, _ := sim.World.ReadField(id, component.FieldFreshness)
		assert.Equal(t, 1.0, v)
	}
}

func TestDespawnReachesEverySubsystem(t *testing.T) {
	sim := newSimulation(t)
	sim.Step(time.Millisecond)
	agents := sim.byArchetype("wanderer")
	require.NotEmpty(t, agents)
	id := agents[0]
	require.True(t, sim.Chunks.Indexed(id))

	require.True(t, sim.World.Despawn(id))
	// One tick: notify delivers the despawn, cleanup destroys the entity.
	sim.Step(time.Millisecond)

	assert.False(t, sim.World.Alive(id))
	assert.False(t, sim.Chunks.Indexed(id))
	_, tracked := sim.Scheduler.Tier(id)
	assert.False(t, tracked)
	assert.NotContains(t, sim.Frame.Active, id)
}
