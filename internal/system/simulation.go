package system

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/core/event"
	coresys "github.com/l1jgo/simcore/internal/core/system"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/metrics"
	"github.com/l1jgo/simcore/internal/mutation"
	"github.com/l1jgo/simcore/internal/scheduler"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/l1jgo/simcore/internal/world"
)

// Simulation is every subsystem wired together behind one runner. Each
// piece is an explicitly owned instance; nothing is global.
type Simulation struct {
	Config    *config.Config
	Metrics   *metrics.Counters
	Bus       *event.Bus
	World     *world.State
	Terrain   *world.Seeder
	Scheduler *scheduler.Scheduler
	Chunks    *spatial.Store
	Query     *spatial.Engine
	Mutation  *mutation.Engine
	Runner    *coresys.Runner
	Frame     *Frame

	archetypes *data.ArchetypeTable
}

func NewSimulation(cfg *config.Config, archetypes *data.ArchetypeTable, lua *scripting.Engine, log *zap.Logger) (*Simulation, error) {
	if log == nil {
		log = zap.NewNop()
	}
	m := metrics.New()
	bus := event.NewBus()
	ws := world.NewState(bus, m)
	runner := coresys.NewRunner()

	chunks, err := spatial.NewStore(cfg.Chunk, ws, m)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(cfg.Scheduler, cfg.Chunk.Size, ws, ws, m, log.Named("scheduler"))
	if err != nil {
		return nil, err
	}
	engine, err := mutation.NewEngine(cfg.Mutation, cfg.Simulation.MinutesPerTick, runner, ws, m, log.Named("mutation"))
	if err != nil {
		return nil, err
	}

	// Scheduler first: a spawn must be classified before the store sees it move.
	sched.AddListener(chunks)
	sched.Subscribe(bus)
	chunks.Subscribe(bus)

	s := &Simulation{
		Config:     cfg,
		Metrics:    m,
		Bus:        bus,
		World:      ws,
		Terrain:    world.NewSeeder(cfg.World, cfg.Simulation.Seed),
		Scheduler:  sched,
		Chunks:     chunks,
		Query:      spatial.NewEngine(chunks),
		Mutation:   engine,
		Runner:     runner,
		Frame:      &Frame{},
		archetypes: archetypes,
	}

	spoilage := NewSpoilageSystem(ws, engine, lua, archetypes)
	spoilage.Subscribe(bus)

	interval := cfg.Mutation.Interval
	runner.Register(NewNotifySystem(bus))
	runner.Register(NewScheduleSystem(sched, s.Frame))
	runner.Register(NewWanderSystem(ws, s.Frame, s.Query, cfg.World, cfg.Simulation.Seed))
	runner.Register(NewVitalsSystem(ws, s.Frame, engine, lua, interval))
	runner.Register(NewGrowthSystem(ws, s.Frame, engine, lua, s.Terrain, interval))
	runner.Register(spoilage)
	runner.Register(NewSpatialSystem(chunks))
	runner.Register(NewMutationSystem(engine))
	runner.Register(NewCleanupSystem(ws))
	return s, nil
}

// Seed populates the world from the archetype table, delivers the spawn
// notifications and builds the full chunk index so the first tick queries a
// complete index. Returns the number of entities spawned.
func (s *Simulation) Seed() (int, error) {
	if s.archetypes == nil {
		return 0, fmt.Errorf("seed: no archetype table")
	}
	n := s.Terrain.Seed(s.World, s.archetypes.All())
	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()
	s.Chunks.Flush(s.Runner.Current())
	return n, nil
}

// Step runs one tick and returns its number.
func (s *Simulation) Step(dt time.Duration) uint64 {
	return s.Runner.Tick(dt)
}
