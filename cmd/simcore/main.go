package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/l1jgo/simcore/internal/config"
	"github.com/l1jgo/simcore/internal/data"
	"github.com/l1jgo/simcore/internal/metrics"
	"github.com/l1jgo/simcore/internal/mutation"
	"github.com/l1jgo/simcore/internal/scheduler"
	"github.com/l1jgo/simcore/internal/scripting"
	"github.com/l1jgo/simcore/internal/spatial"
	"github.com/l1jgo/simcore/internal/system"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(seed int64) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m               simcore  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mseed:\033[0m %d\n\n", seed)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

// report is filled by the tick goroutine between ticks; subsystem state is
// owned by that goroutine and never read from the reporter directly.
type report struct {
	tick      uint64
	metrics   metrics.Snapshot
	scheduler scheduler.Stats
	chunks    spatial.Stats
	mutation  mutation.Stats
}

func run() error {
	// 1. Load config
	cfgPath := "config/simcore.toml"
	if p := os.Getenv("SIMCORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()
	log = log.With(zap.String("run", uuid.NewString()))

	printBanner(cfg.Simulation.Seed)

	// 3. Load data and scripts
	printSection("data")
	archetypes, err := data.LoadArchetypeTable(cfg.Data.Archetypes)
	if err != nil {
		return fmt.Errorf("load archetypes: %w", err)
	}
	printStat("archetypes", archetypes.Count())

	lua, err := scripting.NewEngine(cfg.Data.Scripts, log.Named("lua"))
	if err != nil {
		return fmt.Errorf("scripting: %w", err)
	}
	defer lua.Close()
	printOK("rate scripts loaded")
	fmt.Println()

	// 4. Build and seed the simulation
	printSection("world")
	sim, err := system.NewSimulation(cfg, archetypes, lua, log)
	if err != nil {
		return fmt.Errorf("build simulation: %w", err)
	}
	n, err := sim.Seed()
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	printStat("entities", n)
	st := sim.Scheduler.Stats()
	printStat("always", st.Always)
	printStat("proximity", st.Proximity)
	printStat("passive", st.Passive)
	printStat("chunks", sim.Chunks.Stats().Chunks)
	fmt.Println()

	// 5. Run the tick loop and the stats reporter until signalled
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printSection("ready")
	printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	requests := make(chan chan report)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tickLoop(ctx, sim, requests, log) })
	g.Go(func() error { return statsLoop(ctx, cfg.Simulation.StatsInterval, requests, log) })

	if err := g.Wait(); err != nil && !errors.Is(err, errMaxTicks) {
		return err
	}
	r := snapshot(sim)
	log.Info("simulation stopped", zap.Uint64("tick", r.tick), zap.Uint64("stale", r.metrics.Stale()))
	return nil
}

var errMaxTicks = errors.New("max ticks reached")

func tickLoop(ctx context.Context, sim *system.Simulation, requests <-chan chan report, log *zap.Logger) error {
	rate := sim.Config.Simulation.TickRate
	limit := sim.Config.Simulation.MaxTicks
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick := sim.Step(rate)
			if limit > 0 && tick >= limit {
				log.Info("tick limit reached", zap.Uint64("tick", tick))
				return errMaxTicks
			}
		case reply := <-requests:
			reply <- snapshot(sim)
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return nil
		}
	}
}

func statsLoop(ctx context.Context, every time.Duration, requests chan<- chan report, log *zap.Logger) error {
	if every <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	reply := make(chan report, 1)

	for {
		select {
		case <-ticker.C:
			select {
			case requests <- reply:
			case <-ctx.Done():
				return nil
			}
			logReport(log, <-reply)
		case <-ctx.Done():
			return nil
		}
	}
}

func snapshot(sim *system.Simulation) report {
	return report{
		tick:      sim.Runner.Current(),
		metrics:   sim.Metrics.Snapshot(),
		scheduler: sim.Scheduler.Stats(),
		chunks:    sim.Chunks.Stats(),
		mutation:  sim.Mutation.Stats(),
	}
}

func logReport(log *zap.Logger, r report) {
	log.Info("stats",
		zap.Uint64("tick", r.tick),
		zap.Int("active", r.scheduler.Active),
		zap.Int("always", r.scheduler.Always),
		zap.Int("proximity", r.scheduler.Proximity),
		zap.Int("passive", r.scheduler.Passive),
		zap.Int("chunks", r.chunks.Chunks),
		zap.Int("dirty", r.chunks.Dirty),
		zap.Int("deltas", r.mutation.Deltas),
		zap.Int("mutating_fields", r.mutation.Fields),
		zap.Uint64("field_writes", r.metrics.FieldWrites),
		zap.Uint64("rebuild_overruns", r.metrics.RebuildOverruns),
		zap.Uint64("mutation_overruns", r.metrics.MutationOverruns),
		zap.Uint64("deltas_expired", r.metrics.DeltasExpired),
		zap.Uint64("deltas_rejected", r.metrics.DeltasRejected),
		zap.Uint64("stale", r.metrics.Stale()),
	)
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
