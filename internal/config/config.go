package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Simulation SimulationConfig `toml:"simulation"`
	Chunk      ChunkConfig      `toml:"chunk"`
	Scheduler  SchedulerConfig  `toml:"scheduler"`
	Mutation   MutationConfig   `toml:"mutation"`
	World      WorldConfig      `toml:"world"`
	Data       DataConfig       `toml:"data"`
	Logging    LoggingConfig    `toml:"logging"`
}

type SimulationConfig struct {
	TickRate       time.Duration `toml:"tick_rate"`
	MinutesPerTick float64       `toml:"minutes_per_tick"` // in-simulation minutes advanced per tick
	Seed           int64         `toml:"seed"`
	MaxTicks       uint64        `toml:"max_ticks"` // 0 = run until signalled
	StatsInterval  time.Duration `toml:"stats_interval"`
}

type ChunkConfig struct {
	Size            float64 `toml:"size"`             // side length S in world units
	RebuildInterval uint64  `toml:"rebuild_interval"` // ticks between rebuild passes
	RebuildBudget   int     `toml:"rebuild_budget"`   // chunks per pass, 0 = unlimited
}

type SchedulerConfig struct {
	ProximityRadius   int `toml:"proximity_radius"`    // Chebyshev chunk radius around Always anchors
	DemoteAfterPasses int `toml:"demote_after_passes"` // out-of-range passes before freezing
}

type MutationConfig struct {
	Interval           uint64 `toml:"interval"`    // ticks between application passes
	PassBudget         int    `toml:"pass_budget"` // field writes per pass, 0 = unlimited
	MaxDeltasPerEntity int    `toml:"max_deltas_per_entity"`
}

type WorldConfig struct {
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

type DataConfig struct {
	Archetypes string `toml:"archetypes"`
	Scripts    string `toml:"scripts"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	switch {
	case c.Simulation.TickRate <= 0:
		return fmt.Errorf("%w: simulation.tick_rate must be positive", ErrInvalid)
	case c.Simulation.MinutesPerTick <= 0:
		return fmt.Errorf("%w: simulation.minutes_per_tick must be positive", ErrInvalid)
	}
	if err := c.Chunk.Validate(); err != nil {
		return err
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	if err := c.Mutation.Validate(); err != nil {
		return err
	}
	if c.World.Width <= 0 || c.World.Height <= 0 {
		return fmt.Errorf("%w: world dimensions must be positive", ErrInvalid)
	}
	return nil
}

func (c ChunkConfig) Validate() error {
	switch {
	case c.Size <= 0:
		return fmt.Errorf("%w: chunk.size must be positive, got %v", ErrInvalid, c.Size)
	case c.RebuildInterval == 0:
		return fmt.Errorf("%w: chunk.rebuild_interval must be at least 1", ErrInvalid)
	case c.RebuildBudget < 0:
		return fmt.Errorf("%w: chunk.rebuild_budget must not be negative", ErrInvalid)
	}
	return nil
}

func (c SchedulerConfig) Validate() error {
	switch {
	case c.ProximityRadius < 0:
		return fmt.Errorf("%w: scheduler.proximity_radius must not be negative", ErrInvalid)
	case c.DemoteAfterPasses < 1:
		return fmt.Errorf("%w: scheduler.demote_after_passes must be at least 1", ErrInvalid)
	}
	return nil
}

func (c MutationConfig) Validate() error {
	switch {
	case c.Interval == 0:
		return fmt.Errorf("%w: mutation.interval must be at least 1", ErrInvalid)
	case c.PassBudget < 0:
		return fmt.Errorf("%w: mutation.pass_budget must not be negative", ErrInvalid)
	case c.MaxDeltasPerEntity < 0:
		return fmt.Errorf("%w: mutation.max_deltas_per_entity must not be negative", ErrInvalid)
	}
	return nil
}

func Defaults() *Config {
	return &Config{
		Simulation: SimulationConfig{
			TickRate:       50 * time.Millisecond,
			MinutesPerTick: 1.0 / 60.0, // one in-simulation second per tick
			Seed:           1,
			StatsInterval:  10 * time.Second,
		},
		Chunk: ChunkConfig{
			Size:            32,
			RebuildInterval: 5,
			RebuildBudget:   256,
		},
		Scheduler: SchedulerConfig{
			ProximityRadius:   3,
			DemoteAfterPasses: 2,
		},
		Mutation: MutationConfig{
			Interval:           20,
			PassBudget:         0,
			MaxDeltasPerEntity: 32,
		},
		World: WorldConfig{
			Width:  2048,
			Height: 2048,
		},
		Data: DataConfig{
			Archetypes: "data/yaml/archetypes.yaml",
			Scripts:    "scripts/rates",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
