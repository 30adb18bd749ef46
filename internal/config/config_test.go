package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[simulation]
tick_rate = "100ms"
minutes_per_tick = 0.5

[chunk]
size = 16
rebuild_interval = 3

[mutation]
interval = 10
`))
	require.NoError(t, err)
	assert.Equal(t, 100*time.Millisecond, cfg.Simulation.TickRate)
	assert.Equal(t, 0.5, cfg.Simulation.MinutesPerTick)
	assert.Equal(t, 16.0, cfg.Chunk.Size)
	assert.Equal(t, uint64(3), cfg.Chunk.RebuildInterval)
	assert.Equal(t, 256, cfg.Chunk.RebuildBudget, "untouched keys keep defaults")
	assert.Equal(t, uint64(10), cfg.Mutation.Interval)
	assert.Equal(t, 3, cfg.Scheduler.ProximityRadius)
}

func TestParseRejectsInvalidChunkSize(t *testing.T) {
	_, err := Parse([]byte("[chunk]\nsize = 0\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("[chunk]\nsize = -4\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseRejectsZeroIntervals(t *testing.T) {
	_, err := Parse([]byte("[mutation]\ninterval = 0\n"))
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Parse([]byte("[scheduler]\ndemote_after_passes = 0\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "simcore.toml")
	require.NoError(t, os.WriteFile(path, []byte("[logging]\nlevel = \"debug\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestShippedConfigLoads(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "simcore.toml"))
	require.NoError(t, err)
	def := Defaults()
	assert.Equal(t, def.Chunk, cfg.Chunk)
	assert.Equal(t, def.Scheduler, cfg.Scheduler)
	assert.Equal(t, def.Mutation, cfg.Mutation)
	assert.Equal(t, def.Data, cfg.Data)
}
