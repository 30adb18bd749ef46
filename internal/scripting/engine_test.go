package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func writeScript(t *testing.T, dir, name, src string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644))
}

func TestRateCallsLuaWithContext(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "a.lua", `
function bleed_rate(ctx)
  if ctx.resting then return 0 end
  return ctx.wounds * 3 + ctx.blood_loss
end
function named(ctx)
  if ctx.archetype == "deer" then return 7 end
  return 1
end
`)
	writeScript(t, dir, "notes.txt", "not lua")

	e, err := NewEngine(dir, zap.NewNop())
	require.NoError(t, err)
	defer e.Close()

	assert.Equal(t, 11.0, e.Rate("bleed_rate", RateContext{Wounds: 3, BloodLoss: 2}))
	assert.Equal(t, 0.0, e.Rate("bleed_rate", RateContext{Wounds: 3, Resting: true}))
	assert.Equal(t, 7.0, e.Rate("named", RateContext{Archetype: "deer"}))
	assert.True(t, e.Has("named"))
	assert.False(t, e.Has("API_VERSION"))
}

func TestRateFailuresYieldZeroAndLogOnce(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "bad.lua", `
function boom(ctx) error("nope") end
function text(ctx) return "fast" end
function nan(ctx) local z = 0 return z / z end
`)
	core, logs := observer.New(zapcore.ErrorLevel)
	e, err := NewEngine(dir, zap.New(core))
	require.NoError(t, err)
	defer e.Close()

	for i := 0; i < 3; i++ {
		assert.Zero(t, e.Rate("missing", RateContext{}))
		assert.Zero(t, e.Rate("text", RateContext{}))
		assert.Zero(t, e.Rate("nan", RateContext{}))
	}
	assert.Equal(t, 3, logs.Len())

	assert.Zero(t, e.Rate("boom", RateContext{}))
	assert.Equal(t, 4, logs.Len())
}

func TestNewEngineReportsSyntaxErrors(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "broken.lua", "function (")
	_, err := NewEngine(dir, nil)
	assert.Error(t, err)
}

func TestMissingDirLoadsNothing(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), nil)
	require.NoError(t, err)
	defer e.Close()
	assert.False(t, e.Has("bleed_rate"))
}

func TestShippedRateScripts(t *testing.T) {
	e, err := NewEngine(filepath.Join("..", "..", "scripts", "rates"), nil)
	require.NoError(t, err)
	defer e.Close()

	for _, fn := range []string{"bleed_rate", "recover_rate", "hunger_rate", "fatigue_rate", "health_rate", "growth_rate", "moisture_rate", "spoil_rate"} {
		assert.True(t, e.Has(fn), fn)
	}
	assert.Positive(t, e.Rate("bleed_rate", RateContext{Wounds: 1}))
	assert.Zero(t, e.Rate("bleed_rate", RateContext{}))
	assert.Negative(t, e.Rate("recover_rate", RateContext{BloodLoss: 10}))
	assert.Negative(t, e.Rate("spoil_rate", RateContext{Archetype: "berries"}))
	assert.Zero(t, e.Rate("spoil_rate", RateContext{Archetype: "ore"}))
}
