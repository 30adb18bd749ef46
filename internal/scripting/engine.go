package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM holding the rate formulas that domain
// systems turn into mutation deltas.
// Single-goroutine access only (game loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	reported map[string]struct{}
}

// NewEngine creates a Lua engine and loads every script in dir.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, reported: make(map[string]struct{})}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load rate scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// RateContext is the entity state a rate formula may read. Zero fields are
// passed through so scripts can treat absent components as zeros.
type RateContext struct {
	Archetype  string
	BloodLoss  float64
	Health     float64
	Hunger     float64
	Fatigue    float64
	Wounds     int
	Resting    bool
	Stage      float64
	Moisture   float64
	Durability float64
	Freshness  float64
	Density    float64 // terrain density at the entity's position
}

// Rate calls the Lua function fn(ctx) and returns its per-minute rate.
// A missing function, a script error or a non-finite result yields 0.
func (e *Engine) Rate(fn string, ctx RateContext) float64 {
	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		e.reportOnce(fn, "lua rate function not found")
		return 0
	}

	t := e.vm.NewTable()
	t.RawSetString("archetype", lua.LString(ctx.Archetype))
	t.RawSetString("blood_loss", lua.LNumber(ctx.BloodLoss))
	t.RawSetString("health", lua.LNumber(ctx.Health))
	t.RawSetString("hunger", lua.LNumber(ctx.Hunger))
	t.RawSetString("fatigue", lua.LNumber(ctx.Fatigue))
	t.RawSetString("wounds", lua.LNumber(ctx.Wounds))
	t.RawSetString("resting", lua.LBool(ctx.Resting))
	t.RawSetString("stage", lua.LNumber(ctx.Stage))
	t.RawSetString("moisture", lua.LNumber(ctx.Moisture))
	t.RawSetString("durability", lua.LNumber(ctx.Durability))
	t.RawSetString("freshness", lua.LNumber(ctx.Freshness))
	t.RawSetString("density", lua.LNumber(ctx.Density))

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua rate error", zap.String("func", fn), zap.Error(err))
		return 0
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)
	n, ok := result.(lua.LNumber)
	if !ok {
		e.reportOnce(fn, "lua rate returned non-number")
		return 0
	}
	v := float64(n)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		e.reportOnce(fn, "lua rate returned non-finite number")
		return 0
	}
	return v
}

// Has reports whether a global Lua function named fn is loaded.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

func (e *Engine) reportOnce(fn, msg string) {
	if _, seen := e.reported[fn+"\x00"+msg]; seen {
		return
	}
	e.reported[fn+"\x00"+msg] = struct{}{}
	e.log.Error(msg, zap.String("func", fn))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
