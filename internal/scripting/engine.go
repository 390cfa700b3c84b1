package scripting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/chunksloader/server/internal/loader"
	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	hookChanged = "on_loaders_changed"
	hookLabel   = "loader_label"
)

// ViewSource lists the loaders of a world for scripts.
type ViewSource func(world uuid.UUID) []loader.View

// Engine wraps a single gopher-lua VM running the loader hooks.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm     *lua.LState
	source ViewSource
	log    *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in dir, then in
// dir/hooks. Missing directories are skipped.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	vm.SetGlobal("log", vm.NewFunction(e.luaLog))
	vm.SetGlobal("list_loaders", vm.NewFunction(e.luaListLoaders))

	for _, d := range []string{dir, filepath.Join(dir, "hooks")} {
		if err := e.loadDir(d); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	log.Info("lua hooks ready",
		zap.Bool(hookChanged, e.HasHook(hookChanged)),
		zap.Bool(hookLabel, e.HasHook(hookLabel)))
	return e, nil
}

// loadDir loads all .lua files in a directory in name order.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
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

// SetViewSource backs the list_loaders() Lua function.
func (e *Engine) SetViewSource(src ViewSource) {
	e.source = src
}

// HasHook reports whether a global Lua function is defined.
func (e *Engine) HasHook(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// OnRegistryChanged calls on_loaders_changed(world_id). The world id is nil
// when every world changed. It makes Engine a loader.Listener.
func (e *Engine) OnRegistryChanged(world uuid.UUID) error {
	fn, ok := e.vm.GetGlobal(hookChanged).(*lua.LFunction)
	if !ok {
		return nil
	}
	var arg lua.LValue = lua.LNil
	if world != loader.AllWorlds {
		arg = lua.LString(world.String())
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, arg); err != nil {
		return fmt.Errorf("lua %s: %w", hookChanged, err)
	}
	return nil
}

// LoaderLabel returns the marker label of a loader, from loader_label(view)
// when defined and otherwise "Chunk Loader (<world name>)".
func (e *Engine) LoaderLabel(v loader.View) string {
	fallback := DefaultLabel(v)
	fn, ok := e.vm.GetGlobal(hookLabel).(*lua.LFunction)
	if !ok {
		return fallback
	}
	if err := e.vm.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, e.viewTable(v)); err != nil {
		e.log.Warn("lua loader_label error", zap.String("loader", v.ID), zap.Error(err))
		return fallback
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	s, ok := ret.(lua.LString)
	if !ok || s == "" {
		return fallback
	}
	return string(s)
}

// DefaultLabel is the marker label used without a script.
func DefaultLabel(v loader.View) string {
	return "Chunk Loader (" + v.WorldName + ")"
}

func (e *Engine) viewTable(v loader.View) *lua.LTable {
	t := e.vm.NewTable()
	t.RawSetString("id", lua.LString(v.ID))
	t.RawSetString("world_id", lua.LString(v.WorldID))
	t.RawSetString("world_name", lua.LString(v.WorldName))
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	t.RawSetString("z", lua.LNumber(v.Z))
	t.RawSetString("chunk_x", lua.LNumber(v.Chunk.X))
	t.RawSetString("chunk_z", lua.LNumber(v.Chunk.Z))
	t.RawSetString("radius", lua.LNumber(v.Radius))
	t.RawSetString("chunk_count", lua.LNumber(v.ChunkCount))
	t.RawSetString("active", lua.LBool(v.Active))
	t.RawSetString("status", lua.LString(v.StatusLabel()))
	t.RawSetString("occupant", lua.LBool(v.Occupant))
	t.RawSetString("occupant_name", lua.LString(v.OccupantName))
	return t
}

// log(level, message)
func (e *Engine) luaLog(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)
	l := e.log.Named("lua")
	switch level {
	case "debug":
		l.Debug(msg)
	case "warn":
		l.Warn(msg)
	case "error":
		l.Error(msg)
	default:
		l.Info(msg)
	}
	return 0
}

// list_loaders(world_id) -> array of view tables
func (e *Engine) luaListLoaders(L *lua.LState) int {
	id, err := uuid.Parse(L.CheckString(1))
	if err != nil {
		L.ArgError(1, "invalid world id")
		return 0
	}
	out := L.NewTable()
	if e.source != nil {
		for _, v := range e.source(id) {
			out.Append(e.viewTable(v))
		}
	}
	L.Push(out)
	return 1
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
