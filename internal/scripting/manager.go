package scripting

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// globalScope is the reserved key for shared scripts loaded via LoadGlobal.
// CallHook falls back to this VM when no scoped VM is found.
const globalScope = "__global__"

// BotInfo is a snapshot of a bot's situation passed to Lua callbacks.
type BotInfo struct {
	UID               string
	Name              string
	Team              string
	Health            int
	MaxHealth         int
	Speed             int
	ActionPoints      int
	EscapesAttempts   int
	MaxEscapeAttempts int
	Items             int
	MaxItems          int
	Enemies           int
	FloorItems        int
	FlagOnFloor       bool
	CarriesFlag       bool
	OnSpawn           bool
	InCombat          bool
	Aggressive        bool
}

type vm struct {
	L      *lua.LState
	cancel context.CancelFunc
	limit  int
}

// Manager owns one sandboxed LState per scope and exposes hook dispatch.
//
// Manager is safe for concurrent use. An LState is single-threaded, so every
// call holds the manager lock for its duration.
type Manager struct {
	mu     sync.Mutex
	states map[string]*vm
	roller *dice.Roller
	logger *zap.Logger

	// Injected after construction. nil makes bot.info return nil.
	GetBot func(uid string) *BotInfo
}

// NewManager creates a Manager.
//
// Precondition: roller and logger must be non-nil.
// Postcondition: Returns a non-nil Manager with no VMs.
func NewManager(roller *dice.Roller, logger *zap.Logger) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	return &Manager{
		states: make(map[string]*vm),
		roller: roller,
		logger: logger,
	}
}

// LoadDir creates a sandboxed VM for scope, registers the bot.* module, then
// executes every *.lua file in scriptDir in lexicographic order.
//
// Precondition: scope must be non-empty; scriptDir must be a readable directory.
// Postcondition: the VM replaces any previous VM of scope; returns error on
// Lua load failure.
func (m *Manager) LoadDir(scope, scriptDir string, instLimit int) error {
	return m.LoadFS(scope, os.DirFS(scriptDir), ".", instLimit)
}

// LoadGlobal loads scriptDir into the VM used as a CallHook fallback from
// any scope.
func (m *Manager) LoadGlobal(scriptDir string, instLimit int) error {
	return m.LoadDir(globalScope, scriptDir, instLimit)
}

// LoadFS is LoadDir over an fs.FS, used for embedded scripts.
func (m *Manager) LoadFS(scope string, fsys fs.FS, dir string, instLimit int) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q for %q: %w", dir, scope, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && path.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, path.Join(dir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L, cancel := NewSandboxedState(instLimit)
	m.RegisterModules(L)
	for _, name := range luaFiles {
		src, err := fs.ReadFile(fsys, name)
		if err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: reading %q for %q: %w", name, scope, err)
		}
		if err := withBudget(L, instLimit, func() error { return L.DoString(string(src)) }); err != nil {
			cancel()
			L.Close()
			return fmt.Errorf("scripting: loading %q for %q: %w", name, scope, err)
		}
	}

	m.mu.Lock()
	if old, ok := m.states[scope]; ok {
		old.cancel()
		old.L.Close()
	}
	m.states[scope] = &vm{L: L, cancel: cancel, limit: instLimit}
	m.mu.Unlock()
	m.logger.Info("scripts loaded", zap.String("scope", scope), zap.Int("files", len(luaFiles)))
	return nil
}

// CallHook calls the named Lua global function in scope's VM. If the scope
// has no VM, the global VM is tried as a fallback. Returns (LNil, nil) if the
// hook is not defined or no VM exists. Lua runtime errors, including an
// exhausted instruction budget, are logged at Warn level and never propagated.
//
// Precondition: args must be valid lua.LValue instances.
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(scope, hook string, args ...lua.LValue) (lua.LValue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.states[scope]
	if !ok {
		v = m.states[globalScope]
	}
	if v == nil {
		m.logger.Info("scripting: no VM for scope",
			zap.String("scope", scope),
			zap.String("hook", hook),
		)
		return lua.LNil, nil
	}

	L := v.L
	fn := L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil, nil
	}

	err := withBudget(L, v.limit, func() error {
		return L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("scope", scope),
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil, nil
	}

	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// Close releases every VM.
//
// Postcondition: later CallHook calls return LNil.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for scope, v := range m.states {
		v.cancel()
		v.L.Close()
		delete(m.states, scope)
	}
}
