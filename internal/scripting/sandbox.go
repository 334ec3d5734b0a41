// Package scripting provides a sandboxed GopherLua execution environment for
// bot decision scripts. It has no dependency on game domain packages; game
// state is injected through Manager callback fields.
package scripting

import (
	"context"
	"strings"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the maximum number of Lua opcodes allowed per
// script execution when no override is configured.
const DefaultInstructionLimit = 100_000

// MaxRepeatLength caps the length of a string built by string.rep.
const MaxRepeatLength = 1 << 16

// safeLibs are the only stdlib modules bot scripts can reach.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals are base-library entries removed after loading.
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require", "module"}

// opBudget is a context that cancels itself once Done has been called more
// than its budget allows. GopherLua polls Done once per opcode when a context
// is set, so the budget is an exact instruction count.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 {
		b.cancel()
	}
	return b.Context.Done()
}

func newBudget(instLimit int) (*opBudget, context.CancelFunc) {
	if instLimit <= 0 {
		instLimit = DefaultInstructionLimit
	}
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(instLimit))
	return b, cancel
}

// NewSandboxedState creates a GopherLua LState with only the base, table,
// string and math modules, without file or code loading globals, and with
// execution limited to instLimit opcodes. string.rep is capped at
// MaxRepeatLength bytes.
//
// Precondition: instLimit >= 0; 0 uses DefaultInstructionLimit.
// Postcondition: The caller owns the LState and must call L.Close() when done.
// The returned CancelFunc releases the initial budget.
func NewSandboxedState(instLimit int) (*lua.LState, context.CancelFunc) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	if str, ok := L.GetGlobal(lua.StringLibName).(*lua.LTable); ok {
		str.RawSetString("rep", L.NewFunction(cappedRep))
	}

	budget, cancel := newBudget(instLimit)
	L.SetContext(budget)
	return L, cancel
}

func cappedRep(L *lua.LState) int {
	s := L.CheckString(1)
	n := L.CheckInt(2)
	if n <= 0 || s == "" {
		L.Push(lua.LString(""))
		return 1
	}
	if n > MaxRepeatLength/len(s) {
		L.RaiseError("string.rep result exceeds %d bytes", MaxRepeatLength)
		return 0
	}
	L.Push(lua.LString(strings.Repeat(s, n)))
	return 1
}

// withBudget runs fn with a fresh instruction budget of instLimit opcodes.
// A budget spent by an earlier call never leaks into the next one.
func withBudget(L *lua.LState, instLimit int, fn func() error) error {
	budget, cancel := newBudget(instLimit)
	L.SetContext(budget)
	defer func() {
		cancel()
		L.RemoveContext()
	}()
	return fn()
}
