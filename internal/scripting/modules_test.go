package scripting_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/arena/internal/game/dice"
	"github.com/cory-johannsen/arena/internal/scripting"
)

type fixedSrc struct{ val int }

func (f fixedSrc) Intn(n int) int {
	if f.val >= n {
		return n - 1
	}
	return f.val
}

func runScript(t *testing.T, mgr *scripting.Manager, luaSrc, hook string, args ...lua.LValue) lua.LValue {
	t.Helper()
	dir := writeTempLua(t, "test.lua", luaSrc)
	scope := "modtest_" + t.Name()
	require.NoError(t, mgr.LoadDir(scope, dir, 0))
	ret, err := mgr.CallHook(scope, hook, args...)
	require.NoError(t, err)
	return ret
}

func TestBotLog_AllLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)
	mgr := scripting.NewManager(dice.NewLoggedRoller(dice.NewCryptoSource(), zap.NewNop()), logger)

	runScript(t, mgr, `
		function do_all_logs()
			bot.log.debug("d")
			bot.log.info("i")
			bot.log.warn("w")
			bot.log.error("e")
		end
	`, "do_all_logs")

	levels := map[string]bool{}
	for _, e := range logs.FilterField(zap.String("source", "lua")).All() {
		levels[e.Level.String()] = true
	}
	assert.Equal(t, map[string]bool{"debug": true, "info": true, "warn": true, "error": true}, levels)
}

func TestBotInfo_Table(t *testing.T) {
	mgr, _ := newTestManager(t)
	mgr.GetBot = func(uid string) *scripting.BotInfo {
		if uid != "b1" {
			return nil
		}
		return &scripting.BotInfo{UID: "b1", Name: "Robo", Health: 4, MaxHealth: 10, Enemies: 2, CarriesFlag: true}
	}
	src := `
		function describe(uid)
			local me = bot.info(uid)
			if me == nil then return "missing" end
			return me.name .. ":" .. me.health .. "/" .. me.max_health .. ":" .. me.enemies .. ":" .. tostring(me.carries_flag)
		end
	`
	assert.Equal(t, lua.LString("Robo:4/10:2:true"), runScript(t, mgr, src, "describe", lua.LString("b1")))
}

func TestBotInfo_UnknownOrUnwired(t *testing.T) {
	mgr, _ := newTestManager(t)
	src := `function probe(uid) return bot.info(uid) == nil end`
	assert.Equal(t, lua.LTrue, runScript(t, mgr, src, "probe", lua.LString("x")), "no GetBot wired")

	mgr.GetBot = func(string) *scripting.BotInfo { return nil }
	assert.Equal(t, lua.LTrue, runScript(t, mgr, src, "probe", lua.LString("x")))
}

func TestBotRoll(t *testing.T) {
	mgr := scripting.NewManager(dice.NewLoggedRoller(fixedSrc{2}, zap.NewNop()), zap.NewNop())
	ret := runScript(t, mgr, `function r() return bot.roll("2d6+1") end`, "r")
	assert.Equal(t, lua.LNumber(7), ret)
}

func TestBotRoll_BadExpressionIsContained(t *testing.T) {
	mgr, logs := newTestManager(t)
	ret := runScript(t, mgr, `function r() return bot.roll("banana") end`, "r")
	assert.Equal(t, lua.LNil, ret)
	assert.Equal(t, 1, logs.FilterMessage("scripting: Lua runtime error").Len())
}

func TestProperty_BotRollWithinBounds(t *testing.T) {
	mgr, _ := newTestManager(t)
	dir := writeTempLua(t, "roll.lua", `function r(expr) return bot.roll(expr) end`)
	require.NoError(t, mgr.LoadDir("roll", dir, 0))
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 5).Draw(rt, "count")
		sides := rapid.IntRange(2, 20).Draw(rt, "sides")
		ret, err := mgr.CallHook("roll", "r", lua.LString(fmt.Sprintf("%dd%d", count, sides)))
		require.NoError(rt, err)
		n, ok := ret.(lua.LNumber)
		require.True(rt, ok)
		if int(n) < count || int(n) > count*sides {
			rt.Fatalf("%dd%d rolled %v", count, sides, n)
		}
	})
}
