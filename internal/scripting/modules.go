package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arena/internal/game/dice"
)

// RegisterModules registers the bot Lua table into L:
//
//	bot.info(uid)           -> table or nil
//	bot.roll(expr)          -> total
//	bot.log.<level>(msg)    for debug, info, warn and error
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: bot global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	mod := L.NewTable()
	L.SetField(mod, "info", L.NewFunction(m.luaInfo))
	L.SetField(mod, "roll", L.NewFunction(m.luaRoll))

	logTbl := L.NewTable()
	for level, fn := range map[string]func(string, ...zap.Field){
		"debug": m.logger.Debug,
		"info":  m.logger.Info,
		"warn":  m.logger.Warn,
		"error": m.logger.Error,
	} {
		L.SetField(logTbl, level, L.NewFunction(func(L *lua.LState) int {
			fn("lua: "+L.CheckString(1), zap.String("source", "lua"))
			return 0
		}))
	}
	L.SetField(mod, "log", logTbl)
	L.SetGlobal("bot", mod)
}

func (m *Manager) luaInfo(L *lua.LState) int {
	uid := L.CheckString(1)
	if m.GetBot == nil {
		L.Push(lua.LNil)
		return 1
	}
	info := m.GetBot(uid)
	if info == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	L.SetField(t, "uid", lua.LString(info.UID))
	L.SetField(t, "name", lua.LString(info.Name))
	L.SetField(t, "team", lua.LString(info.Team))
	L.SetField(t, "health", lua.LNumber(info.Health))
	L.SetField(t, "max_health", lua.LNumber(info.MaxHealth))
	L.SetField(t, "speed", lua.LNumber(info.Speed))
	L.SetField(t, "action_points", lua.LNumber(info.ActionPoints))
	L.SetField(t, "escapes_attempts", lua.LNumber(info.EscapesAttempts))
	L.SetField(t, "max_escape_attempts", lua.LNumber(info.MaxEscapeAttempts))
	L.SetField(t, "items", lua.LNumber(info.Items))
	L.SetField(t, "max_items", lua.LNumber(info.MaxItems))
	L.SetField(t, "enemies", lua.LNumber(info.Enemies))
	L.SetField(t, "floor_items", lua.LNumber(info.FloorItems))
	L.SetField(t, "flag_on_floor", lua.LBool(info.FlagOnFloor))
	L.SetField(t, "carries_flag", lua.LBool(info.CarriesFlag))
	L.SetField(t, "on_spawn", lua.LBool(info.OnSpawn))
	L.SetField(t, "in_combat", lua.LBool(info.InCombat))
	L.SetField(t, "aggressive", lua.LBool(info.Aggressive))
	L.Push(t)
	return 1
}

func (m *Manager) luaRoll(L *lua.LState) int {
	expr, err := dice.Parse(L.CheckString(1))
	if err != nil {
		L.RaiseError("bot.roll: %s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(m.roller.Roll(expr).Total()))
	return 1
}
