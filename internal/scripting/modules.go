package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RegisterModules registers the engine.* table into L.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: engine global is defined in L.
func (m *Manager) RegisterModules(L *lua.LState) {
	engine := L.NewTable()

	log := L.NewTable()
	L.SetField(log, "debug", L.NewFunction(m.luaLog(zap.DebugLevel)))
	L.SetField(log, "info", L.NewFunction(m.luaLog(zap.InfoLevel)))
	L.SetField(log, "warn", L.NewFunction(m.luaLog(zap.WarnLevel)))
	L.SetField(engine, "log", log)

	L.SetField(engine, "roll", L.NewFunction(m.luaRoll))
	L.SetField(engine, "damage", L.NewFunction(m.luaDamage))
	L.SetField(engine, "heal", L.NewFunction(m.luaHeal))
	L.SetField(engine, "has_aura", L.NewFunction(m.luaHasAura))
	L.SetField(engine, "cast", L.NewFunction(m.luaCast))
	L.SetField(engine, "enemies_near", L.NewFunction(m.luaEnemiesNear))

	L.SetGlobal("engine", engine)
}

func (m *Manager) luaLog(level zapcore.Level) lua.LGFunction {
	return func(L *lua.LState) int {
		msg := L.CheckString(1)
		if ce := m.logger.Check(level, msg); ce != nil {
			ce.Write(zap.String("source", "lua"))
		}
		return 0
	}
}

// engine.roll(sides) -> 1..sides
func (m *Manager) luaRoll(L *lua.LState) int {
	sides := L.CheckInt(1)
	if sides < 1 {
		L.ArgError(1, "sides must be positive")
		return 0
	}
	L.Push(lua.LNumber(m.roller.Source().Intn(sides) + 1))
	return 1
}

// engine.damage(guid, amount) -> dealt
func (m *Manager) luaDamage(L *lua.LState) int {
	guid := uint64(L.CheckNumber(1))
	amount := L.CheckInt(2)
	if m.Damage == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.Damage(guid, amount)))
	return 1
}

// engine.heal(guid, amount) -> healed
func (m *Manager) luaHeal(L *lua.LState) int {
	guid := uint64(L.CheckNumber(1))
	amount := L.CheckInt(2)
	if m.Heal == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.Heal(guid, amount)))
	return 1
}

// engine.has_aura(guid, spell_id) -> bool
func (m *Manager) luaHasAura(L *lua.LState) int {
	guid := uint64(L.CheckNumber(1))
	spellID := uint32(L.CheckNumber(2))
	L.Push(lua.LBool(m.HasAura != nil && m.HasAura(guid, spellID)))
	return 1
}

// engine.cast(caster_guid, spell_id, target_guid) -> result name
func (m *Manager) luaCast(L *lua.LState) int {
	caster := uint64(L.CheckNumber(1))
	spellID := uint32(L.CheckNumber(2))
	target := uint64(L.OptNumber(3, 0))
	if m.Cast == nil {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(m.Cast(caster, spellID, target).String()))
	return 1
}

// engine.enemies_near(guid, radius) -> count
func (m *Manager) luaEnemiesNear(L *lua.LState) int {
	guid := uint64(L.CheckNumber(1))
	radius := float32(L.CheckNumber(2))
	if m.EnemiesNear == nil {
		L.Push(lua.LNumber(0))
		return 1
	}
	L.Push(lua.LNumber(m.EnemiesNear(guid, radius)))
	return 1
}
