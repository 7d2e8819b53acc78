package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
)

// Hook names called by the Manager.
const (
	HookScriptEffect    = "on_script_effect"
	HookEffectCompleted = "on_effect_completed"
	HookCastStarted     = "on_cast_started"
	HookCastEnded       = "on_cast_ended"
)

// Manager owns one sandboxed LState holding every spell script and
// dispatches hooks into it. It is not safe for concurrent use; hooks run on
// the logic thread, and a hook may re-enter the engine, which may call
// further hooks before the first returns.
type Manager struct {
	L         *lua.LState
	instLimit int
	depth     int
	roller    *dice.Roller
	logger    *zap.Logger

	// Injected after construction. nil = no-op in engine.* functions.
	Damage  func(guid uint64, amount int) int
	Heal    func(guid uint64, amount int) int
	HasAura func(guid uint64, spellID uint32) bool
	Cast    func(caster uint64, spellID uint32, target uint64) cast.Result
	// EnemiesNear counts living hostile units within radius of guid.
	EnemiesNear func(guid uint64, radius float32) int
}

// NewManager creates a Manager with an empty VM.
//
// Precondition: roller and logger must be non-nil; instLimit <= 0 uses DefaultInstructionLimit.
// Postcondition: Returns a non-nil Manager with the engine.* table registered.
func NewManager(roller *dice.Roller, logger *zap.Logger, instLimit int) *Manager {
	if roller == nil {
		panic("scripting.NewManager: roller must not be nil")
	}
	if logger == nil {
		panic("scripting.NewManager: logger must not be nil")
	}
	m := &Manager{instLimit: instLimit, roller: roller, logger: logger}
	m.L = m.newState()
	return m
}

func (m *Manager) newState() *lua.LState {
	L := NewSandboxedState()
	m.RegisterModules(L)
	return L
}

// LoadDir replaces the VM with a fresh one and executes every *.lua file in
// scriptDir in lexicographic order. On error the previous VM is kept.
//
// Precondition: scriptDir must be a readable directory.
func (m *Manager) LoadDir(scriptDir string) error {
	entries, err := os.ReadDir(scriptDir)
	if err != nil {
		return fmt.Errorf("scripting: reading script dir %q: %w", scriptDir, err)
	}
	var luaFiles []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			luaFiles = append(luaFiles, filepath.Join(scriptDir, e.Name()))
		}
	}
	sort.Strings(luaFiles)

	L := m.newState()
	for _, path := range luaFiles {
		if err := RunLimited(L, m.instLimit, func() error { return L.DoFile(path) }); err != nil {
			L.Close()
			return fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}

	if m.L != nil {
		m.L.Close()
	}
	m.L = L
	m.logger.Info("spell scripts loaded", zap.String("dir", scriptDir), zap.Int("files", len(luaFiles)))
	return nil
}

// LoadString executes src in the current VM.
func (m *Manager) LoadString(name, src string) error {
	if m.L == nil {
		return fmt.Errorf("scripting: manager closed")
	}
	if err := m.run(func() error { return m.L.DoString(src) }); err != nil {
		return fmt.Errorf("scripting: loading %q: %w", name, err)
	}
	return nil
}

// CallHook calls the named Lua global function. Returns LNil if the hook is
// not defined. Lua runtime errors are logged at Warn level and never propagated.
//
// Postcondition: Returns the first return value of the hook, or LNil.
func (m *Manager) CallHook(hook string, args ...lua.LValue) lua.LValue {
	if m.L == nil {
		return lua.LNil
	}
	fn := m.L.GetGlobal(hook)
	if fn == lua.LNil {
		return lua.LNil
	}
	err := m.run(func() error {
		return m.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		m.logger.Warn("scripting: Lua runtime error",
			zap.String("hook", hook),
			zap.Error(err),
		)
		return lua.LNil
	}
	ret := m.L.Get(-1)
	m.L.Pop(1)
	return ret
}

// run executes fn under the instruction limit. Nested runs share the
// budget of the outermost one.
func (m *Manager) run(fn func() error) error {
	m.depth++
	defer func() { m.depth-- }()
	if m.depth > 1 {
		return fn()
	}
	return RunLimited(m.L, m.instLimit, fn)
}

// ScriptEffect runs a ScriptEffect effect through on_script_effect.
func (m *Manager) ScriptEffect(call cast.ScriptCall) {
	m.CallHook(HookScriptEffect,
		lua.LNumber(call.SpellID),
		lua.LNumber(call.EffectIndex),
		lua.LNumber(call.Caster),
		lua.LNumber(call.Target),
		lua.LNumber(call.Points),
	)
}

// CastStarted forwards to on_cast_started(spell_id, caster_guid).
func (m *Manager) CastStarted(c *cast.Casting) {
	m.CallHook(HookCastStarted, lua.LNumber(c.Spell().ID), lua.LNumber(c.Caster()))
}

// CastEnded forwards to on_cast_ended(spell_id, caster_guid, success).
func (m *Manager) CastEnded(c *cast.Casting, success bool) {
	m.CallHook(HookCastEnded, lua.LNumber(c.Spell().ID), lua.LNumber(c.Caster()), lua.LBool(success))
}

// EffectCompleted forwards to on_effect_completed(spell_id, effect_index, target_guid).
func (m *Manager) EffectCompleted(c *cast.Casting, effectIndex int, target uint64) {
	m.CallHook(HookEffectCompleted, lua.LNumber(c.Spell().ID), lua.LNumber(effectIndex), lua.LNumber(target))
}

// Close releases the VM. Later hook calls are no-ops.
func (m *Manager) Close() {
	if m.L != nil {
		m.L.Close()
		m.L = nil
	}
}

var (
	_ cast.ScriptHandler = (*Manager)(nil)
	_ cast.Listener      = (*Manager)(nil)
)
