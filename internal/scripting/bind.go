package scripting

import (
	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// BindWorld wires the engine.* callbacks to units resolved through m.
// Damage and heals from scripts have no attacker; script casts are procs.
//
// Precondition: m must be non-nil.
func (m *Manager) BindWorld(w unit.Map) {
	m.Damage = func(guid uint64, amount int) int {
		u, ok := w.FindUnit(guid)
		if !ok {
			return 0
		}
		return u.DealDamage(0, amount)
	}
	m.Heal = func(guid uint64, amount int) int {
		u, ok := w.FindUnit(guid)
		if !ok {
			return 0
		}
		return u.Heal(0, amount)
	}
	m.HasAura = func(guid uint64, spellID uint32) bool {
		u, ok := w.FindUnit(guid)
		return ok && u.HasAura(spellID)
	}
	m.Cast = func(casterGUID uint64, spellID uint32, target uint64) cast.Result {
		caster, ok := w.FindUnit(casterGUID)
		if !ok {
			return cast.Error
		}
		ctl, ok := cast.ControllerOf(caster)
		if !ok {
			return cast.Error
		}
		entry, ok := w.Spells().Get(spellID)
		if !ok {
			return cast.Error
		}
		var tm targetmap.SpellTargetMap
		if target != 0 {
			tm.SetUnitTarget(target)
		}
		res, _ := ctl.StartCast(entry, tm, 0, true, 0)
		return res
	}
	m.EnemiesNear = func(guid uint64, radius float32) int {
		u, ok := w.FindUnit(guid)
		if !ok {
			return 0
		}
		n := 0
		for _, o := range w.UnitsInRange(u.Position(), radius) {
			if o.IsAlive() && u.IsHostileTo(o) {
				n++
			}
		}
		return n
	}
}
