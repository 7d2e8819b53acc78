package cast

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// Projectile is a missile travelling toward its unit target.
type Projectile struct {
	Target uint64
	Pos    unit.Position
	Steps  int
}

// launch starts the missile at the caster and releases the caster's cast
// state; the flight resolves on its own countdown.
func (a *Active) launch() {
	a.phase = PhaseTraveling
	a.projectile = &Projectile{Target: a.target, Pos: a.ctl.unit.Position()}
	a.ctl.detach(a)
	a.step()
}

// step advances the missile by at most one configured step, recomputing
// the remaining travel time against the target's current position.
func (a *Active) step() {
	if !a.live || a.projectile == nil {
		return
	}
	p := a.projectile
	target, ok := a.m.FindUnit(p.Target)
	if !ok || (!target.IsAlive() && !a.entry.Has(spell.AttrCanTargetDead)) {
		a.lose("target lost")
		return
	}
	if _, ok := a.m.FindUnit(a.ctl.unit.GUID()); !ok {
		a.lose("caster left")
		return
	}

	cfg := a.ctl.engine.cfg
	dest := target.Position()
	remaining := int64(p.Pos.Distance(dest) / a.entry.Speed * 1000)
	if remaining < cfg.ProjectileFinalizeMs {
		p.Pos = dest
		a.projectile = nil
		a.applyEffects()
		a.finish(true, Success)
		return
	}
	stepMs := min(cfg.ProjectileStepMs, remaining)
	p.Pos = p.Pos.Toward(dest, a.entry.Speed*float32(stepMs)/1000)
	p.Steps++
	a.timer.SetIn(stepMs, a.step)
}

func (a *Active) lose(reason string) {
	a.ctl.logger.Debug("projectile lost",
		zap.Uint32("spell", a.entry.ID),
		zap.Uint64("target", a.projectile.Target),
		zap.String("reason", reason),
	)
	a.finish(true, Success)
}
