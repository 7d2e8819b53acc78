package cast

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/combat"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// effectContext is one effect resolving against one target.
type effectContext struct {
	a       *Active
	index   int
	eff     *spell.Effect
	caster  *unit.Unit
	target  *unit.Unit
	points  int
	outcome combat.Outcome
}

type effectHandler func(ec *effectContext)

// effectHandlers is indexed by spell.EffectType. ApplyAura has no entry;
// aura effects are grouped per target before they are applied.
var effectHandlers [spell.EffectTypeCount]effectHandler

func init() {
	effectHandlers = [spell.EffectTypeCount]effectHandler{
		spell.EffectInstakill:     effectInstakill,
		spell.EffectSchoolDamage:  effectSchoolDamage,
		spell.EffectDummy:         effectDummy,
		spell.EffectHeal:          effectHeal,
		spell.EffectEnergize:      effectEnergize,
		spell.EffectWeaponDamage:  effectWeaponDamage,
		spell.EffectResurrect:     effectResurrect,
		spell.EffectSummon:        effectSummon,
		spell.EffectTeleportUnits: effectTeleportUnits,
		spell.EffectKnockBack:     effectKnockBack,
		spell.EffectLearnSpell:    effectLearnSpell,
		spell.EffectDispel:        effectDispel,
		spell.EffectTriggerSpell:  effectTriggerSpell,
		spell.EffectInterruptCast: effectInterruptCast,
		spell.EffectScript:        effectScript,
	}
}

// applyEffects runs every effect of the spell in declaration order. There is
// no rollback: a handler that fails leaves earlier effects in place.
func (a *Active) applyEffects() {
	caster := a.ctl.unit
	auras := make(map[uint64]*unit.AuraContainer)
	auraEffects := make(map[uint64][]int)
	var auraOrder []uint64

	for i := range a.entry.Effects {
		eff := &a.entry.Effects[i]
		for _, target := range a.effectTargets(eff) {
			outcome, hit := a.rollHit(target)
			if !hit {
				continue
			}
			points := a.points(i, eff)
			if eff.Type == spell.EffectApplyAura {
				guid := target.GUID()
				c, ok := auras[guid]
				if !ok {
					c = unit.NewAuraContainer(a.m, unit.AuraSpec{
						Entry:       a.entry,
						Owner:       guid,
						Caster:      caster.GUID(),
						CastItem:    a.itemGUID,
						DurationMs:  a.entry.DurationMs,
						CasterLevel: caster.Level(),
					})
					auras[guid] = c
					auraOrder = append(auraOrder, guid)
				}
				c.AddAuraEffect(i, eff, points)
				auraEffects[guid] = append(auraEffects[guid], i)
				continue
			}
			if h := effectHandlers[eff.Type]; h != nil {
				h(&effectContext{a: a, index: i, eff: eff, caster: caster, target: target, points: points, outcome: outcome})
			}
			a.ctl.engine.notifyEffect(a.casting, i, target.GUID())
		}
	}

	for _, guid := range auraOrder {
		target, ok := a.m.FindUnit(guid)
		if !ok || !target.ApplyAura(auras[guid]) {
			continue
		}
		if a.entry.IsChanneled() {
			a.channelAuras = append(a.channelAuras, auras[guid])
		}
		for _, i := range auraEffects[guid] {
			a.ctl.engine.notifyEffect(a.casting, i, guid)
		}
	}
}

// effectTargets selects the units one effect lands on from its implicit
// target type.
func (a *Active) effectTargets(eff *spell.Effect) []*unit.Unit {
	caster := a.ctl.unit
	switch eff.Target {
	case spell.TargetCaster, spell.TargetDest:
		return []*unit.Unit{caster}
	case spell.TargetEnemy, spell.TargetAlly, spell.TargetAny:
		if a.target == 0 {
			return nil
		}
		if t, ok := a.m.FindUnit(a.target); ok {
			return []*unit.Unit{t}
		}
		return nil
	case spell.TargetAreaEnemyAroundCaster, spell.TargetAreaAllyAroundCaster:
		enemies := eff.Target == spell.TargetAreaEnemyAroundCaster
		var out []*unit.Unit
		for _, u := range a.m.UnitsInRange(caster.Position(), eff.Radius) {
			if !u.IsAlive() {
				continue
			}
			if enemies && caster.IsHostileTo(u) || !enemies && caster.IsFriendlyTo(u) {
				out = append(out, u)
			}
		}
		return out
	}
	return nil
}

// rollHit makes the one spell-hit roll a negative spell gets per hostile
// target. Positive spells and friendly targets always hit.
func (a *Active) rollHit(target *unit.Unit) (combat.Outcome, bool) {
	caster := a.ctl.unit
	if a.entry.IsPositive() || !caster.IsHostileTo(target) {
		return combat.Normal, true
	}
	out, ok := a.outcomes[target.GUID()]
	if !ok {
		out = combat.Resolve(combat.Input{
			Attacker: caster.CombatStats(),
			Victim:   target.CombatStats(),
			Attack:   combat.SpellAttack,
			SpellID:  a.entry.ID,
		}, a.ctl.engine.roller.Source())
		a.outcomes[target.GUID()] = out
		if out.Avoided() {
			a.ctl.logger.Debug("spell avoided",
				zap.Uint32("spell", a.entry.ID),
				zap.Uint64("target", target.GUID()),
				zap.Stringer("outcome", out),
			)
		}
	}
	return out, !out.Avoided()
}

func (a *Active) points(index int, eff *spell.Effect) int {
	level := a.ctl.unit.Level()
	if a.entry.MaxLevel > 0 {
		level = min(level, a.entry.MaxLevel)
	}
	level = max(level-a.entry.Level, 0)
	return a.ctl.engine.roller.Points(a.entry.ID, index, eff.BasePoints, eff.DieSides, eff.PointsPerLevel, level)
}

func (a *Active) destPosition() (unit.Position, bool) {
	if !a.targets.Has(targetmap.DestLocation) {
		return unit.Position{}, false
	}
	d := a.targets.Dest
	return unit.Position{X: d.X, Y: d.Y, Z: d.Z}, true
}

func effectInstakill(ec *effectContext) {
	ec.target.Kill(ec.caster.GUID())
}

func effectSchoolDamage(ec *effectContext) {
	c := ec.caster
	dmg := float64(ec.points+c.TotalAuraModifier(spell.AuraModDamageDone)) *
		c.TotalAuraMultiplier(spell.AuraModDamagePercentDone)
	amount := c.Modifiers().Apply(spell.ModDamage, int64(dmg))
	amount = amount * int64(ec.outcome.DamagePercent(combat.SpellAttack)) / 100
	amount -= int64(ec.target.TotalAuraModifier(spell.AuraModResistance))
	if amount <= 0 {
		return
	}
	ec.target.DealDamage(c.GUID(), int(amount))
}

func effectDummy(ec *effectContext) {
	ec.a.ctl.logger.Debug("dummy effect",
		zap.Uint32("spell", ec.a.entry.ID),
		zap.Int("effect", ec.index),
		zap.Uint64("target", ec.target.GUID()),
	)
}

func effectHeal(ec *effectContext) {
	amount := float64(ec.points) * ec.caster.TotalAuraMultiplier(spell.AuraModHealingPct)
	if amount > 0 {
		ec.target.Heal(ec.caster.GUID(), int(amount))
	}
}

func effectEnergize(ec *effectContext) {
	ec.target.ModifyPower(spell.PowerType(ec.eff.MiscValue), ec.points)
}

func effectWeaponDamage(ec *effectContext) {
	src := ec.a.ctl.engine.roller.Source()
	out := combat.Resolve(combat.Input{
		Attacker: ec.caster.CombatStats(),
		Victim:   ec.target.CombatStats(),
		Attack:   combat.BaseAttack,
		SpellID:  ec.a.entry.ID,
		NoAvoid:  ec.a.entry.Has(spell.AttrImpossibleDodgeParryBlock),
		Behind:   !ec.target.HasInArc(ec.caster),
	}, src)
	if out.Avoided() {
		ec.caster.EnterCombatWith(ec.target)
		return
	}
	dmg := (ec.caster.WeaponDamage(src) + ec.points) * out.DamagePercent(combat.BaseAttack) / 100
	if out == combat.Block {
		dmg -= ec.target.BlockValue()
	}
	if dmg > 0 {
		ec.target.DealDamage(ec.caster.GUID(), dmg)
	}
}

func effectResurrect(ec *effectContext) {
	ec.target.Resurrect(ec.points)
}

func effectSummon(ec *effectContext) {
	pos, ok := ec.a.destPosition()
	if !ok {
		pos = ec.caster.Position()
	}
	if _, err := ec.a.m.Summon(uint32(ec.eff.MiscValue), pos, ec.caster); err != nil {
		ec.a.ctl.logger.Warn("summon failed",
			zap.Uint32("spell", ec.a.entry.ID),
			zap.Int32("entry", ec.eff.MiscValue),
			zap.Error(err),
		)
	}
}

func effectTeleportUnits(ec *effectContext) {
	pos, ok := ec.a.destPosition()
	if !ok {
		return
	}
	pos.O = ec.target.Position().O
	ec.target.Relocate(pos)
}

func effectKnockBack(ec *effectContext) {
	ec.target.KnockBack(ec.caster.Position(), float32(ec.points)/10)
}

func effectLearnSpell(ec *effectContext) {
	if ec.eff.TriggerSpell != 0 {
		ec.target.LearnSpell(ec.eff.TriggerSpell)
	}
}

func effectDispel(ec *effectContext) {
	removed := ec.target.RemoveAurasByDispel(spell.DispelType(ec.eff.MiscValue), max(ec.points, 1), ec.caster.IsHostileTo(ec.target))
	if len(removed) > 0 {
		ec.a.ctl.logger.Debug("dispelled",
			zap.Uint64("target", ec.target.GUID()),
			zap.Uint32s("spells", removed),
		)
	}
}

func effectTriggerSpell(ec *effectContext) {
	entry, ok := ec.a.m.Spells().Get(ec.eff.TriggerSpell)
	if !ok {
		ec.a.ctl.logger.Warn("trigger spell not found",
			zap.Uint32("spell", ec.a.entry.ID),
			zap.Uint32("trigger", ec.eff.TriggerSpell),
		)
		return
	}
	ec.a.ctl.CastProc(entry, ec.target.GUID())
}

func effectInterruptCast(ec *effectContext) {
	tc, ok := ControllerOf(ec.target)
	if !ok {
		return
	}
	cur := tc.Current()
	if cur == nil {
		return
	}
	tc.StopCast()
	if cur.Ended() && ec.points > 0 {
		ec.target.Cooldowns().AddSpell(cur.Spell().ID, ec.target.Now()+int64(ec.points))
	}
}

func effectScript(ec *effectContext) {
	h := ec.a.ctl.engine.scripts
	if h == nil {
		return
	}
	h.ScriptEffect(ScriptCall{
		SpellID:     ec.a.entry.ID,
		EffectIndex: ec.index,
		Caster:      ec.caster.GUID(),
		Target:      ec.target.GUID(),
		Points:      ec.points,
	})
}
