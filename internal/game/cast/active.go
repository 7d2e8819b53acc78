package cast

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/combat"
	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// pushbackMs is how far one damage pushback delays a cast in progress.
const pushbackMs = 500

// Phase is the stage an Active cast is in.
type Phase int

const (
	PhasePreparing Phase = iota
	PhaseResolving
	PhaseChanneling
	PhaseTraveling
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhasePreparing:
		return "preparing"
	case PhaseResolving:
		return "resolving"
	case PhaseChanneling:
		return "channeling"
	case PhaseTraveling:
		return "traveling"
	case PhaseFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Active is the state of a unit with a cast in progress.
//
// Invariant: once live is false no callback of this state mutates anything.
type Active struct {
	ctl      *Controller
	m        unit.Map
	entry    *spell.Entry
	targets  targetmap.SpellTargetMap
	isProc   bool
	itemGUID uint64
	casting  *Casting

	// target is the resolved unit target, 0 when the spell needs none.
	target     uint64
	castTimeMs int64
	castEnd    int64
	phase      Phase
	live       bool
	timer      *scheduler.Countdown

	powerCost       int
	cooldownApplied bool
	projectile      *Projectile
	channelAuras    []*unit.AuraContainer
	outcomes        map[uint64]combat.Outcome
}

func newActive(c *Controller, entry *spell.Entry, targets targetmap.SpellTargetMap, castTimeMs int64, isProc bool, itemGUID uint64) *Active {
	m := c.unit.Map()
	return &Active{
		ctl:        c,
		m:          m,
		entry:      entry,
		targets:    targets,
		isProc:     isProc,
		itemGUID:   itemGUID,
		casting:    newCasting(entry, c.unit.GUID(), targets, isProc),
		castTimeMs: castTimeMs,
		timer:      scheduler.NewCountdown(m.Queue()),
		outcomes:   make(map[uint64]combat.Outcome),
	}
}

func (a *Active) Spell() *spell.Entry               { return a.entry }
func (a *Active) Targets() targetmap.SpellTargetMap { return a.targets }
func (a *Active) Target() uint64                    { return a.target }
func (a *Active) CastTimeMs() int64                 { return a.castTimeMs }
func (a *Active) CastEnd() int64                    { return a.castEnd }
func (a *Active) Phase() Phase                      { return a.phase }
func (a *Active) Casting() *Casting                 { return a.casting }
func (a *Active) IsChannel() bool                   { return a.phase == PhaseChanneling }

// Projectile returns the missile in flight, nil outside the traveling phase.
func (a *Active) Projectile() *Projectile { return a.projectile }

func (a *Active) enter(*Controller) Result {
	a.live = true
	now := a.m.Queue().Now()
	a.casting.startedAt = now
	a.ctl.engine.notifyStarted(a.casting)

	if res := a.checkCast(true); res != Success {
		a.fail(res)
		return res
	}
	a.broadcast(packet.OpSpellStart, packet.SpellStart{
		Caster:     a.ctl.unit.GUID(),
		SpellID:    a.entry.ID,
		CastTimeMs: uint32(max(a.castTimeMs, 0)),
		Targets:    a.targets,
	}.Marshal())

	if a.castTimeMs <= 0 {
		return a.cast()
	}
	a.castEnd = now + a.castTimeMs
	a.timer.Set(a.castEnd, a.onCastTimer)
	return Success
}

func (a *Active) onCastTimer() {
	if !a.live || a.phase != PhasePreparing {
		return
	}
	a.cast()
}

// checkCast validates the cast. strict is set for the initial check; the
// re-check at cast time skips facing and environment restrictions.
func (a *Active) checkCast(strict bool) Result {
	caster := a.ctl.unit
	e := a.entry
	if caster.Map() == nil {
		return Error
	}
	if !caster.IsAlive() && !e.Has(spell.AttrCastableWhileDead) {
		return CasterDead
	}
	if strict {
		if res := a.checkCaster(); res != Success {
			return res
		}
	}
	if res := a.checkTarget(strict); res != Success {
		return res
	}
	if strict && e.FocusObject != 0 &&
		!a.m.HasFocusObject(e.FocusObject, caster.Position(), a.ctl.engine.cfg.FocusRadius) {
		return RequiresSpellFocus
	}
	return a.checkResources()
}

func (a *Active) checkCaster() Result {
	caster := a.ctl.unit
	e := a.entry
	switch {
	case !a.isProc && caster.IsSilenced() && e.School != spell.SchoolPhysical:
		return Silenced
	case !a.isProc && a.itemGUID == 0 && !caster.KnowsSpell(e.ID):
		return NotKnown
	case e.Has(spell.AttrNotInCombat) && caster.InCombat():
		return AffectingCombat
	case e.Has(spell.AttrOnlyStealthed) && !caster.IsStealthed():
		return OnlyStealthed
	case e.Has(spell.AttrOnlyDaytime) && !a.m.IsDaytime():
		return OnlyDaytime
	case e.Has(spell.AttrOnlyNighttime) && a.m.IsDaytime():
		return OnlyNighttime
	case e.Has(spell.AttrOnlyIndoors) && !a.m.IsIndoors(caster.Position()):
		return OnlyIndoors
	case e.Has(spell.AttrOnlyOutdoors) && a.m.IsIndoors(caster.Position()):
		return OnlyOutdoors
	case a.castTimeMs > 0 && caster.IsMoving() && e.InterruptFlags&spell.InterruptMovement != 0:
		return Moving
	}
	return Success
}

func (a *Active) checkTarget(strict bool) Result {
	caster := a.ctl.unit
	e := a.entry
	req := e.UnitTargetRequirement()
	if req == spell.NeedsNoUnit {
		return Success
	}
	guid := a.targets.UnitTarget()
	if guid == 0 {
		if req == spell.NeedsFriendly || (req == spell.NeedsAnyUnit && e.IsPositive()) {
			guid = caster.GUID()
		} else {
			return BadTargets
		}
	}
	target, ok := a.m.FindUnit(guid)
	if !ok {
		return BadTargets
	}
	a.target = guid
	if target == caster {
		if req == spell.NeedsHostile {
			return TargetFriendly
		}
		return Success
	}
	switch {
	case req == spell.NeedsHostile && !caster.IsHostileTo(target):
		return TargetFriendly
	case req == spell.NeedsFriendly && caster.IsHostileTo(target):
		return TargetEnemy
	case !target.IsAlive() && !e.Has(spell.AttrCanTargetDead):
		return TargetsDead
	case strict && caster.IsHostileTo(target) && !e.Has(spell.AttrNoFacing) && !caster.HasInArc(target):
		return UnitNotInfront
	}
	if rng, ok := a.m.Spells().Range(e.RangeID); ok {
		d := caster.Distance(target)
		if d > rng.Max || d < rng.Min {
			return OutOfRange
		}
	}
	return Success
}

func (a *Active) checkResources() Result {
	caster := a.ctl.unit
	e := a.entry
	if !a.isProc {
		a.powerCost = a.ctl.PowerCost(e)
		if a.powerCost > 0 {
			if e.PowerType == spell.PowerHealth {
				if caster.Health() <= a.powerCost {
					return NoPower
				}
			} else if caster.Power(e.PowerType) < a.powerCost {
				return NoPower
			}
		}
		for _, r := range e.Reagents {
			if caster.ItemCount(r.Item) < r.Count {
				return Reagents
			}
		}
	}
	if a.itemGUID != 0 {
		if _, ok := caster.Item(a.itemGUID); !ok {
			return ItemNotFound
		}
	}
	return Success
}

// cast resolves the cast once its cast time has elapsed.
func (a *Active) cast() Result {
	a.phase = PhaseResolving
	if res := a.checkCast(false); res != Success {
		a.fail(res)
		return res
	}
	if res := a.takeResources(); res != Success {
		a.fail(res)
		return res
	}
	a.applyCooldown()

	caster := a.ctl.unit
	hit := a.target
	if hit == 0 {
		hit = caster.GUID()
	}
	a.broadcast(packet.OpSpellGo, packet.SpellGo{
		Caster:  caster.GUID(),
		SpellID: a.entry.ID,
		Hits:    []uint64{hit},
		Targets: a.targets,
	}.Marshal())

	switch {
	case a.entry.IsChanneled():
		a.phase = PhaseChanneling
		a.applyEffects()
		if !a.live || a.phase != PhaseChanneling {
			return Success
		}
		if a.entry.DurationMs > 0 {
			a.timer.SetIn(a.entry.DurationMs, a.finishChannel)
		}
	case a.entry.Speed > 0 && a.target != 0 && a.target != caster.GUID():
		a.launch()
	default:
		a.applyEffects()
		a.finish(true, Success)
	}
	return Success
}

func (a *Active) takeResources() Result {
	caster := a.ctl.unit
	e := a.entry
	if !a.isProc {
		if a.powerCost > 0 {
			caster.ModifyPower(e.PowerType, -a.powerCost)
		}
		for _, r := range e.Reagents {
			if !caster.ConsumeItems(r.Item, r.Count) {
				return Reagents
			}
		}
	}
	if a.itemGUID != 0 && e.Has(spell.AttrConsumesCastItem) {
		if !caster.ConsumeItem(a.itemGUID) {
			return ItemNotFound
		}
	}
	return Success
}

func (a *Active) applyCooldown() {
	if a.cooldownApplied || a.isProc {
		return
	}
	a.cooldownApplied = true
	a.ctl.unit.Cooldowns().Start(a.entry, a.m.Queue().Now())
}

// finish ends the cast once; later calls are ignored.
func (a *Active) finish(success bool, res Result) {
	if !a.live {
		return
	}
	a.live = false
	a.phase = PhaseFinished
	a.timer.Cancel()
	a.projectile = nil
	a.ctl.release(a)

	if !success {
		a.broadcast(packet.OpSpellFailure, packet.SpellFailure{
			Caster:  a.ctl.unit.GUID(),
			SpellID: a.entry.ID,
			Result:  uint8(res),
		}.Marshal())
		a.ctl.logger.Debug("cast failed",
			zap.Uint32("spell", a.entry.ID),
			zap.Stringer("result", res),
		)
	}
	if a.casting.end(success, res) {
		a.ctl.engine.notifyEnded(a.casting, success)
	}
}

func (a *Active) fail(res Result) { a.finish(false, res) }

func (a *Active) interrupt() {
	if !a.live {
		return
	}
	if ms := a.entry.InterruptCooldownMs; ms > 0 {
		a.ctl.unit.Cooldowns().AddSpell(a.entry.ID, a.m.Queue().Now()+ms)
	}
	a.fail(Interrupted)
}

func (a *Active) pushback() {
	now := a.m.Queue().Now()
	a.castEnd = min(a.castEnd+pushbackMs, now+a.castTimeMs)
	a.timer.Set(a.castEnd, a.onCastTimer)
}

// finishChannel ends a channel in progress with success, removing the
// auras it placed when the spell ties them to the channel.
func (a *Active) finishChannel() {
	if !a.live || a.phase != PhaseChanneling {
		return
	}
	if a.entry.Has(spell.AttrChannelAurasEndWithChannel) {
		for _, c := range a.channelAuras {
			if c.IsRemoved() {
				continue
			}
			if owner, ok := a.m.FindUnit(c.Owner()); ok {
				owner.RemoveAura(c, unit.RemoveCancel)
			}
		}
	}
	a.channelAuras = nil
	a.finish(true, Success)
}

// forceEnd ends the cast so that another may replace it.
func (a *Active) forceEnd() {
	switch a.phase {
	case PhasePreparing:
		a.interrupt()
	case PhaseChanneling:
		a.finishChannel()
	}
}

func (a *Active) broadcast(op packet.Opcode, payload []byte) {
	a.m.Broadcast(a.ctl.unit.Position(), op, payload)
}
