package cast

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// State is the cast state of one unit: Idle or *Active.
type State interface {
	// enter runs when the state becomes current and returns the transition's result.
	enter(c *Controller) Result
}

// Idle is the state of a unit that is not casting.
type Idle struct{}

func (Idle) enter(*Controller) Result { return Success }

// Controller owns the cast state of one unit and routes the unit-facing
// cast operations to it. Procs and projectiles in flight resolve outside
// the current state so they never block or replace it.
type Controller struct {
	engine *Engine
	unit   *unit.Unit
	logger *zap.Logger

	state    State
	detached []*Active
}

// Unit returns the controlled unit.
func (c *Controller) Unit() *unit.Unit { return c.unit }

// State returns the current cast state.
func (c *Controller) State() State { return c.state }

// IsCasting reports whether the current state is Active.
func (c *Controller) IsCasting() bool {
	_, ok := c.state.(*Active)
	return ok
}

// Current returns the handle of the active cast, or nil when idle.
func (c *Controller) Current() *Casting {
	if a, ok := c.state.(*Active); ok {
		return a.casting
	}
	return nil
}

// InFlight returns the number of procs and projectiles still resolving.
func (c *Controller) InFlight() int { return len(c.detached) }

// SetState replaces the current state and runs its entry hook.
//
// Precondition: s must not be nil.
func (c *Controller) SetState(s State) Result {
	if s == nil {
		panic("cast: SetState called with nil state")
	}
	c.state = s
	return s.enter(c)
}

// StartCast begins casting entry at targets. castTimeMs < 0 uses the entry's
// cast time after the unit's modifiers. Proc casts never touch the current
// state. An Active cast is only replaced when WithReplace is given; otherwise
// the result is SpellInProgress with the existing handle.
//
// Postcondition: Returns a handle whenever the attempt reached a cast state.
func (c *Controller) StartCast(entry *spell.Entry, targets targetmap.SpellTargetMap, castTimeMs int64, isProc bool, itemGUID uint64, opts ...Option) (Result, *Casting) {
	var o startOptions
	for _, opt := range opts {
		opt(&o)
	}
	if entry == nil || c.unit.Map() == nil {
		c.logger.Warn("cast without world context")
		return Error, nil
	}
	if !c.unit.Cooldowns().IsReady(entry, c.unit.Now()) {
		c.logger.Debug("cast failed",
			zap.Uint32("spell", entry.ID),
			zap.Stringer("result", NotReady),
		)
		return NotReady, nil
	}
	if castTimeMs < 0 {
		castTimeMs = c.CastTime(entry)
	}
	a := newActive(c, entry, targets, castTimeMs, isProc, itemGUID)
	if isProc {
		c.detached = append(c.detached, a)
		return a.enter(c), a.casting
	}
	// Ending the current cast runs its callbacks, which may start another
	// cast; keep ending until the controller is idle.
	for {
		cur, ok := c.state.(*Active)
		if !ok {
			break
		}
		if !o.replace {
			return SpellInProgress, cur.casting
		}
		cur.forceEnd()
		if c.state == State(cur) {
			return SpellInProgress, cur.casting
		}
	}
	return c.SetState(a), a.casting
}

// StopCast cancels the current cast. A cast in its cast time fails with
// Interrupted; a channel finishes. Projectiles already in flight are unaffected.
func (c *Controller) StopCast() {
	a, ok := c.state.(*Active)
	if !ok {
		return
	}
	switch a.phase {
	case PhasePreparing:
		a.interrupt()
	case PhaseChanneling:
		a.finishChannel()
	}
}

// FinishChanneling ends a channel in progress with success.
func (c *Controller) FinishChanneling() {
	if a, ok := c.state.(*Active); ok {
		a.finishChannel()
	}
}

// OnUserStartsMoving fails a movement-interruptible cast and finishes a
// movement-interruptible channel.
func (c *Controller) OnUserStartsMoving() {
	a, ok := c.state.(*Active)
	if !ok {
		return
	}
	switch a.phase {
	case PhasePreparing:
		if a.entry.InterruptFlags&spell.InterruptMovement != 0 {
			a.fail(Moving)
		}
	case PhaseChanneling:
		if a.entry.ChannelInterruptFlags&spell.InterruptMovement != 0 {
			a.finishChannel()
		}
	}
}

// OnDamageTaken applies damage interrupts and pushback to the current cast.
func (c *Controller) OnDamageTaken() {
	a, ok := c.state.(*Active)
	if !ok {
		return
	}
	switch a.phase {
	case PhasePreparing:
		switch {
		case a.entry.InterruptFlags&spell.InterruptDamage != 0:
			a.interrupt()
		case a.entry.InterruptFlags&spell.InterruptPushback != 0:
			a.pushback()
		}
	case PhaseChanneling:
		if a.entry.ChannelInterruptFlags&spell.InterruptDamage != 0 {
			a.finishChannel()
		}
	}
}

// Interrupt stops the current cast, as on death, stun, or silence.
func (c *Controller) Interrupt() { c.StopCast() }

// OnDeath fails a cast in its cast time with CasterDead and finishes a
// channel. Unlike Interrupt it never applies the interrupt cooldown.
func (c *Controller) OnDeath() {
	a, ok := c.state.(*Active)
	if !ok {
		return
	}
	switch a.phase {
	case PhasePreparing:
		a.fail(CasterDead)
	case PhaseChanneling:
		a.finishChannel()
	}
}

// CastProc casts entry at target as a proc.
func (c *Controller) CastProc(entry *spell.Entry, target uint64) {
	var tm targetmap.SpellTargetMap
	if target != 0 {
		tm.SetUnitTarget(target)
	}
	if res, _ := c.StartCast(entry, tm, 0, true, 0); res != Success {
		c.logger.Debug("proc failed",
			zap.Uint32("spell", entry.ID),
			zap.Stringer("result", res),
		)
	}
}

// PowerCost returns what casting entry costs the unit:
// (cost + flat mod) * (100 + pct mod) / 100 plus PowerCostPct of max power.
//
// Postcondition: Returns >= 0.
func (c *Controller) PowerCost(entry *spell.Entry) int {
	if entry.PowerCost == 0 && entry.PowerCostPct == 0 {
		return 0
	}
	cost := c.unit.Modifiers().Apply(spell.ModPowerCost, int64(entry.PowerCost))
	if entry.PowerCostPct > 0 {
		cost += int64(entry.PowerCostPct) * int64(c.unit.MaxPower(entry.PowerType)) / 100
	}
	return int(cost)
}

// CastTime returns entry's cast time after the unit's CastTime modifiers.
func (c *Controller) CastTime(entry *spell.Entry) int64 {
	if entry.CastTimeMs <= 0 {
		return 0
	}
	return c.unit.Modifiers().Apply(spell.ModCastTime, entry.CastTimeMs)
}

// release drops a finished cast from wherever the controller holds it.
func (c *Controller) release(a *Active) {
	if c.state == State(a) {
		c.SetState(Idle{})
		return
	}
	if i := slices.Index(c.detached, a); i >= 0 {
		c.detached = slices.Delete(c.detached, i, i+1)
	}
}

// detach moves the current cast out of the state so the unit may cast again
// while it resolves.
func (c *Controller) detach(a *Active) {
	if c.state == State(a) {
		c.state = Idle{}
		c.detached = append(c.detached, a)
	}
}

var _ unit.CastControl = (*Controller)(nil)
