package unit

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
)

// MaxAuraSlots is the number of visible aura slots per unit.
const MaxAuraSlots = 56

// RemoveMode says why an aura left its owner.
type RemoveMode int

const (
	RemoveDefault RemoveMode = iota
	RemoveExpire
	RemoveCancel
	RemoveDispel
	RemoveDeath
	RemoveInterrupt
)

func (m RemoveMode) String() string {
	switch m {
	case RemoveDefault:
		return "default"
	case RemoveExpire:
		return "expire"
	case RemoveCancel:
		return "cancel"
	case RemoveDispel:
		return "dispel"
	case RemoveDeath:
		return "death"
	case RemoveInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("remove_mode(%d)", int(m))
	}
}

// AuraSpec describes a container before any effect is added.
type AuraSpec struct {
	Entry    *spell.Entry
	Owner    uint64
	Caster   uint64
	CastItem uint64
	// DurationMs of 0 means the aura never expires on its own.
	DurationMs  int64
	CasterLevel int
}

// AuraContainer groups every ApplyAura effect one cast placed on one unit.
// The owner is held by GUID and resolved through the map before each
// mutation, so a container outliving its owner degrades to a no-op.
type AuraContainer struct {
	id   uuid.UUID
	m    Map
	spec AuraSpec

	applied   bool
	removed   bool
	started   bool
	appliedAt int64
	expiresAt int64
	slot      int

	effects []*AuraEffect
	expiry  *scheduler.Countdown
}

// NewAuraContainer creates an empty, unapplied container.
//
// Precondition: m and spec.Entry must be non-nil.
func NewAuraContainer(m Map, spec AuraSpec) *AuraContainer {
	if spec.DurationMs < 0 {
		spec.DurationMs = 0
	}
	return &AuraContainer{
		id:     uuid.New(),
		m:      m,
		spec:   spec,
		slot:   -1,
		expiry: scheduler.NewCountdown(m.Queue()),
	}
}

func (c *AuraContainer) ID() uuid.UUID          { return c.id }
func (c *AuraContainer) Entry() *spell.Entry    { return c.spec.Entry }
func (c *AuraContainer) SpellID() uint32        { return c.spec.Entry.ID }
func (c *AuraContainer) Owner() uint64          { return c.spec.Owner }
func (c *AuraContainer) Caster() uint64         { return c.spec.Caster }
func (c *AuraContainer) CastItem() uint64       { return c.spec.CastItem }
func (c *AuraContainer) DurationMs() int64      { return c.spec.DurationMs }
func (c *AuraContainer) IsApplied() bool        { return c.applied }
func (c *AuraContainer) IsRemoved() bool        { return c.removed }
func (c *AuraContainer) Slot() int              { return c.slot }
func (c *AuraContainer) Effects() []*AuraEffect { return c.effects }

// ExpiresAt returns the absolute expiry time, or 0 for permanent or never-applied containers.
func (c *AuraContainer) ExpiresAt() int64 { return c.expiresAt }

// Remaining returns the milliseconds left before expiry at now, or 0.
func (c *AuraContainer) Remaining(now int64) int64 {
	if c.expiresAt == 0 || c.expiresAt <= now {
		return 0
	}
	return c.expiresAt - now
}

// AddAuraEffect appends one effect. Periodic effects compute their tick interval
// and total tick count here. Adding to an applied container applies the effect at once.
//
// Precondition: eff must be an ApplyAura effect; periodic auras need AmplitudeMs > 0.
// Postcondition: Returns the appended effect.
func (c *AuraContainer) AddAuraEffect(index int, eff *spell.Effect, points int) *AuraEffect {
	e := &AuraEffect{
		container:    c,
		index:        index,
		auraType:     eff.Aura,
		points:       points,
		miscValue:    eff.MiscValue,
		triggerSpell: eff.TriggerSpell,
	}
	if eff.Aura.IsPeriodic() {
		if eff.AmplitudeMs <= 0 {
			panic("unit: periodic aura effect with non-positive amplitude")
		}
		e.periodic = true
		e.amplitudeMs = eff.AmplitudeMs
		if c.spec.DurationMs > 0 {
			e.totalTicks = int(c.spec.DurationMs / eff.AmplitudeMs)
		}
		e.tick = scheduler.NewCountdown(c.m.Queue())
	}
	c.effects = append(c.effects, e)
	if c.applied {
		if owner, ok := c.resolveOwner(); ok {
			e.handle(owner, true)
			owner.recomputeCapabilities()
			e.arm(c.m.Queue().Now())
		}
	}
	return e
}

// SetApplied toggles the container between active and inactive. Only a real
// transition runs the per-effect apply or unapply and recomputes the owner's
// capability flags; repeating the current value is a no-op. When notify is
// set the owner's observers receive an aura update.
func (c *AuraContainer) SetApplied(apply, notify bool) {
	owner, ok := c.resolveOwner()
	if !ok {
		return
	}
	c.setApplied(owner, apply, notify)
}

func (c *AuraContainer) setApplied(owner *Unit, apply, notify bool) {
	if c.applied == apply {
		return
	}
	if apply && (c.removed || len(c.effects) == 0) {
		return
	}
	c.applied = apply
	for _, e := range c.effects {
		e.handle(owner, apply)
	}
	owner.recomputeCapabilities()
	if apply {
		c.arm()
	} else {
		c.disarm()
	}
	if notify {
		owner.sendAuraUpdate(c)
	}
}

func (c *AuraContainer) resolveOwner() (*Unit, bool) {
	if c.m == nil {
		return nil, false
	}
	u, ok := c.m.FindUnit(c.spec.Owner)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func (c *AuraContainer) arm() {
	now := c.m.Queue().Now()
	if !c.started {
		c.started = true
		c.appliedAt = now
		if c.spec.DurationMs > 0 {
			c.expiresAt = now + c.spec.DurationMs
		}
	}
	if c.spec.DurationMs > 0 {
		c.expiry.Set(c.expiresAt, c.expire)
	}
	for _, e := range c.effects {
		e.arm(now)
	}
}

func (c *AuraContainer) disarm() {
	c.expiry.Cancel()
	for _, e := range c.effects {
		if e.tick != nil {
			e.tick.Cancel()
		}
	}
}

// expire runs any tick due at the same instant before removing the container,
// so a duration that is a whole multiple of the amplitude yields every tick.
func (c *AuraContainer) expire() {
	if c.removed {
		return
	}
	now := c.m.Queue().Now()
	for _, e := range c.effects {
		if e.tick != nil && e.tick.Pending() && e.tick.Deadline() <= now {
			e.tick.Cancel()
			e.onTick()
		}
	}
	if c.removed {
		return
	}
	owner, ok := c.resolveOwner()
	if !ok {
		c.removed = true
		c.disarm()
		return
	}
	owner.RemoveAura(c, RemoveExpire)
}

// AuraEffect is one aura effect inside a container.
type AuraEffect struct {
	container    *AuraContainer
	index        int
	auraType     spell.AuraType
	points       int
	miscValue    int32
	triggerSpell uint32

	periodic    bool
	amplitudeMs int64
	totalTicks  int
	currentTick int
	tick        *scheduler.Countdown
}

func (e *AuraEffect) Container() *AuraContainer { return e.container }
func (e *AuraEffect) Index() int                { return e.index }
func (e *AuraEffect) AuraType() spell.AuraType  { return e.auraType }
func (e *AuraEffect) Points() int               { return e.points }
func (e *AuraEffect) MiscValue() int32          { return e.miscValue }
func (e *AuraEffect) IsPeriodic() bool          { return e.periodic }
func (e *AuraEffect) AmplitudeMs() int64        { return e.amplitudeMs }

// TotalTicks returns the number of ticks over the aura's duration, 0 when unbounded.
func (e *AuraEffect) TotalTicks() int { return e.totalTicks }

// CurrentTick returns how many ticks have run.
func (e *AuraEffect) CurrentTick() int { return e.currentTick }

// handle applies or reverts the effect's direct mutation of owner.
// Most aura types have none; they are read through the aggregate queries.
func (e *AuraEffect) handle(owner *Unit, apply bool) {
	switch e.auraType {
	case spell.AuraAddFlatModifier, spell.AuraAddPctModifier:
		v := e.points
		if !apply {
			v = -v
		}
		owner.mods.Add(spell.ModifierOp(e.miscValue), v, e.auraType == spell.AuraAddPctModifier)
	}
}

func (e *AuraEffect) arm(now int64) {
	if !e.periodic {
		return
	}
	if e.totalTicks > 0 && e.currentTick >= e.totalTicks {
		return
	}
	e.tick.Set(now+e.amplitudeMs, e.onTick)
}

func (e *AuraEffect) onTick() {
	c := e.container
	if c.removed || !c.applied {
		return
	}
	owner, ok := c.resolveOwner()
	if !ok {
		return
	}
	e.currentTick++
	// A dead owner skips the tick but keeps the schedule for auras that
	// survive death.
	if owner.IsAlive() {
		e.periodicTick(owner)
	}
	if c.removed || !c.applied {
		return
	}
	if e.totalTicks == 0 || e.currentTick < e.totalTicks {
		e.tick.Set(e.tick.Deadline()+e.amplitudeMs, e.onTick)
	}
}

func (e *AuraEffect) periodicTick(owner *Unit) {
	c := e.container
	switch e.auraType {
	case spell.AuraPeriodicDamage:
		owner.DealDamage(c.spec.Caster, e.points)
	case spell.AuraPeriodicHeal:
		owner.Heal(c.spec.Caster, e.points)
	case spell.AuraPeriodicEnergize:
		owner.ModifyPower(spell.PowerType(e.miscValue), e.points)
	case spell.AuraPeriodicTriggerSpell:
		trig, ok := c.m.Spells().Get(e.triggerSpell)
		if !ok {
			owner.logger.Warn("periodic trigger of unknown spell",
				zap.Uint32("spell", c.SpellID()),
				zap.Uint32("trigger", e.triggerSpell),
			)
			return
		}
		caster, ok := c.m.FindUnit(c.spec.Caster)
		if !ok || !caster.IsAlive() || caster.cast == nil {
			owner.logger.Debug("periodic trigger skipped, caster gone",
				zap.Uint32("spell", c.SpellID()),
				zap.Uint64("caster", c.spec.Caster),
			)
			return
		}
		caster.cast.CastProc(trig, owner.guid)
	}
	owner.logger.Debug("aura tick",
		zap.Uint32("spell", c.SpellID()),
		zap.Int("effect", e.index),
		zap.Stringer("aura", e.auraType),
		zap.Int("tick", e.currentTick),
		zap.Int("points", e.points),
	)
}
