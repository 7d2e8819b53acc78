package unit

import (
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
)

// ApplyAura attaches c to the unit and applies it. An existing container of
// the same spell from the same caster is replaced. Passive auras take no slot.
//
// Precondition: c.Owner() must be this unit's GUID.
// Postcondition: Returns true when c is attached and applied.
func (u *Unit) ApplyAura(c *AuraContainer) bool {
	if c == nil || c.removed || len(c.effects) == 0 || c.spec.Owner != u.guid {
		return false
	}
	if !u.alive && !c.spec.Entry.Has(spell.AttrCanTargetDead) {
		return false
	}
	if slices.Contains(u.auras, c) {
		return false
	}
	for _, old := range u.collectAuras(func(a *AuraContainer) bool {
		return a.SpellID() == c.SpellID() && a.spec.Caster == c.spec.Caster
	}) {
		u.RemoveAura(old, RemoveDefault)
	}
	if !c.spec.Entry.Has(spell.AttrPassive) {
		c.slot = u.freeSlot()
		if c.slot >= 0 {
			u.slots[c.slot] = c
		}
	}
	u.auras = append(u.auras, c)
	c.setApplied(u, true, true)
	u.logger.Debug("aura applied",
		zap.Uint32("spell", c.SpellID()),
		zap.Stringer("aura", c.id),
		zap.Uint64("caster", c.spec.Caster),
		zap.Int("slot", c.slot),
		zap.Int64("duration_ms", c.spec.DurationMs),
	)
	return true
}

// RemoveAura unapplies c, cancels all its timers, frees its slot and tells
// observers the slot is clear.
//
// Postcondition: Returns false when c was not attached to the unit.
func (u *Unit) RemoveAura(c *AuraContainer, mode RemoveMode) bool {
	idx := slices.Index(u.auras, c)
	if idx < 0 {
		return false
	}
	u.auras = slices.Delete(u.auras, idx, idx+1)
	c.setApplied(u, false, false)
	c.removed = true
	c.disarm()
	if c.slot >= 0 {
		u.slots[c.slot] = nil
		u.sendSlotCleared(c.slot)
	}
	u.logger.Debug("aura removed",
		zap.Uint32("spell", c.SpellID()),
		zap.Stringer("aura", c.id),
		zap.Stringer("mode", mode),
	)
	return true
}

// RemoveAurasBySpell removes every container of spellID, limited to caster when non-zero.
func (u *Unit) RemoveAurasBySpell(spellID uint32, caster uint64, mode RemoveMode) int {
	return u.removeWhere(mode, func(c *AuraContainer) bool {
		return c.SpellID() == spellID && (caster == 0 || c.spec.Caster == caster)
	})
}

// RemoveAllAurasFromCaster removes every container caster placed on the unit.
func (u *Unit) RemoveAllAurasFromCaster(caster uint64) int {
	return u.removeWhere(RemoveDefault, func(c *AuraContainer) bool {
		return c.spec.Caster == caster
	})
}

// RemoveAllAurasDueToItem removes every container granted by the item with guid.
func (u *Unit) RemoveAllAurasDueToItem(item uint64) int {
	if item == 0 {
		return 0
	}
	return u.removeWhere(RemoveDefault, func(c *AuraContainer) bool {
		return c.spec.CastItem == item
	})
}

// RemoveAllAuras removes everything, as on despawn.
func (u *Unit) RemoveAllAuras() int {
	return u.removeWhere(RemoveDefault, func(*AuraContainer) bool { return true })
}

func (u *Unit) removeAurasOnDeath() {
	u.removeWhere(RemoveDeath, func(c *AuraContainer) bool {
		return !c.spec.Entry.Has(spell.AttrPassive) && !c.spec.Entry.Has(spell.AttrPersistThroughDeath)
	})
}

// RemoveAurasByDispel removes up to count containers of dispel type d, oldest
// first. positive selects beneficial auras, otherwise harmful ones.
//
// Postcondition: Returns the spell ids removed, in removal order.
func (u *Unit) RemoveAurasByDispel(d spell.DispelType, count int, positive bool) []uint32 {
	if d == spell.DispelNone || count <= 0 {
		return nil
	}
	var removed []uint32
	for _, c := range u.collectAuras(func(c *AuraContainer) bool {
		e := c.spec.Entry
		return e.Dispel == d && e.IsPositive() == positive && !e.Has(spell.AttrPassive)
	}) {
		if len(removed) == count {
			break
		}
		if u.RemoveAura(c, RemoveDispel) {
			removed = append(removed, c.SpellID())
		}
	}
	return removed
}

func (u *Unit) removeWhere(mode RemoveMode, match func(*AuraContainer) bool) int {
	n := 0
	for _, c := range u.collectAuras(match) {
		if u.RemoveAura(c, mode) {
			n++
		}
	}
	return n
}

// collectAuras snapshots matching containers so callers may remove while iterating.
func (u *Unit) collectAuras(match func(*AuraContainer) bool) []*AuraContainer {
	var out []*AuraContainer
	for _, c := range u.auras {
		if match(c) {
			out = append(out, c)
		}
	}
	return out
}

// Auras returns the attached containers in application order.
func (u *Unit) Auras() []*AuraContainer {
	return slices.Clone(u.auras)
}

// AuraInSlot returns the container occupying slot, or nil.
func (u *Unit) AuraInSlot(slot int) *AuraContainer {
	if slot < 0 || slot >= MaxAuraSlots {
		return nil
	}
	return u.slots[slot]
}

// HasAura reports whether an applied container of spellID is attached.
func (u *Unit) HasAura(spellID uint32) bool {
	for _, c := range u.auras {
		if c.applied && c.SpellID() == spellID {
			return true
		}
	}
	return false
}

// HasAuraEffect reports whether effect effIndex of spellID is active on the unit.
func (u *Unit) HasAuraEffect(spellID uint32, effIndex int) bool {
	for _, c := range u.auras {
		if !c.applied || c.SpellID() != spellID {
			continue
		}
		for _, e := range c.effects {
			if e.index == effIndex {
				return true
			}
		}
	}
	return false
}

// HasAuraType reports whether any active effect has aura type t.
func (u *Unit) HasAuraType(t spell.AuraType) bool {
	found := false
	u.forEachAuraEffect(t, func(*AuraEffect) { found = true })
	return found
}

// TotalAuraModifier sums the points of every active effect of type t.
func (u *Unit) TotalAuraModifier(t spell.AuraType) int {
	total := 0
	u.forEachAuraEffect(t, func(e *AuraEffect) { total += e.points })
	return total
}

// TotalAuraMultiplier multiplies (100 + points) / 100 across every active effect of type t.
//
// Postcondition: Returns 1 when no effect of type t is active.
func (u *Unit) TotalAuraMultiplier(t spell.AuraType) float64 {
	m := 1.0
	u.forEachAuraEffect(t, func(e *AuraEffect) { m *= float64(100+e.points) / 100 })
	return m
}

// MaxPositiveAuraModifier returns the largest positive points of type t, or 0.
func (u *Unit) MaxPositiveAuraModifier(t spell.AuraType) int {
	best := 0
	u.forEachAuraEffect(t, func(e *AuraEffect) {
		if e.points > best {
			best = e.points
		}
	})
	return best
}

// MinNegativeAuraModifier returns the most negative points of type t, or 0.
func (u *Unit) MinNegativeAuraModifier(t spell.AuraType) int {
	worst := 0
	u.forEachAuraEffect(t, func(e *AuraEffect) {
		if e.points < worst {
			worst = e.points
		}
	})
	return worst
}

func (u *Unit) forEachAuraEffect(t spell.AuraType, fn func(*AuraEffect)) {
	for _, c := range u.auras {
		if !c.applied {
			continue
		}
		for _, e := range c.effects {
			if e.auraType == t {
				fn(e)
			}
		}
	}
}

// recomputeCapabilities refreshes the aura-derived flags. Becoming stunned or
// silenced interrupts the current cast; stuns and roots stop movement.
func (u *Unit) recomputeCapabilities() {
	prev := u.caps
	u.caps = capabilities{
		stunned:   u.HasAuraType(spell.AuraModStun),
		rooted:    u.HasAuraType(spell.AuraModRoot),
		silenced:  u.HasAuraType(spell.AuraModSilence),
		pacified:  u.HasAuraType(spell.AuraModPacify),
		disarmed:  u.HasAuraType(spell.AuraModDisarm),
		stealthed: u.HasAuraType(spell.AuraModStealth),
	}
	if u.caps.stunned || u.caps.rooted {
		u.moving = false
	}
	if u.cast == nil {
		return
	}
	if (u.caps.stunned && !prev.stunned) || (u.caps.silenced && !prev.silenced) {
		u.cast.Interrupt()
	}
}

func (u *Unit) freeSlot() int {
	for i, c := range u.slots {
		if c == nil {
			return i
		}
	}
	return -1
}

func (u *Unit) auraSlotState(c *AuraContainer) packet.AuraSlot {
	s := packet.AuraSlot{
		Slot:    uint8(c.slot),
		SpellID: c.SpellID(),
		Level:   uint8(clampInt(c.spec.CasterLevel, 0, 255)),
		Stacks:  1,
		Caster:  c.spec.Caster,
	}
	if c.spec.Entry.IsPositive() {
		s.Flags |= packet.AuraFlagPositive
	} else {
		s.Flags |= packet.AuraFlagNegative
	}
	if c.spec.Caster == u.guid {
		s.Flags |= packet.AuraFlagNotCaster
		s.Caster = 0
	}
	if c.spec.DurationMs > 0 {
		s.Flags |= packet.AuraFlagDuration
		s.MaxDuration = int32(c.spec.DurationMs)
		s.Remaining = int32(c.Remaining(u.Now()))
	}
	return s
}

func (u *Unit) sendAuraUpdate(c *AuraContainer) {
	if u.m == nil || c.slot < 0 {
		return
	}
	var slot packet.AuraSlot
	if c.applied {
		slot = u.auraSlotState(c)
	} else {
		slot = packet.AuraSlot{Slot: uint8(c.slot)}
	}
	u.broadcastAuras(slot)
}

func (u *Unit) sendSlotCleared(slot int) {
	if u.m == nil {
		return
	}
	u.broadcastAuras(packet.AuraSlot{Slot: uint8(slot)})
}

func (u *Unit) broadcastAuras(slots ...packet.AuraSlot) {
	p := packet.AuraUpdate{Owner: u.guid, Slots: slots}
	u.m.Broadcast(u.pos, packet.OpAuraUpdate, p.Marshal())
}

// AuraSlots returns the visible state of every occupied slot.
func (u *Unit) AuraSlots() packet.AuraUpdate {
	p := packet.AuraUpdate{Owner: u.guid}
	for _, c := range u.slots {
		if c != nil && c.applied {
			p.Slots = append(p.Slots, u.auraSlotState(c))
		}
	}
	return p
}
