package unit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

func TestApplyAura_EmptyContainerIsNeverActive(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	c := unit.NewAuraContainer(m, unit.AuraSpec{Entry: auraEntry(10, 0, 0), Owner: 1, Caster: 1})

	assert.False(t, u.ApplyAura(c))
	c.SetApplied(true, true)
	assert.False(t, c.IsApplied())
	assert.Empty(t, u.Auras())
}

func TestSetApplied_IsIdempotent(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	flat := auraEffect(spell.AuraAddFlatModifier, 20)
	flat.MiscValue = int32(spell.ModPowerCost)
	c := newAura(m, auraEntry(10, 0, 0, flat), 1, 1)

	require.True(t, u.ApplyAura(c))
	once := u.Modifiers().Flat(spell.ModPowerCost)
	c.SetApplied(true, true)
	c.SetApplied(true, false)
	assert.Equal(t, once, u.Modifiers().Flat(spell.ModPowerCost))
	assert.Equal(t, 20, once)

	c.SetApplied(false, false)
	c.SetApplied(false, false)
	assert.Equal(t, 0, u.Modifiers().Flat(spell.ModPowerCost))
	c.SetApplied(true, false)
	assert.Equal(t, 20, u.Modifiers().Flat(spell.ModPowerCost))
}

func TestSetApplied_Property_UnapplyRestoresModifiers(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		m := newTestMap()
		u := m.add(1, warrior(factionAlliance))
		n := rapid.IntRange(1, spell.MaxEffects).Draw(rt, "n")
		var effects []spell.Effect
		for i := 0; i < n; i++ {
			kind := rapid.SampledFrom([]spell.AuraType{spell.AuraAddFlatModifier, spell.AuraAddPctModifier}).Draw(rt, "type")
			e := auraEffect(kind, rapid.IntRange(-100, 100).Draw(rt, "points"))
			e.MiscValue = int32(rapid.IntRange(0, int(spell.ModifierOpCount)-1).Draw(rt, "op"))
			effects = append(effects, e)
		}
		before := *u.Modifiers()
		c := newAura(m, auraEntry(10, 0, 0, effects...), 1, 1)
		require.True(rt, u.ApplyAura(c))
		c.SetApplied(false, true)
		assert.Equal(rt, before, *u.Modifiers())
	})
}

func TestPeriodic_TicksExactlyDurationOverAmplitude(t *testing.T) {
	for _, tc := range []struct {
		name      string
		duration  int64
		amplitude int64
		ticks     int
	}{
		{"whole multiple", 10000, 2000, 5},
		{"remainder", 10000, 3000, 3},
		{"single", 1000, 1000, 1},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMap()
			u := m.add(1, warrior(factionAlliance))
			m.add(2, warrior(factionHorde))
			c := newAura(m, auraEntry(20, spell.AttrNegative, tc.duration, periodic(spell.AuraPeriodicDamage, 10, tc.amplitude)), 1, 2)
			require.True(t, u.ApplyAura(c))
			require.Equal(t, tc.ticks, c.Effects()[0].TotalTicks())

			for i := int64(0); i < tc.duration+5000; i += 250 {
				m.advance(250)
			}
			assert.Equal(t, tc.ticks, c.Effects()[0].CurrentTick())
			assert.Equal(t, 1000-10*tc.ticks, u.Health())
			assert.True(t, c.IsRemoved())
			assert.False(t, u.HasAura(20))
		})
	}
}

func TestExpiration(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	timed := newAura(m, auraEntry(30, 0, 5000, auraEffect(spell.AuraModSpeedPct, 30)), 1, 1)
	permanent := newAura(m, auraEntry(31, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	require.True(t, u.ApplyAura(timed))
	require.True(t, u.ApplyAura(permanent))
	assert.Equal(t, int64(5000), timed.ExpiresAt())

	m.advance(4999)
	assert.True(t, u.HasAura(30))
	m.advance(1)
	assert.False(t, u.HasAura(30))
	assert.True(t, timed.IsRemoved())

	m.advance(3_600_000)
	assert.True(t, u.HasAura(31))
	assert.Equal(t, int64(0), permanent.ExpiresAt())
}

func TestApplyAura_ReplacesSameSpellSameCaster(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	m.add(2, warrior(factionAlliance))
	entry := auraEntry(40, 0, 0, auraEffect(spell.AuraModDamageDone, 5))

	first := newAura(m, entry, 1, 2)
	second := newAura(m, entry, 1, 2)
	other := newAura(m, entry, 1, 1)
	require.True(t, u.ApplyAura(first))
	require.True(t, u.ApplyAura(second))
	require.True(t, u.ApplyAura(other))

	assert.True(t, first.IsRemoved())
	assert.Equal(t, []*unit.AuraContainer{second, other}, u.Auras())
	assert.Equal(t, 10, u.TotalAuraModifier(spell.AuraModDamageDone))
}

func TestAuraSlots_LowestFreeAndClearedOnRemove(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	a := newAura(m, auraEntry(50, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	b := newAura(m, auraEntry(51, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	passive := newAura(m, auraEntry(52, spell.AttrPassive, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	require.True(t, u.ApplyAura(a))
	require.True(t, u.ApplyAura(b))
	require.True(t, u.ApplyAura(passive))
	assert.Equal(t, 0, a.Slot())
	assert.Equal(t, 1, b.Slot())
	assert.Equal(t, -1, passive.Slot())

	require.True(t, u.RemoveAura(a, unit.RemoveCancel))
	updates := m.auraUpdates()
	last := updates[len(updates)-1]
	assert.Equal(t, []packet.AuraSlot{{Slot: 0}}, last.Slots)

	c := newAura(m, auraEntry(53, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	require.True(t, u.ApplyAura(c))
	assert.Equal(t, 0, c.Slot())
}

func TestAuraUpdate_Payload(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	m.add(2, warrior(factionHorde))
	c := newAura(m, auraEntry(60, spell.AttrNegative, 8000, auraEffect(spell.AuraModRoot, 0)), 1, 2)
	m.advance(1000)
	require.True(t, u.ApplyAura(c))

	updates := m.auraUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, uint64(1), updates[0].Owner)
	assert.Equal(t, []packet.AuraSlot{{
		Slot:        0,
		SpellID:     60,
		Flags:       packet.AuraFlagNegative | packet.AuraFlagDuration,
		Level:       10,
		Stacks:      1,
		Caster:      2,
		MaxDuration: 8000,
		Remaining:   8000,
	}}, updates[0].Slots)
}

func TestDeath_RemovesAllButPersistentAuras(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	normal := newAura(m, auraEntry(70, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	passive := newAura(m, auraEntry(71, spell.AttrPassive, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	persist := newAura(m, auraEntry(72, spell.AttrPersistThroughDeath, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 1)
	for _, c := range []*unit.AuraContainer{normal, passive, persist} {
		require.True(t, u.ApplyAura(c))
	}

	u.Kill(0)
	assert.False(t, u.IsAlive())
	assert.True(t, normal.IsRemoved())
	assert.Equal(t, []*unit.AuraContainer{passive, persist}, u.Auras())

	assert.Equal(t, 2, u.RemoveAllAuras())
	assert.Empty(t, u.Auras())
}

func TestPeriodic_OwnerLeftMapIsNoop(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	c := newAura(m, auraEntry(80, 0, 0, periodic(spell.AuraPeriodicHeal, 10, 1000)), 1, 1)
	require.True(t, u.ApplyAura(c))
	u.DealDamage(99, 100)

	m.advance(1000)
	assert.Equal(t, 910, u.Health())
	m.remove(1)
	m.advance(5000)
	assert.Equal(t, 910, u.Health())
	assert.Equal(t, 1, c.Effects()[0].CurrentTick())
}

func TestPeriodic_PersistentAuraResumesAfterResurrect(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	c := newAura(m, auraEntry(81, spell.AttrPersistThroughDeath, 0, periodic(spell.AuraPeriodicHeal, 10, 1000)), 1, 1)
	require.True(t, u.ApplyAura(c))

	m.advance(1500)
	u.Kill(0)
	m.advance(1000)
	assert.True(t, u.HasAura(81))
	assert.Equal(t, 0, u.Health(), "ticks while dead heal nothing")

	require.True(t, u.Resurrect(50))
	assert.Equal(t, 500, u.Health())
	m.advance(5000)
	assert.Equal(t, 550, u.Health())
	assert.Equal(t, 7, c.Effects()[0].CurrentTick())
}

func TestPeriodicTrigger_CastsThroughCasterController(t *testing.T) {
	m := newTestMap()
	owner := m.add(1, warrior(factionAlliance))
	caster := m.add(2, warrior(factionAlliance))
	rec := &recordingCast{}
	caster.SetCastControl(rec)
	m.spells.Register(&spell.Entry{ID: 91, Name: "pulse"})
	eff := periodic(spell.AuraPeriodicTriggerSpell, 0, 1000)
	eff.TriggerSpell = 91
	c := newAura(m, auraEntry(90, 0, 3000, eff), 1, 2)
	require.True(t, owner.ApplyAura(c))

	m.advance(3000)
	assert.Equal(t, []uint32{91, 91, 91}, rec.procs)
}

func TestCapabilities_StunInterruptsAndRoots(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	rec := &recordingCast{}
	u.SetCastControl(rec)
	require.True(t, u.SetMoving(true))
	assert.Equal(t, 1, rec.moves)

	stun := newAura(m, auraEntry(100, spell.AttrNegative, 0, auraEffect(spell.AuraModStun, 0)), 1, 1)
	require.True(t, u.ApplyAura(stun))
	assert.True(t, u.IsStunned())
	assert.False(t, u.IsMoving())
	assert.Equal(t, 1, rec.interrupts)
	assert.False(t, u.SetMoving(true))
	assert.False(t, u.CombatStats().CanDodge)

	u.RemoveAura(stun, unit.RemoveDispel)
	assert.False(t, u.IsStunned())
	assert.True(t, u.CombatStats().CanDodge)
	assert.True(t, u.SetMoving(true))
}

func TestRemoveAurasByDispel(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	magicBuff := auraEntry(110, 0, 0, auraEffect(spell.AuraModSpeedPct, 10))
	magicBuff.Dispel = spell.DispelMagic
	magicDebuff := auraEntry(111, spell.AttrNegative, 0, auraEffect(spell.AuraModRoot, 0))
	magicDebuff.Dispel = spell.DispelMagic
	poison := auraEntry(112, spell.AttrNegative, 0, auraEffect(spell.AuraModSpeedPct, -30))
	poison.Dispel = spell.DispelPoison
	for _, e := range []*spell.Entry{magicBuff, magicDebuff, poison} {
		require.True(t, u.ApplyAura(newAura(m, e, 1, 1)))
	}

	assert.Equal(t, []uint32{111}, u.RemoveAurasByDispel(spell.DispelMagic, 5, false))
	assert.True(t, u.HasAura(110))
	assert.True(t, u.HasAura(112))
	assert.Nil(t, u.RemoveAurasByDispel(spell.DispelCurse, 1, false))
}

func TestAggregates(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	m.add(2, warrior(factionAlliance))
	m.add(3, warrior(factionAlliance))
	require.True(t, u.ApplyAura(newAura(m, auraEntry(120, 0, 0, auraEffect(spell.AuraModSpeedPct, 50)), 1, 1)))
	require.True(t, u.ApplyAura(newAura(m, auraEntry(121, 0, 0, auraEffect(spell.AuraModSpeedPct, -20)), 1, 2)))
	require.True(t, u.ApplyAura(newAura(m, auraEntry(122, 0, 0, auraEffect(spell.AuraModSpeedPct, 10)), 1, 3)))

	assert.Equal(t, 40, u.TotalAuraModifier(spell.AuraModSpeedPct))
	assert.InDelta(t, 1.5*0.8*1.1, u.TotalAuraMultiplier(spell.AuraModSpeedPct), 1e-9)
	assert.Equal(t, 50, u.MaxPositiveAuraModifier(spell.AuraModSpeedPct))
	assert.Equal(t, -20, u.MinNegativeAuraModifier(spell.AuraModSpeedPct))
	assert.Equal(t, 1.0, u.TotalAuraMultiplier(spell.AuraModHealingPct))
	assert.True(t, u.HasAuraEffect(121, 0))
	assert.False(t, u.HasAuraEffect(121, 1))
}

func TestRemoveAllAurasFromCasterAndItem(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	m.add(2, warrior(factionHorde))
	fromEnemy := newAura(m, auraEntry(130, spell.AttrNegative, 0, auraEffect(spell.AuraModRoot, 0)), 1, 2)
	require.True(t, u.ApplyAura(fromEnemy))

	entry := auraEntry(131, 0, 0, auraEffect(spell.AuraModResistance, 25))
	fromItem := unit.NewAuraContainer(m, unit.AuraSpec{Entry: entry, Owner: 1, Caster: 1, CastItem: 500})
	fromItem.AddAuraEffect(0, &entry.Effects[0], 25)
	require.True(t, u.ApplyAura(fromItem))
	u.AddItem(unit.Item{GUID: 500, Entry: 7, Count: 1})

	assert.Equal(t, 1, u.RemoveAllAurasFromCaster(2))
	assert.False(t, u.IsRooted())
	assert.True(t, u.ConsumeItem(500))
	assert.True(t, fromItem.IsRemoved())
	assert.Empty(t, u.Auras())
}
