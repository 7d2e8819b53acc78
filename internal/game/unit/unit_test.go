package unit_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

func TestCooldowns_SpellTakesPriorityOverCategory(t *testing.T) {
	cd := unit.NewCooldowns()
	both := &spell.Entry{ID: 1, CooldownMs: 5000, Category: 9, CategoryCooldownMs: 20000}
	sibling := &spell.Entry{ID: 2, Category: 9, CategoryCooldownMs: 20000}

	cd.Start(both, 0)
	assert.False(t, cd.IsReady(both, 4999))
	assert.True(t, cd.IsReady(both, 5000))
	assert.True(t, cd.IsReady(sibling, 1))

	cd.Start(sibling, 0)
	assert.False(t, cd.IsReady(both, 19999))
	assert.Equal(t, int64(15000), cd.Remaining(both, 5000))
	assert.True(t, cd.IsReady(both, 20000))
}

func TestCooldowns_AreMonotonic(t *testing.T) {
	cd := unit.NewCooldowns()
	cd.AddSpell(1, 10000)
	cd.AddSpell(1, 5000)
	assert.Equal(t, []unit.CooldownEntry{{SpellID: 1, ExpiresAt: 10000}}, cd.Snapshot(0))

	cd.AddCategory(4, 3000)
	cd.Prune(3000)
	assert.Equal(t, []unit.CooldownEntry{{SpellID: 1, ExpiresAt: 10000}}, cd.Snapshot(0))
}

func TestCooldowns_SnapshotRestore(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		src := unit.NewCooldowns()
		n := rapid.IntRange(0, 10).Draw(rt, "n")
		for i := 0; i < n; i++ {
			id := rapid.Uint32Range(1, 50).Draw(rt, "id")
			at := rapid.Int64Range(1, 100000).Draw(rt, "at")
			if rapid.Bool().Draw(rt, "category") {
				src.AddCategory(id, at)
			} else {
				src.AddSpell(id, at)
			}
		}
		dst := unit.NewCooldowns()
		dst.Restore(src.Snapshot(0))
		assert.Equal(rt, src.Snapshot(0), dst.Snapshot(0))
	})
}

func TestModifierTable_Apply(t *testing.T) {
	var mt unit.ModifierTable
	assert.Equal(t, int64(100), mt.Apply(spell.ModPowerCost, 100))
	mt.Add(spell.ModPowerCost, 20, false)
	mt.Add(spell.ModPowerCost, -50, true)
	assert.Equal(t, int64(60), mt.Apply(spell.ModPowerCost, 100))
	mt.Add(spell.ModPowerCost, -200, false)
	assert.Equal(t, int64(0), mt.Apply(spell.ModPowerCost, 100))
	mt.Add(spell.ModifierOpCount, 5, false)
	assert.Equal(t, 0, mt.Flat(spell.ModifierOpCount))
}

func TestPosition_InArc(t *testing.T) {
	origin := unit.Position{}
	ahead := unit.Position{X: 10}
	behind := unit.Position{X: -10}
	side := unit.Position{X: 1, Y: 10}

	assert.True(t, origin.InArc(ahead, math.Pi))
	assert.False(t, origin.InArc(behind, math.Pi))
	assert.True(t, origin.InArc(side, math.Pi))

	facingBack := unit.Position{O: math.Pi}
	assert.True(t, facingBack.InArc(behind, math.Pi))
	assert.False(t, facingBack.InArc(ahead, math.Pi))
}

func TestPosition_Toward(t *testing.T) {
	p := unit.Position{}
	q := unit.Position{X: 30, Y: 40}
	step := p.Toward(q, 10)
	assert.InDelta(t, 6, step.X, 1e-4)
	assert.InDelta(t, 8, step.Y, 1e-4)
	assert.Equal(t, float32(30), p.Toward(q, 100).X)
}

func TestDealDamage_KillsAndInterrupts(t *testing.T) {
	m := newTestMap()
	u := m.add(1, warrior(factionAlliance))
	rec := &recordingCast{}
	u.SetCastControl(rec)

	assert.Equal(t, 400, u.DealDamage(2, 400))
	assert.True(t, u.InCombat())
	assert.Equal(t, uint64(2), u.Victim())
	assert.Equal(t, 1, rec.damaged)

	assert.Equal(t, 600, u.DealDamage(2, 5000))
	assert.False(t, u.IsAlive())
	assert.False(t, u.InCombat())
	assert.Equal(t, 1, rec.deaths)
	assert.Equal(t, 0, rec.interrupts)
	assert.Equal(t, 0, u.DealDamage(2, 10))
	assert.Equal(t, 0, u.Heal(2, 10))

	assert.True(t, u.Resurrect(50))
	assert.Equal(t, 500, u.Health())
	assert.False(t, u.Resurrect(50))
}

func TestModifyPower_Clamps(t *testing.T) {
	u := unit.New(1, warrior(factionAlliance), zap.NewNop())
	assert.Equal(t, -500, u.ModifyPower(spell.PowerMana, -900))
	assert.Equal(t, 0, u.Power(spell.PowerMana))
	assert.Equal(t, 500, u.ModifyPower(spell.PowerMana, 900))
	assert.Equal(t, 0, u.ModifyPower(spell.PowerRage, 10))
	assert.Equal(t, -100, u.ModifyPower(spell.PowerHealth, -100))
	assert.Equal(t, 900, u.Power(spell.PowerHealth))
}

func TestItems_ConsumeAcrossStacks(t *testing.T) {
	u := unit.New(1, warrior(factionAlliance), zap.NewNop())
	u.AddItem(unit.Item{GUID: 11, Entry: 7, Count: 2})
	u.AddItem(unit.Item{GUID: 12, Entry: 7, Count: 3})
	u.AddItem(unit.Item{GUID: 13, Entry: 8, Count: 1})

	assert.Equal(t, 5, u.ItemCount(7))
	assert.False(t, u.ConsumeItems(7, 6))
	assert.Equal(t, 5, u.ItemCount(7))
	require.True(t, u.ConsumeItems(7, 3))
	_, ok := u.Item(11)
	assert.False(t, ok)
	it, ok := u.Item(12)
	require.True(t, ok)
	assert.Equal(t, 2, it.Count)
	assert.True(t, u.RemoveItem(13))
	assert.False(t, u.ConsumeItem(13))
}

func TestKnownSpells(t *testing.T) {
	tmpl := warrior(factionAlliance)
	tmpl.Spells = []uint32{30, 10}
	u := unit.New(1, tmpl, zap.NewNop())
	assert.True(t, u.LearnSpell(20))
	assert.False(t, u.LearnSpell(10))
	assert.Equal(t, []uint32{10, 20, 30}, u.KnownSpells())
	u.UnlearnSpell(30)
	assert.False(t, u.KnowsSpell(30))
}

func TestHostility(t *testing.T) {
	m := newTestMap()
	a := m.add(1, warrior(factionAlliance))
	h := m.add(2, warrior(factionHorde))
	a2 := m.add(3, warrior(factionAlliance))
	assert.True(t, a.IsHostileTo(h))
	assert.True(t, h.IsHostileTo(a))
	assert.False(t, a.IsHostileTo(a2))
	assert.True(t, a.IsFriendlyTo(a))
}

func TestWeaponDamage_InRange(t *testing.T) {
	u := unit.New(1, warrior(factionAlliance), zap.NewNop())
	src := dice.NewSeededSource(3)
	for i := 0; i < 200; i++ {
		d := u.WeaponDamage(src)
		assert.GreaterOrEqual(t, d, 10)
		assert.LessOrEqual(t, d, 20)
	}
}

func TestKnockBack_MovesAway(t *testing.T) {
	u := unit.New(1, warrior(factionAlliance), zap.NewNop())
	u.Relocate(unit.Position{X: 5})
	u.KnockBack(unit.Position{}, 10)
	assert.InDelta(t, 15, u.Position().X, 1e-3)
}
