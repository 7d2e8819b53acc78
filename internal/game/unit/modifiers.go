package unit

import "github.com/cory-johannsen/spellcore/internal/game/spell"

// ModifierTable holds the flat and percent spell modifiers granted by
// AddFlatModifier and AddPctModifier auras.
type ModifierTable struct {
	flat [spell.ModifierOpCount]int
	pct  [spell.ModifierOpCount]int
}

// Add adjusts op by value. Negative values undo an earlier Add.
// Out-of-range ops are ignored.
func (t *ModifierTable) Add(op spell.ModifierOp, value int, pct bool) {
	if op < 0 || op >= spell.ModifierOpCount {
		return
	}
	if pct {
		t.pct[op] += value
		return
	}
	t.flat[op] += value
}

// Flat returns the summed flat modifier for op.
func (t *ModifierTable) Flat(op spell.ModifierOp) int {
	if op < 0 || op >= spell.ModifierOpCount {
		return 0
	}
	return t.flat[op]
}

// Pct returns the summed percent modifier for op.
func (t *ModifierTable) Pct(op spell.ModifierOp) int {
	if op < 0 || op >= spell.ModifierOpCount {
		return 0
	}
	return t.pct[op]
}

// Apply returns (base + flat) * (100 + pct) / 100 for op.
//
// Postcondition: Returns >= 0.
func (t *ModifierTable) Apply(op spell.ModifierOp, base int64) int64 {
	v := (base + int64(t.Flat(op))) * int64(100+t.Pct(op)) / 100
	if v < 0 {
		return 0
	}
	return v
}
