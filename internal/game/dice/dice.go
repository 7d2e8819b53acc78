// Package dice provides the randomness abstraction used by spell point rolls
// and the combat attack table.
package dice

import "fmt"

// Source is the randomness provider for every roll in the engine.
//
// Implementations used from the logic thread need not be safe for concurrent use.
type Source interface {
	// Intn returns a non-negative random int in [0, n).
	//
	// Precondition: n > 0.
	Intn(n int) int
	// Float64 returns a random float in [0, 1).
	Float64() float64
}

// PointsResult holds the audit trail for one effect point roll.
//
// Postcondition: Total() == Base + Die + Scaled.
type PointsResult struct {
	Base   int // descriptor base points
	Sides  int // die sides; 0 means no die
	Die    int // die result, 0 when Sides <= 1
	Scaled int // level-scaling contribution
}

// Total returns the final rolled points.
func (r PointsResult) Total() int {
	return r.Base + r.Die + r.Scaled
}

// String renders the roll as "12+1d8(5)+3 = 20".
func (r PointsResult) String() string {
	if r.Sides <= 1 {
		return fmt.Sprintf("%d%+d = %d", r.Base, r.Scaled, r.Total())
	}
	return fmt.Sprintf("%d+1d%d(%d)%+d = %d", r.Base, r.Sides, r.Die, r.Scaled, r.Total())
}

// RollPoints computes effect points: base + 1dSides + perLevel*level.
//
// A die with fewer than two sides contributes nothing, and a negative base
// keeps the die subtracting so that debuff magnitudes grow with the roll.
//
// Precondition: src must be non-nil; level >= 0.
// Postcondition: when sides >= 2, |Die| is in [1, sides].
func RollPoints(base, sides int, perLevel float64, level int, src Source) PointsResult {
	res := PointsResult{Base: base, Sides: sides, Scaled: int(perLevel * float64(level))}
	if sides >= 2 {
		die := src.Intn(sides) + 1
		if base < 0 {
			die = -die
		}
		res.Die = die
	}
	return res
}
