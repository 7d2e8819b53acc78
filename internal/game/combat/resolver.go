package combat

// Source is the subset of dice.Source used by the resolver.
// Using a local interface avoids a circular import.
type Source interface {
	Float64() float64
}

// Input is everything the attack table needs for one roll.
type Input struct {
	Attacker Stats
	Victim   Stats
	Attack   AttackType
	// SpellID is the spell driving the attack, 0 for white swings.
	SpellID uint32
	// NoAvoid removes the dodge, parry, and block bands.
	NoAvoid bool
	// Behind is true when the attacker stands behind the victim.
	Behind bool
}

// Table holds the independent chance of every band, as fractions in [0, 1].
type Table struct {
	Evade    float64
	Miss     float64
	Dodge    float64
	Parry    float64
	Block    float64
	Glancing float64
	Crit     float64
	Crushing float64
}

// ordered returns the band chances in priority order, Normal excluded.
func (t Table) ordered() [OutcomeCount - 1]float64 {
	return [OutcomeCount - 1]float64{t.Evade, t.Miss, t.Dodge, t.Parry, t.Block, t.Glancing, t.Crit, t.Crushing}
}

// Effective returns the probability mass each outcome actually receives once
// the bands are stacked in priority order. Bands that overflow 1 are truncated
// and Normal absorbs whatever remains.
//
// Postcondition: the returned values sum to 1 and are each >= 0.
func (t Table) Effective() [OutcomeCount]float64 {
	var out [OutcomeCount]float64
	left := 1.0
	for i, p := range t.ordered() {
		if p > left {
			p = left
		}
		out[i] = p
		left -= p
	}
	out[Normal] = left
	return out
}

// Pick maps a draw in [0, 1) onto the first matching band, top-down.
func (t Table) Pick(roll float64) Outcome {
	acc := 0.0
	for i, p := range t.ordered() {
		acc += p
		if roll < acc {
			return Outcome(i)
		}
	}
	return Normal
}

// Chances computes the per-band chances for in. Each band is computed
// independently; stacking happens in Pick.
//
// Postcondition: every field of the returned Table is in [0, 1].
func Chances(in Input) Table {
	a, v := in.Attacker, in.Victim
	if v.Evading {
		return Table{Evade: 1}
	}
	if in.Attack == SpellAttack {
		return spellChances(in)
	}

	skill := a.weaponSkill()
	def := v.defenseSkill()
	diff := float64(def - skill)

	var t Table
	t.Miss = meleeMiss(in, diff)

	avoidable := !in.NoAvoid
	if avoidable && v.CanDodge && in.Attack != RangedAttack {
		t.Dodge = pct(v.DodgePct + diff*0.04)
	}
	if avoidable && v.CanParry && in.Attack.IsMelee() && !in.Behind {
		t.Parry = pct(v.ParryPct + diff*0.04)
	}
	if avoidable && v.CanBlock && !in.Behind {
		t.Block = pct(v.BlockPct + diff*0.04)
	}
	if a.IsPlayer && !v.IsPlayer && in.Attack.IsMelee() {
		t.Glancing = clamp(pct(10+diff*2), 0, 0.4)
	}
	t.Crit = pct(a.CritPct - diff*0.04)
	if !a.IsPlayer && v.IsPlayer && in.Attack.IsMelee() && -diff >= 15 {
		t.Crushing = pct(-diff*2 - 15)
	}
	return t
}

func meleeMiss(in Input, diff float64) float64 {
	a, v := in.Attacker, in.Victim
	var miss float64
	switch {
	case v.IsPlayer:
		miss = 5 + diff*0.04
	case diff > 10:
		miss = 7 + (diff-10)*0.4
	default:
		miss = 5 + diff*0.1
	}
	if a.DualWield && in.Attack.IsMelee() && in.SpellID == 0 {
		miss += 19
	}
	miss -= a.HitPct
	return clamp(pct(miss), 0, 0.6)
}

func spellChances(in Input) Table {
	a, v := in.Attacker, in.Victim
	lvlDiff := float64(v.Level - a.Level)
	var hit float64
	if lvlDiff < 3 {
		hit = 96 - lvlDiff
	} else {
		penalty := 7.0
		if v.IsPlayer {
			penalty = 11
		}
		hit = 94 - (lvlDiff-2)*penalty
	}
	hit += a.SpellHitPct
	return Table{
		Miss: clamp(pct(100-hit), 0.01, 1),
		Crit: pct(a.SpellCritPct),
	}
}

func pct(v float64) float64 {
	return clamp(v/100, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Resolve rolls the attack table for in with one draw from src.
// It has no side effects; callers apply the outcome.
//
// Precondition: src must be non-nil.
// Postcondition: Returns exactly one of the nine outcomes.
func Resolve(in Input, src Source) Outcome {
	return Chances(in).Pick(src.Float64())
}
