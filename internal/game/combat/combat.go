// Package combat implements the attack table that resolves one melee, ranged,
// or spell attack into exactly one outcome.
package combat

// AttackType selects which bands of the attack table apply.
type AttackType int

const (
	BaseAttack AttackType = iota
	OffAttack
	RangedAttack
	SpellAttack
)

// String returns a human-readable attack type label.
func (a AttackType) String() string {
	switch a {
	case BaseAttack:
		return "main hand"
	case OffAttack:
		return "off hand"
	case RangedAttack:
		return "ranged"
	case SpellAttack:
		return "spell"
	default:
		return "unknown"
	}
}

// IsMelee reports whether the attack is a main- or off-hand swing.
func (a AttackType) IsMelee() bool {
	return a == BaseAttack || a == OffAttack
}

// Outcome is one mutually exclusive attack result. The declaration order is
// the priority order of the attack table.
type Outcome int

const (
	Evade Outcome = iota
	Miss
	Dodge
	Parry
	Block
	Glancing
	Crit
	Crushing
	Normal
)

// OutcomeCount is the number of defined outcomes.
const OutcomeCount = int(Normal) + 1

// String returns a human-readable outcome label.
func (o Outcome) String() string {
	switch o {
	case Evade:
		return "evade"
	case Miss:
		return "miss"
	case Dodge:
		return "dodge"
	case Parry:
		return "parry"
	case Block:
		return "block"
	case Glancing:
		return "glancing"
	case Crit:
		return "crit"
	case Crushing:
		return "crushing"
	case Normal:
		return "normal"
	default:
		return "unknown"
	}
}

// Avoided reports whether the outcome negates all damage.
func (o Outcome) Avoided() bool {
	switch o {
	case Evade, Miss, Dodge, Parry:
		return true
	}
	return false
}

// DamagePercent returns the share of rolled damage dealt for this outcome,
// before block reduction. Spell crits deal 150%, weapon crits 200%.
//
// Postcondition: Returns 0 for avoided outcomes.
func (o Outcome) DamagePercent(attack AttackType) int {
	switch o {
	case Evade, Miss, Dodge, Parry:
		return 0
	case Glancing:
		return 75
	case Crit:
		if attack == SpellAttack {
			return 150
		}
		return 200
	case Crushing:
		return 150
	default:
		return 100
	}
}

// Stats is a snapshot of the combat-relevant values of one unit.
// Percentages are in percent points (5 means 5%).
type Stats struct {
	Level    int
	IsPlayer bool
	// WeaponSkill is the attacker-side skill; 0 means Level*5.
	WeaponSkill int
	// DefenseSkill is the victim-side skill; 0 means Level*5.
	DefenseSkill int

	HitPct       float64
	CritPct      float64
	SpellHitPct  float64
	SpellCritPct float64
	DodgePct     float64
	ParryPct     float64
	BlockPct     float64

	CanDodge  bool
	CanParry  bool
	CanBlock  bool
	Evading   bool
	DualWield bool
}

func (s Stats) weaponSkill() int {
	if s.WeaponSkill > 0 {
		return s.WeaponSkill
	}
	return s.Level * 5
}

func (s Stats) defenseSkill() int {
	if s.DefenseSkill > 0 {
		return s.DefenseSkill
	}
	return s.Level * 5
}
