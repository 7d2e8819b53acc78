// Package spell holds the immutable spell, range, and faction descriptor
// records consumed by the cast and aura engines.
package spell

// MaxEffects is the number of effect slots a spell entry may declare.
const MaxEffects = 3

// Effect is one declared effect of a spell.
type Effect struct {
	Type           EffectType `yaml:"type"`
	Target         TargetType `yaml:"target"`
	Radius         float32    `yaml:"radius"`
	BasePoints     int        `yaml:"base_points"`
	DieSides       int        `yaml:"die_sides"`
	PointsPerLevel float64    `yaml:"points_per_level"`
	Aura           AuraType   `yaml:"aura"`
	AmplitudeMs    int64      `yaml:"amplitude_ms"`
	MiscValue      int32      `yaml:"misc_value"`
	TriggerSpell   uint32     `yaml:"trigger_spell"`
}

// Reagent is one item requirement consumed by a cast.
type Reagent struct {
	Item  uint32 `yaml:"item"`
	Count int    `yaml:"count"`
}

// Entry is the static descriptor of one spell.
type Entry struct {
	ID         uint32     `yaml:"id"`
	Name       string     `yaml:"name"`
	School     School     `yaml:"school"`
	Attributes Attributes `yaml:"attributes"`
	Level      int        `yaml:"level"`
	MaxLevel   int        `yaml:"max_level"`

	CastTimeMs          int64  `yaml:"cast_time_ms"`
	DurationMs          int64  `yaml:"duration_ms"`
	CooldownMs          int64  `yaml:"cooldown_ms"`
	Category            uint32 `yaml:"category"`
	CategoryCooldownMs  int64  `yaml:"category_cooldown_ms"`
	InterruptCooldownMs int64  `yaml:"interrupt_cooldown_ms"`

	PowerType    PowerType `yaml:"power_type"`
	PowerCost    int       `yaml:"power_cost"`
	PowerCostPct int       `yaml:"power_cost_pct"`
	Reagents     []Reagent `yaml:"reagents"`

	RangeID uint32 `yaml:"range_id"`
	// Speed is the projectile speed in yards per second; 0 resolves on cast.
	Speed float32 `yaml:"speed"`

	InterruptFlags        InterruptFlags `yaml:"interrupt_flags"`
	ChannelInterruptFlags InterruptFlags `yaml:"channel_interrupt_flags"`
	Mechanic              int            `yaml:"mechanic"`
	Dispel                DispelType     `yaml:"dispel"`
	FocusObject           uint32         `yaml:"focus_object"`

	Effects []Effect `yaml:"effects"`
}

// Has reports whether every bit of attr is set.
func (e *Entry) Has(attr Attributes) bool {
	return e.Attributes&attr == attr
}

// IsChanneled reports whether the spell stays active for its duration after casting.
func (e *Entry) IsChanneled() bool {
	return e.Has(AttrChanneled)
}

// IsPositive reports whether the spell is beneficial to its targets.
func (e *Entry) IsPositive() bool {
	return !e.Has(AttrNegative)
}

// HasEffect reports whether any declared effect is of type t.
func (e *Entry) HasEffect(t EffectType) bool {
	for _, eff := range e.Effects {
		if eff.Type == t {
			return true
		}
	}
	return false
}

// HasAura reports whether any ApplyAura effect carries aura type t.
func (e *Entry) HasAura(t AuraType) bool {
	for _, eff := range e.Effects {
		if eff.Type == EffectApplyAura && eff.Aura == t {
			return true
		}
	}
	return false
}

// TargetRequirement summarizes what unit target the effects need.
type TargetRequirement int

const (
	NeedsNoUnit TargetRequirement = iota
	NeedsAnyUnit
	NeedsFriendly
	NeedsHostile
)

// UnitTargetRequirement folds the effect target types into one requirement.
// A hostile requirement wins over a friendly one.
func (e *Entry) UnitTargetRequirement() TargetRequirement {
	req := NeedsNoUnit
	for _, eff := range e.Effects {
		switch eff.Target {
		case TargetEnemy:
			return NeedsHostile
		case TargetAlly:
			req = NeedsFriendly
		case TargetAny:
			if req == NeedsNoUnit {
				req = NeedsAnyUnit
			}
		}
	}
	return req
}

// RangeEntry is one row of the range table, in yards.
type RangeEntry struct {
	ID   uint32  `yaml:"id"`
	Min  float32 `yaml:"min"`
	Max  float32 `yaml:"max"`
	Name string  `yaml:"name"`
}
