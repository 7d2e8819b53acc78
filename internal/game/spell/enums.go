package spell

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// EffectType identifies what one effect entry does when the cast resolves.
type EffectType int

const (
	EffectNone EffectType = iota
	EffectInstakill
	EffectSchoolDamage
	EffectDummy
	EffectHeal
	EffectApplyAura
	EffectEnergize
	EffectWeaponDamage
	EffectResurrect
	EffectSummon
	EffectTeleportUnits
	EffectKnockBack
	EffectLearnSpell
	EffectDispel
	EffectTriggerSpell
	EffectInterruptCast
	EffectScript
	effectTypeCount
)

// EffectTypeCount is the size of the effect enumeration.
const EffectTypeCount = int(effectTypeCount)

var effectTypeNames = map[string]EffectType{
	"none":           EffectNone,
	"instakill":      EffectInstakill,
	"school_damage":  EffectSchoolDamage,
	"dummy":          EffectDummy,
	"heal":           EffectHeal,
	"apply_aura":     EffectApplyAura,
	"energize":       EffectEnergize,
	"weapon_damage":  EffectWeaponDamage,
	"resurrect":      EffectResurrect,
	"summon":         EffectSummon,
	"teleport_units": EffectTeleportUnits,
	"knock_back":     EffectKnockBack,
	"learn_spell":    EffectLearnSpell,
	"dispel":         EffectDispel,
	"trigger_spell":  EffectTriggerSpell,
	"interrupt_cast": EffectInterruptCast,
	"script_effect":  EffectScript,
}

func (t EffectType) String() string { return nameOf(effectTypeNames, t) }

// UnmarshalYAML decodes an effect type name.
func (t *EffectType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, effectTypeNames, "effect type", t)
}

// AuraType identifies what an applied aura effect modifies.
type AuraType int

const (
	AuraNone AuraType = iota
	AuraPeriodicDamage
	AuraPeriodicHeal
	AuraPeriodicEnergize
	AuraPeriodicTriggerSpell
	AuraModStun
	AuraModRoot
	AuraModSilence
	AuraModPacify
	AuraModDisarm
	AuraModStealth
	AuraModDamageDone
	AuraModDamagePercentDone
	AuraModHealingPct
	AuraModSpeedPct
	AuraModResistance
	AuraModDodgePercent
	AuraModParryPercent
	AuraModBlockPercent
	AuraModCritPercent
	AuraModHitChance
	AuraAddFlatModifier
	AuraAddPctModifier
	auraTypeCount
)

// AuraTypeCount is the size of the aura enumeration.
const AuraTypeCount = int(auraTypeCount)

var auraTypeNames = map[string]AuraType{
	"none":                    AuraNone,
	"periodic_damage":         AuraPeriodicDamage,
	"periodic_heal":           AuraPeriodicHeal,
	"periodic_energize":       AuraPeriodicEnergize,
	"periodic_trigger_spell":  AuraPeriodicTriggerSpell,
	"mod_stun":                AuraModStun,
	"mod_root":                AuraModRoot,
	"mod_silence":             AuraModSilence,
	"mod_pacify":              AuraModPacify,
	"mod_disarm":              AuraModDisarm,
	"mod_stealth":             AuraModStealth,
	"mod_damage_done":         AuraModDamageDone,
	"mod_damage_percent_done": AuraModDamagePercentDone,
	"mod_healing_pct":         AuraModHealingPct,
	"mod_speed_pct":           AuraModSpeedPct,
	"mod_resistance":          AuraModResistance,
	"mod_dodge_percent":       AuraModDodgePercent,
	"mod_parry_percent":       AuraModParryPercent,
	"mod_block_percent":       AuraModBlockPercent,
	"mod_crit_percent":        AuraModCritPercent,
	"mod_hit_chance":          AuraModHitChance,
	"add_flat_modifier":       AuraAddFlatModifier,
	"add_pct_modifier":        AuraAddPctModifier,
}

func (t AuraType) String() string { return nameOf(auraTypeNames, t) }

// UnmarshalYAML decodes an aura type name.
func (t *AuraType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, auraTypeNames, "aura type", t)
}

// IsPeriodic reports whether the aura type ticks on an amplitude.
func (t AuraType) IsPeriodic() bool {
	switch t {
	case AuraPeriodicDamage, AuraPeriodicHeal, AuraPeriodicEnergize, AuraPeriodicTriggerSpell:
		return true
	}
	return false
}

// IsPercent reports whether same-type effects aggregate multiplicatively.
func (t AuraType) IsPercent() bool {
	switch t {
	case AuraModDamagePercentDone, AuraModHealingPct, AuraModSpeedPct, AuraAddPctModifier:
		return true
	}
	return false
}

// TargetType is the implicit target selection of one effect.
type TargetType int

const (
	TargetCaster TargetType = iota
	TargetEnemy
	TargetAlly
	TargetAny
	TargetAreaEnemyAroundCaster
	TargetAreaAllyAroundCaster
	TargetDest
)

var targetTypeNames = map[string]TargetType{
	"caster":                   TargetCaster,
	"target_enemy":             TargetEnemy,
	"target_ally":              TargetAlly,
	"target_any":               TargetAny,
	"area_enemy_around_caster": TargetAreaEnemyAroundCaster,
	"area_ally_around_caster":  TargetAreaAllyAroundCaster,
	"dest":                     TargetDest,
}

func (t TargetType) String() string { return nameOf(targetTypeNames, t) }

// UnmarshalYAML decodes a target type name.
func (t *TargetType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, targetTypeNames, "target type", t)
}

// IsUnitTarget reports whether the effect needs the explicit unit target.
func (t TargetType) IsUnitTarget() bool {
	return t == TargetEnemy || t == TargetAlly || t == TargetAny
}

// PowerType is the resource pool a spell draws from.
type PowerType int

const (
	PowerMana PowerType = iota
	PowerRage
	PowerFocus
	PowerEnergy
	PowerHealth
	PowerTypeCount
)

var powerTypeNames = map[string]PowerType{
	"mana":   PowerMana,
	"rage":   PowerRage,
	"focus":  PowerFocus,
	"energy": PowerEnergy,
	"health": PowerHealth,
}

func (t PowerType) String() string { return nameOf(powerTypeNames, t) }

// UnmarshalYAML decodes a power type name.
func (t *PowerType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, powerTypeNames, "power type", t)
}

// School is the magic school of a spell.
type School int

const (
	SchoolPhysical School = iota
	SchoolHoly
	SchoolFire
	SchoolNature
	SchoolFrost
	SchoolShadow
	SchoolArcane
)

var schoolNames = map[string]School{
	"physical": SchoolPhysical,
	"holy":     SchoolHoly,
	"fire":     SchoolFire,
	"nature":   SchoolNature,
	"frost":    SchoolFrost,
	"shadow":   SchoolShadow,
	"arcane":   SchoolArcane,
}

func (s School) String() string { return nameOf(schoolNames, s) }

// UnmarshalYAML decodes a school name.
func (s *School) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, schoolNames, "school", s)
}

// DispelType groups auras that one dispel effect can remove.
type DispelType int

const (
	DispelNone DispelType = iota
	DispelMagic
	DispelCurse
	DispelDisease
	DispelPoison
)

var dispelTypeNames = map[string]DispelType{
	"none":    DispelNone,
	"magic":   DispelMagic,
	"curse":   DispelCurse,
	"disease": DispelDisease,
	"poison":  DispelPoison,
}

func (d DispelType) String() string { return nameOf(dispelTypeNames, d) }

// UnmarshalYAML decodes a dispel type name.
func (d *DispelType) UnmarshalYAML(n *yaml.Node) error {
	return decodeEnum(n, dispelTypeNames, "dispel type", d)
}

// ModifierOp selects which spell value an AddFlat/AddPct modifier aura changes.
// It is carried in the effect's MiscValue.
type ModifierOp int

const (
	ModPowerCost ModifierOp = iota
	ModCastTime
	ModDamage
	ModCritChance
	ModifierOpCount
)

// Attributes is a bit set of spell behaviour flags.
type Attributes uint32

const (
	AttrPassive Attributes = 1 << iota
	AttrChanneled
	AttrNegative
	AttrCastableWhileDead
	AttrNotInCombat
	AttrOnlyDaytime
	AttrOnlyNighttime
	AttrOnlyIndoors
	AttrOnlyOutdoors
	AttrOnlyStealthed
	AttrCanTargetDead
	AttrImpossibleDodgeParryBlock
	AttrNoFacing
	AttrConsumesCastItem
	AttrPersistThroughDeath
	AttrChannelAurasEndWithChannel
)

var attributeNames = map[string]Attributes{
	"passive":                        AttrPassive,
	"channeled":                      AttrChanneled,
	"negative":                       AttrNegative,
	"castable_while_dead":            AttrCastableWhileDead,
	"not_in_combat":                  AttrNotInCombat,
	"only_daytime":                   AttrOnlyDaytime,
	"only_nighttime":                 AttrOnlyNighttime,
	"only_indoors":                   AttrOnlyIndoors,
	"only_outdoors":                  AttrOnlyOutdoors,
	"only_stealthed":                 AttrOnlyStealthed,
	"can_target_dead":                AttrCanTargetDead,
	"impossible_dodge_parry_block":   AttrImpossibleDodgeParryBlock,
	"no_facing":                      AttrNoFacing,
	"consumes_cast_item":             AttrConsumesCastItem,
	"persist_through_death":          AttrPersistThroughDeath,
	"channel_auras_end_with_channel": AttrChannelAurasEndWithChannel,
}

// UnmarshalYAML decodes a list of attribute names into a bit set.
func (a *Attributes) UnmarshalYAML(n *yaml.Node) error {
	var names []string
	if err := n.Decode(&names); err != nil {
		return fmt.Errorf("line %d: attributes must be a list of names: %w", n.Line, err)
	}
	var out Attributes
	for _, name := range names {
		bit, ok := attributeNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("line %d: unknown attribute %q", n.Line, name)
		}
		out |= bit
	}
	*a = out
	return nil
}

// InterruptFlags say which events interrupt a cast or a channel.
type InterruptFlags uint32

const (
	InterruptMovement InterruptFlags = 1 << iota
	InterruptPushback
	InterruptDamage
	InterruptTurning
)

var interruptNames = map[string]InterruptFlags{
	"movement": InterruptMovement,
	"pushback": InterruptPushback,
	"damage":   InterruptDamage,
	"turning":  InterruptTurning,
}

// UnmarshalYAML decodes a list of interrupt names into a bit set.
func (f *InterruptFlags) UnmarshalYAML(n *yaml.Node) error {
	var names []string
	if err := n.Decode(&names); err != nil {
		return fmt.Errorf("line %d: interrupt flags must be a list of names: %w", n.Line, err)
	}
	var out InterruptFlags
	for _, name := range names {
		bit, ok := interruptNames[strings.ToLower(name)]
		if !ok {
			return fmt.Errorf("line %d: unknown interrupt flag %q", n.Line, name)
		}
		out |= bit
	}
	*f = out
	return nil
}

func decodeEnum[T comparable](n *yaml.Node, names map[string]T, kind string, out *T) error {
	var s string
	if err := n.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %s must be a string: %w", n.Line, kind, err)
	}
	v, ok := names[strings.ToLower(s)]
	if !ok {
		return fmt.Errorf("line %d: unknown %s %q", n.Line, kind, s)
	}
	*out = v
	return nil
}

func nameOf[T ~int](names map[string]T, v T) string {
	for name, candidate := range names {
		if candidate == v {
			return name
		}
	}
	return fmt.Sprintf("unknown(%d)", int(v))
}
