package cast

import "fmt"

// Result is the outcome code of a cast attempt. The numeric values are
// stable; they travel in SpellFailure payloads.
type Result uint8

const (
	Success Result = iota
	Error
	NotReady
	SpellInProgress
	CasterDead
	BadTargets
	TargetFriendly
	TargetEnemy
	TargetsDead
	Moving
	AffectingCombat
	NoPower
	Reagents
	ItemNotFound
	UnitNotInfront
	OnlyDaytime
	OnlyNighttime
	OnlyIndoors
	OnlyOutdoors
	OnlyStealthed
	OutOfRange
	NotKnown
	RequiresSpellFocus
	Silenced
	Interrupted
)

var resultNames = [...]string{
	Success:            "success",
	Error:              "error",
	NotReady:           "not_ready",
	SpellInProgress:    "spell_in_progress",
	CasterDead:         "caster_dead",
	BadTargets:         "bad_targets",
	TargetFriendly:     "target_friendly",
	TargetEnemy:        "target_enemy",
	TargetsDead:        "targets_dead",
	Moving:             "moving",
	AffectingCombat:    "affecting_combat",
	NoPower:            "no_power",
	Reagents:           "reagents",
	ItemNotFound:       "item_not_found",
	UnitNotInfront:     "unit_not_infront",
	OnlyDaytime:        "only_daytime",
	OnlyNighttime:      "only_nighttime",
	OnlyIndoors:        "only_indoors",
	OnlyOutdoors:       "only_outdoors",
	OnlyStealthed:      "only_stealthed",
	OutOfRange:         "out_of_range",
	NotKnown:           "not_known",
	RequiresSpellFocus: "requires_spell_focus",
	Silenced:           "silenced",
	Interrupted:        "interrupted",
}

func (r Result) String() string {
	if int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("result(%d)", uint8(r))
}
