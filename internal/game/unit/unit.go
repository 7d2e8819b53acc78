// Package unit implements the unit facade consumed by the cast controller:
// health and power pools, cooldowns, spell modifiers, known spells, inventory,
// combat state, and the aura engine that applies status effects to a unit.
package unit

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/combat"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
)

// Map is the world context a unit lives in. All lookups are local and non-blocking.
type Map interface {
	Queue() *scheduler.Queue
	// FindUnit resolves a GUID to a unit currently in the map.
	FindUnit(guid uint64) (*Unit, bool)
	// UnitsInRange returns the units within radius yards of pos.
	UnitsInRange(pos Position, radius float32) []*Unit
	// Broadcast sends a payload to every observer that can see pos.
	Broadcast(pos Position, op packet.Opcode, payload []byte)
	Factions() *spell.FactionTable
	Spells() *spell.Store
	IsDaytime() bool
	IsIndoors(pos Position) bool
	// HasFocusObject reports whether a spell focus of entry lies within radius of pos.
	HasFocusObject(entry uint32, pos Position, radius float32) bool
	// Summon spawns a unit from template entry at pos on behalf of summoner.
	Summon(entry uint32, pos Position, summoner *Unit) (*Unit, error)
}

// CastControl is the unit's cast controller as seen by the unit and its auras.
type CastControl interface {
	// CastProc casts entry as a proc at target without touching the current cast.
	CastProc(entry *spell.Entry, target uint64)
	// Interrupt stops the current cast or channel.
	Interrupt()
	// OnUserStartsMoving is called when the unit starts moving.
	OnUserStartsMoving()
	// OnDamageTaken is called after the unit took damage while alive.
	OnDamageTaken()
	// OnDeath ends the current cast without an interrupt lockout.
	OnDeath()
}

// Template is the static description a unit is spawned from.
type Template struct {
	Entry     uint32          `yaml:"entry"`
	Name      string          `yaml:"name"`
	Level     int             `yaml:"level"`
	Faction   uint32          `yaml:"faction"`
	Player    bool            `yaml:"player"`
	Health    int             `yaml:"health"`
	PowerType spell.PowerType `yaml:"power_type"`
	Power     int             `yaml:"power"`

	MinDamage  int `yaml:"min_damage"`
	MaxDamage  int `yaml:"max_damage"`
	BlockValue int `yaml:"block_value"`

	HitPct       float64 `yaml:"hit_pct"`
	CritPct      float64 `yaml:"crit_pct"`
	SpellHitPct  float64 `yaml:"spell_hit_pct"`
	SpellCritPct float64 `yaml:"spell_crit_pct"`
	DodgePct     float64 `yaml:"dodge_pct"`
	ParryPct     float64 `yaml:"parry_pct"`
	BlockPct     float64 `yaml:"block_pct"`
	CanDodge     bool    `yaml:"can_dodge"`
	CanParry     bool    `yaml:"can_parry"`
	CanBlock     bool    `yaml:"can_block"`

	Spells []uint32 `yaml:"spells"`
	// AI names the behavior domain that drives this unit; empty for none.
	AI string `yaml:"ai"`
}

// capabilities are derived from the applied auras and recomputed on every
// real aura state transition.
type capabilities struct {
	stunned   bool
	rooted    bool
	silenced  bool
	pacified  bool
	disarmed  bool
	stealthed bool
}

// Unit is one creature or player in the simulation.
// It is not safe for concurrent use; every call happens on the logic thread.
type Unit struct {
	guid   uint64
	tmpl   Template
	logger *zap.Logger

	m   Map
	pos Position

	alive     bool
	health    int
	maxHealth int
	power     [spell.PowerTypeCount]int
	maxPower  [spell.PowerTypeCount]int

	inCombat bool
	victim   uint64
	moving   bool
	evading  bool

	known     map[uint32]struct{}
	cooldowns *Cooldowns
	mods      ModifierTable
	items     map[uint64]*Item

	auras []*AuraContainer
	slots [MaxAuraSlots]*AuraContainer
	caps  capabilities

	cast CastControl
}

// New creates a living unit from tmpl with full health and power.
//
// Precondition: logger must be non-nil.
func New(guid uint64, tmpl Template, logger *zap.Logger) *Unit {
	u := &Unit{
		guid:      guid,
		tmpl:      tmpl,
		logger:    logger.With(zap.Uint64("unit", guid)),
		alive:     true,
		health:    tmpl.Health,
		maxHealth: tmpl.Health,
		known:     make(map[uint32]struct{}),
		cooldowns: NewCooldowns(),
		items:     make(map[uint64]*Item),
	}
	if tmpl.PowerType >= 0 && tmpl.PowerType < spell.PowerHealth {
		u.power[tmpl.PowerType] = tmpl.Power
		u.maxPower[tmpl.PowerType] = tmpl.Power
	}
	for _, id := range tmpl.Spells {
		u.known[id] = struct{}{}
	}
	return u
}

func (u *Unit) GUID() uint64        { return u.guid }
func (u *Unit) Name() string        { return u.tmpl.Name }
func (u *Unit) Entry() uint32       { return u.tmpl.Entry }
func (u *Unit) Level() int          { return u.tmpl.Level }
func (u *Unit) Faction() uint32     { return u.tmpl.Faction }
func (u *Unit) IsPlayer() bool      { return u.tmpl.Player }
func (u *Unit) AIDomain() string    { return u.tmpl.AI }
func (u *Unit) Logger() *zap.Logger { return u.logger }

// Map returns the world context, or nil when the unit is not in a map.
func (u *Unit) Map() Map { return u.m }

// SetMap attaches the unit to m, or detaches it when m is nil.
// Called by the map on Add and Remove.
func (u *Unit) SetMap(m Map) { u.m = m }

// Now returns the map's scheduler time, or 0 outside a map.
func (u *Unit) Now() int64 {
	if u.m == nil {
		return 0
	}
	return u.m.Queue().Now()
}

// SetCastControl installs the unit's cast controller.
func (u *Unit) SetCastControl(c CastControl) { u.cast = c }

// CastControl returns the installed cast controller, or nil.
func (u *Unit) CastControl() CastControl { return u.cast }

// Cooldowns returns the unit's cooldown table.
func (u *Unit) Cooldowns() *Cooldowns { return u.cooldowns }

// Modifiers returns the unit's spell modifier table.
func (u *Unit) Modifiers() *ModifierTable { return &u.mods }

// Position returns the unit's current location.
func (u *Unit) Position() Position { return u.pos }

// Relocate moves the unit without counting as user movement.
func (u *Unit) Relocate(p Position) { u.pos = p }

// SetFacing turns the unit to angle o.
func (u *Unit) SetFacing(o float32) { u.pos.O = float32(normalizeAngle(float64(o))) }

// FaceTo turns the unit toward other.
func (u *Unit) FaceTo(other *Unit) { u.pos.O = u.pos.AngleTo(other.pos) }

// Distance returns the distance to other.
func (u *Unit) Distance(other *Unit) float32 { return u.pos.Distance(other.pos) }

// HasInArc reports whether other stands in the unit's frontal 180° arc.
func (u *Unit) HasInArc(other *Unit) bool { return u.pos.InArc(other.pos, math.Pi) }

// IsMoving reports whether the unit is moving under its own control.
func (u *Unit) IsMoving() bool { return u.moving }

// SetMoving updates the movement flag. Starting to move notifies the cast controller.
// Stunned or rooted units cannot start moving.
//
// Postcondition: Returns false when the change was refused.
func (u *Unit) SetMoving(moving bool) bool {
	if moving && (u.caps.stunned || u.caps.rooted) {
		return false
	}
	started := moving && !u.moving
	u.moving = moving
	if started && u.cast != nil {
		u.cast.OnUserStartsMoving()
	}
	return true
}

// KnockBack pushes the unit dist yards away from origin.
func (u *Unit) KnockBack(origin Position, dist float32) {
	away := u.pos.AngleTo(origin) + math.Pi
	if origin.X == u.pos.X && origin.Y == u.pos.Y {
		away = u.pos.O + math.Pi
	}
	u.pos.X += dist * float32(math.Cos(float64(away)))
	u.pos.Y += dist * float32(math.Sin(float64(away)))
}

// IsAlive reports whether the unit is alive.
func (u *Unit) IsAlive() bool              { return u.alive }
func (u *Unit) Health() int                { return u.health }
func (u *Unit) MaxHealth() int             { return u.maxHealth }
func (u *Unit) PowerType() spell.PowerType { return u.tmpl.PowerType }

// Power returns the current value of pool pt. PowerHealth reads health.
func (u *Unit) Power(pt spell.PowerType) int {
	if pt == spell.PowerHealth {
		return u.health
	}
	if pt < 0 || pt >= spell.PowerTypeCount {
		return 0
	}
	return u.power[pt]
}

// MaxPower returns the maximum of pool pt.
func (u *Unit) MaxPower(pt spell.PowerType) int {
	if pt == spell.PowerHealth {
		return u.maxHealth
	}
	if pt < 0 || pt >= spell.PowerTypeCount {
		return 0
	}
	return u.maxPower[pt]
}

// SetMaxPower sets the maximum of pool pt and clamps the current value.
func (u *Unit) SetMaxPower(pt spell.PowerType, limit int) {
	if pt < 0 || pt >= spell.PowerHealth {
		return
	}
	u.maxPower[pt] = limit
	if u.power[pt] > limit {
		u.power[pt] = limit
	}
}

// ModifyPower adds delta to pool pt clamped to [0, max] and returns the applied change.
// Draining health to zero kills the unit.
func (u *Unit) ModifyPower(pt spell.PowerType, delta int) int {
	if pt == spell.PowerHealth {
		return u.modifyHealth(delta, u.guid)
	}
	if pt < 0 || pt >= spell.PowerTypeCount {
		return 0
	}
	old := u.power[pt]
	u.power[pt] = clampInt(old+delta, 0, u.maxPower[pt])
	return u.power[pt] - old
}

func (u *Unit) modifyHealth(delta int, source uint64) int {
	if !u.alive {
		return 0
	}
	old := u.health
	u.health = clampInt(old+delta, 0, u.maxHealth)
	if u.health == 0 {
		u.Kill(source)
	}
	return u.health - old
}

// DealDamage removes up to amount health on behalf of attacker and returns the
// damage actually dealt. Lethal damage kills the unit.
func (u *Unit) DealDamage(attacker uint64, amount int) int {
	if !u.alive || amount <= 0 {
		return 0
	}
	dealt := amount
	if dealt > u.health {
		dealt = u.health
	}
	if attacker != 0 && attacker != u.guid {
		u.inCombat = true
		if u.victim == 0 {
			u.victim = attacker
		}
	}
	u.health -= dealt
	u.logger.Debug("damage taken",
		zap.Uint64("attacker", attacker),
		zap.Int("amount", dealt),
		zap.Int("health", u.health),
	)
	if u.health == 0 {
		u.Kill(attacker)
		return dealt
	}
	if u.cast != nil {
		u.cast.OnDamageTaken()
	}
	return dealt
}

// Heal restores up to amount health and returns the amount actually restored.
func (u *Unit) Heal(healer uint64, amount int) int {
	if !u.alive || amount <= 0 {
		return 0
	}
	old := u.health
	u.health = clampInt(old+amount, 0, u.maxHealth)
	u.logger.Debug("healed",
		zap.Uint64("healer", healer),
		zap.Int("amount", u.health-old),
	)
	return u.health - old
}

// Kill puts the unit into the dead state: its cast is interrupted, combat
// is cleared, and every aura that does not persist through death is removed.
func (u *Unit) Kill(killer uint64) {
	if !u.alive {
		return
	}
	u.alive = false
	u.health = 0
	u.moving = false
	u.logger.Info("unit died", zap.Uint64("killer", killer))
	if u.cast != nil {
		u.cast.OnDeath()
	}
	u.removeAurasOnDeath()
	u.LeaveCombat()
}

// Resurrect returns a dead unit to life with pct percent of its maximum health.
//
// Postcondition: Returns false when the unit was already alive.
func (u *Unit) Resurrect(pct int) bool {
	if u.alive {
		return false
	}
	pct = clampInt(pct, 1, 100)
	u.alive = true
	u.health = clampInt(u.maxHealth*pct/100, 1, u.maxHealth)
	u.logger.Info("unit resurrected", zap.Int("health", u.health))
	return true
}

// InCombat reports whether the unit is engaged in combat.
func (u *Unit) InCombat() bool { return u.inCombat }

// Victim returns the GUID of the unit's current attack target, or 0.
func (u *Unit) Victim() uint64 { return u.victim }

// EnterCombatWith flags both units as in combat and sets u's victim.
func (u *Unit) EnterCombatWith(other *Unit) {
	if other == nil || other == u {
		return
	}
	u.inCombat = true
	u.victim = other.guid
	other.inCombat = true
	if other.victim == 0 {
		other.victim = u.guid
	}
}

// LeaveCombat clears combat state.
func (u *Unit) LeaveCombat() {
	u.inCombat = false
	u.victim = 0
}

// SetEvading toggles evade mode; an evading unit avoids every attack.
func (u *Unit) SetEvading(evading bool) { u.evading = evading }

// IsHostileTo reports whether other is hostile by faction.
// Units outside a map are never hostile.
func (u *Unit) IsHostileTo(other *Unit) bool {
	if u.m == nil || other == nil || other == u {
		return false
	}
	return u.m.Factions().IsHostile(u.tmpl.Faction, other.tmpl.Faction)
}

// IsFriendlyTo reports whether other is friendly by faction; a unit is friendly to itself.
func (u *Unit) IsFriendlyTo(other *Unit) bool {
	if other == u {
		return true
	}
	if u.m == nil || other == nil {
		return false
	}
	return u.m.Factions().IsFriendly(u.tmpl.Faction, other.tmpl.Faction)
}

// KnowsSpell reports whether id is in the unit's spell book.
func (u *Unit) KnowsSpell(id uint32) bool {
	_, ok := u.known[id]
	return ok
}

// LearnSpell adds id to the spell book.
//
// Postcondition: Returns false when id was already known.
func (u *Unit) LearnSpell(id uint32) bool {
	if u.KnowsSpell(id) {
		return false
	}
	u.known[id] = struct{}{}
	u.logger.Debug("learned spell", zap.Uint32("spell", id))
	return true
}

// UnlearnSpell removes id from the spell book.
func (u *Unit) UnlearnSpell(id uint32) {
	delete(u.known, id)
}

// KnownSpells returns the spell book in ascending id order.
func (u *Unit) KnownSpells() []uint32 {
	out := make([]uint32, 0, len(u.known))
	for id := range u.known {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WeaponDamage rolls one main-hand hit between the template's min and max damage.
func (u *Unit) WeaponDamage(src dice.Source) int {
	lo, hi := u.tmpl.MinDamage, u.tmpl.MaxDamage
	if hi <= lo {
		return lo
	}
	return lo + src.Intn(hi-lo+1)
}

// BlockValue returns the damage a successful block absorbs.
func (u *Unit) BlockValue() int { return u.tmpl.BlockValue }

// IsStunned, IsRooted, IsSilenced, IsPacified, IsDisarmed and IsStealthed
// report capability flags derived from the unit's auras.
func (u *Unit) IsStunned() bool   { return u.caps.stunned }
func (u *Unit) IsRooted() bool    { return u.caps.rooted }
func (u *Unit) IsSilenced() bool  { return u.caps.silenced }
func (u *Unit) IsPacified() bool  { return u.caps.pacified }
func (u *Unit) IsDisarmed() bool  { return u.caps.disarmed }
func (u *Unit) IsStealthed() bool { return u.caps.stealthed }

// CombatStats snapshots the unit for the combat resolver, folding in aura modifiers.
func (u *Unit) CombatStats() combat.Stats {
	crit := float64(u.TotalAuraModifier(spell.AuraModCritPercent))
	hit := float64(u.TotalAuraModifier(spell.AuraModHitChance))
	return combat.Stats{
		Level:        u.tmpl.Level,
		IsPlayer:     u.tmpl.Player,
		HitPct:       u.tmpl.HitPct + hit,
		CritPct:      u.tmpl.CritPct + crit,
		SpellHitPct:  u.tmpl.SpellHitPct + hit,
		SpellCritPct: u.tmpl.SpellCritPct + crit,
		DodgePct:     u.tmpl.DodgePct + float64(u.TotalAuraModifier(spell.AuraModDodgePercent)),
		ParryPct:     u.tmpl.ParryPct + float64(u.TotalAuraModifier(spell.AuraModParryPercent)),
		BlockPct:     u.tmpl.BlockPct + float64(u.TotalAuraModifier(spell.AuraModBlockPercent)),
		CanDodge:     u.tmpl.CanDodge && u.alive && !u.caps.stunned,
		CanParry:     u.tmpl.CanParry && u.alive && !u.caps.stunned && !u.caps.disarmed,
		CanBlock:     u.tmpl.CanBlock && u.alive && !u.caps.stunned,
		Evading:      u.evading,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
