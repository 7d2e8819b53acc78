package cast_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
)

const (
	factionAlliance uint32 = 1
	factionHorde    uint32 = 2

	casterGUID uint64 = 1
	enemyGUID  uint64 = 2
	allyGUID   uint64 = 3
)

const (
	spellBuff uint32 = 100 + iota
	spellFireball
	spellCooldown
	spellDrain
	spellBolt
	spellHeal
	spellKick
	spellNova
	spellProc
	spellTrigger
	spellSilence
)

// fixedSource always rolls the same values: the die minimum and a draw
// that lands in the Normal band of any ordinary attack table.
type fixedSource struct {
	f float64
}

func (s fixedSource) Intn(int) int     { return 0 }
func (s fixedSource) Float64() float64 { return s.f }

type sent struct {
	op      packet.Opcode
	payload []byte
}

type recordingSession struct {
	packets []sent
}

func (s *recordingSession) Send(op packet.Opcode, payload []byte) error {
	s.packets = append(s.packets, sent{op: op, payload: payload})
	return nil
}

func (s *recordingSession) count(op packet.Opcode) int {
	n := 0
	for _, p := range s.packets {
		if p.op == op {
			n++
		}
	}
	return n
}

func (s *recordingSession) failures(t *testing.T) []packet.SpellFailure {
	t.Helper()
	var out []packet.SpellFailure
	for _, p := range s.packets {
		if p.op != packet.OpSpellFailure {
			continue
		}
		f, err := packet.UnmarshalSpellFailure(p.payload)
		require.NoError(t, err)
		out = append(out, f)
	}
	return out
}

type effectEvent struct {
	spell  uint32
	index  int
	target uint64
}

type recordingListener struct {
	started []*cast.Casting
	ended   map[*cast.Casting]int
	success map[*cast.Casting]bool
	effects []effectEvent
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ended: make(map[*cast.Casting]int), success: make(map[*cast.Casting]bool)}
}

func (l *recordingListener) CastStarted(c *cast.Casting) { l.started = append(l.started, c) }

func (l *recordingListener) CastEnded(c *cast.Casting, success bool) {
	l.ended[c]++
	l.success[c] = success
}

func (l *recordingListener) EffectCompleted(c *cast.Casting, idx int, target uint64) {
	l.effects = append(l.effects, effectEvent{spell: c.Spell().ID, index: idx, target: target})
}

func (l *recordingListener) effectsOn(target uint64) int {
	n := 0
	for _, e := range l.effects {
		if e.target == target {
			n++
		}
	}
	return n
}

type fixture struct {
	t        *testing.T
	clock    *scheduler.ManualClock
	q        *scheduler.Queue
	m        *world.Map
	spells   *spell.Store
	engine   *cast.Engine
	session  *recordingSession
	listener *recordingListener
	src      *fixedSource
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mc := scheduler.NewManualClock(0)
	q := scheduler.NewQueue(mc, zap.NewNop())
	clock := world.NewGameClock(world.ClockConfig{StartHour: 12, HourDurationMs: 3600000, DayStartHour: 6, NightStartHour: 20}, q)
	spells := testSpells()
	factions := spell.NewFactionTable(
		&spell.Faction{ID: factionAlliance, Name: "alliance", Enemies: []uint32{factionHorde}},
		&spell.Faction{ID: factionHorde, Name: "horde", Enemies: []uint32{factionAlliance}},
	)
	m := world.NewMap(world.Config{ID: 1, VisibilityRadius: 100}, q, clock, spells, factions, zap.NewNop())
	src := &fixedSource{f: 0.99}
	engine := cast.NewEngine(cast.DefaultConfig(), dice.NewLoggedRoller(src, zap.NewNop()), zap.NewNop())
	l := newRecordingListener()
	engine.AddListener(l)
	return &fixture{
		t:        t,
		clock:    mc,
		q:        q,
		m:        m,
		spells:   spells,
		engine:   engine,
		session:  &recordingSession{},
		listener: l,
		src:      src,
	}
}

// spawn adds a unit knowing every test spell and attaches its controller.
// The caster also gets the recording session.
func (f *fixture) spawn(guid uint64, faction uint32, pos unit.Position) (*unit.Unit, *cast.Controller) {
	f.t.Helper()
	tmpl := unit.Template{
		Name:      "mage",
		Level:     10,
		Faction:   faction,
		Health:    1000,
		PowerType: spell.PowerMana,
		Power:     500,
		MinDamage: 10,
		MaxDamage: 10,
	}
	for _, e := range f.spells.All() {
		tmpl.Spells = append(tmpl.Spells, e.ID)
	}
	u := unit.New(guid, tmpl, zap.NewNop())
	u.Relocate(pos)
	require.NoError(f.t, f.m.Add(u))
	ctl := f.engine.Attach(u)
	if guid == casterGUID {
		require.NoError(f.t, f.m.AttachSession(guid, f.session))
	}
	return u, ctl
}

// duel spawns the caster at the origin facing an enemy 10 yards ahead
// and an ally 5 yards behind.
func (f *fixture) duel() (caster *unit.Unit, ctl *cast.Controller, enemy *unit.Unit) {
	caster, ctl = f.spawn(casterGUID, factionAlliance, unit.Position{})
	enemy, _ = f.spawn(enemyGUID, factionHorde, unit.Position{X: 10, O: 3.14159})
	f.spawn(allyGUID, factionAlliance, unit.Position{X: -5})
	return caster, ctl, enemy
}

func (f *fixture) advance(ms int64) {
	f.q.Update(f.clock.Advance(ms))
}

func (f *fixture) get(id uint32) *spell.Entry {
	e, ok := f.spells.Get(id)
	require.True(f.t, ok, "spell %d", id)
	return e
}

func at(guid uint64) targetmap.SpellTargetMap {
	var tm targetmap.SpellTargetMap
	tm.SetUnitTarget(guid)
	return tm
}

func testSpells() *spell.Store {
	s := spell.NewStore()
	s.RegisterRange(spell.RangeEntry{ID: 1, Min: 0, Max: 30, Name: "medium"})
	s.RegisterRange(spell.RangeEntry{ID: 2, Min: 0, Max: 5, Name: "melee"})

	s.Register(&spell.Entry{
		ID: spellBuff, Name: "Inner Fire", DurationMs: 10000,
		Effects: []spell.Effect{
			{Type: spell.EffectApplyAura, Target: spell.TargetCaster, Aura: spell.AuraModDamageDone, BasePoints: 20},
			{Type: spell.EffectApplyAura, Target: spell.TargetCaster, Aura: spell.AuraModResistance, BasePoints: 10},
		},
	})
	s.Register(&spell.Entry{
		ID: spellFireball, Name: "Fireball", School: spell.SchoolFire, Attributes: spell.AttrNegative,
		CastTimeMs: 1500, InterruptCooldownMs: 3000, PowerType: spell.PowerMana, PowerCost: 50, RangeID: 1,
		InterruptFlags: spell.InterruptMovement | spell.InterruptPushback,
		Effects: []spell.Effect{
			{Type: spell.EffectSchoolDamage, Target: spell.TargetEnemy, BasePoints: 100},
		},
	})
	s.Register(&spell.Entry{
		ID: spellCooldown, Name: "Evocation", CooldownMs: 5000, Category: 7, CategoryCooldownMs: 1000,
		Effects: []spell.Effect{
			{Type: spell.EffectEnergize, Target: spell.TargetCaster, BasePoints: 25, MiscValue: int32(spell.PowerMana)},
		},
	})
	s.Register(&spell.Entry{
		ID: spellDrain, Name: "Drain Life", School: spell.SchoolShadow,
		Attributes: spell.AttrNegative | spell.AttrChanneled | spell.AttrChannelAurasEndWithChannel,
		RangeID:    1, ChannelInterruptFlags: spell.InterruptMovement,
		Effects: []spell.Effect{
			{Type: spell.EffectApplyAura, Target: spell.TargetEnemy, Aura: spell.AuraPeriodicDamage, BasePoints: 10, AmplitudeMs: 1000},
		},
	})
	s.Register(&spell.Entry{
		ID: spellBolt, Name: "Frost Bolt", School: spell.SchoolFrost, Attributes: spell.AttrNegative,
		Speed: 20, RangeID: 1,
		Effects: []spell.Effect{
			{Type: spell.EffectSchoolDamage, Target: spell.TargetEnemy, BasePoints: 100},
		},
	})
	s.Register(&spell.Entry{
		ID: spellHeal, Name: "Heal", School: spell.SchoolHoly, RangeID: 1,
		Effects: []spell.Effect{
			{Type: spell.EffectHeal, Target: spell.TargetAlly, BasePoints: 200},
		},
	})
	s.Register(&spell.Entry{
		ID: spellKick, Name: "Kick", Attributes: spell.AttrNegative, RangeID: 1,
		Effects: []spell.Effect{
			{Type: spell.EffectInterruptCast, Target: spell.TargetEnemy, BasePoints: 4000},
		},
	})
	s.Register(&spell.Entry{
		ID: spellNova, Name: "Holy Nova", School: spell.SchoolHoly,
		Effects: []spell.Effect{
			{Type: spell.EffectHeal, Target: spell.TargetAreaAllyAroundCaster, Radius: 8, BasePoints: 50},
		},
	})
	s.Register(&spell.Entry{
		ID: spellProc, Name: "Flame Lash", School: spell.SchoolFire, Attributes: spell.AttrNegative,
		Effects: []spell.Effect{
			{Type: spell.EffectSchoolDamage, Target: spell.TargetEnemy, BasePoints: 5},
		},
	})
	s.Register(&spell.Entry{
		ID: spellTrigger, Name: "Ignite", School: spell.SchoolFire, Attributes: spell.AttrNegative, RangeID: 1,
		Effects: []spell.Effect{
			{Type: spell.EffectTriggerSpell, Target: spell.TargetEnemy, TriggerSpell: spellProc},
		},
	})
	s.Register(&spell.Entry{
		ID: spellSilence, Name: "Silence", School: spell.SchoolShadow, Attributes: spell.AttrNegative,
		RangeID: 1, DurationMs: 5000,
		Effects: []spell.Effect{
			{Type: spell.EffectApplyAura, Target: spell.TargetEnemy, Aura: spell.AuraModSilence},
		},
	})
	return s
}

// variant registers a copy of base under id, changed by mutate, and
// teaches it to learner.
func (f *fixture) variant(learner *unit.Unit, base, id uint32, mutate func(e *spell.Entry)) *spell.Entry {
	e := *f.get(base)
	e.ID = id
	mutate(&e)
	f.spells.Register(&e)
	learner.LearnSpell(id)
	return &e
}

func worldBox(lo, hi float32) world.Box {
	return world.Box{
		Min: unit.Position{X: lo, Y: lo, Z: lo},
		Max: unit.Position{X: hi, Y: hi, Z: hi},
	}
}

func focusAt(entry uint32, x float32) world.FocusObject {
	return world.FocusObject{Entry: entry, Position: unit.Position{X: x}}
}
