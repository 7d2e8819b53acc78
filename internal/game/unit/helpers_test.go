package unit_test

import (
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

const (
	factionAlliance uint32 = 1
	factionHorde    uint32 = 2
)

type sentPacket struct {
	op      packet.Opcode
	payload []byte
}

// testMap is a minimal in-memory Map driven by a manual clock.
type testMap struct {
	clock    *scheduler.ManualClock
	q        *scheduler.Queue
	units    map[uint64]*unit.Unit
	factions *spell.FactionTable
	spells   *spell.Store
	sent     []sentPacket
	daytime  bool
}

func newTestMap() *testMap {
	clock := scheduler.NewManualClock(0)
	return &testMap{
		clock: clock,
		q:     scheduler.NewQueue(clock, zap.NewNop()),
		units: make(map[uint64]*unit.Unit),
		factions: spell.NewFactionTable(
			&spell.Faction{ID: factionAlliance, Name: "alliance", Enemies: []uint32{factionHorde}},
			&spell.Faction{ID: factionHorde, Name: "horde"},
		),
		spells:  spell.NewStore(),
		daytime: true,
	}
}

func (m *testMap) Queue() *scheduler.Queue { return m.q }

func (m *testMap) FindUnit(guid uint64) (*unit.Unit, bool) {
	u, ok := m.units[guid]
	return u, ok
}

func (m *testMap) UnitsInRange(pos unit.Position, radius float32) []*unit.Unit {
	var out []*unit.Unit
	for _, u := range m.units {
		if u.Position().Distance(pos) <= radius {
			out = append(out, u)
		}
	}
	return out
}

func (m *testMap) Broadcast(_ unit.Position, op packet.Opcode, payload []byte) {
	m.sent = append(m.sent, sentPacket{op: op, payload: payload})
}

func (m *testMap) Factions() *spell.FactionTable { return m.factions }
func (m *testMap) Spells() *spell.Store          { return m.spells }
func (m *testMap) IsDaytime() bool               { return m.daytime }
func (m *testMap) IsIndoors(unit.Position) bool  { return false }

func (m *testMap) HasFocusObject(uint32, unit.Position, float32) bool { return false }

func (m *testMap) Summon(uint32, unit.Position, *unit.Unit) (*unit.Unit, error) {
	return nil, errors.New("summon not supported")
}

// advance moves the clock forward by ms and runs every due event.
func (m *testMap) advance(ms int64) {
	m.q.Update(m.clock.Advance(ms))
}

func (m *testMap) add(guid uint64, tmpl unit.Template) *unit.Unit {
	u := unit.New(guid, tmpl, zap.NewNop())
	u.SetMap(m)
	m.units[guid] = u
	return u
}

func (m *testMap) remove(guid uint64) {
	if u, ok := m.units[guid]; ok {
		u.SetMap(nil)
		delete(m.units, guid)
	}
}

func (m *testMap) auraUpdates() []packet.AuraUpdate {
	var out []packet.AuraUpdate
	for _, s := range m.sent {
		if s.op != packet.OpAuraUpdate {
			continue
		}
		p, err := packet.UnmarshalAuraUpdate(s.payload)
		if err != nil {
			panic(err)
		}
		out = append(out, p)
	}
	return out
}

func warrior(faction uint32) unit.Template {
	return unit.Template{
		Name:      "warrior",
		Level:     10,
		Faction:   faction,
		Health:    1000,
		PowerType: spell.PowerMana,
		Power:     500,
		MinDamage: 10,
		MaxDamage: 20,
		CanDodge:  true,
		CanParry:  true,
		CanBlock:  true,
		DodgePct:  5,
	}
}

// recordingCast counts the calls a unit makes into its cast controller.
type recordingCast struct {
	procs      []uint32
	interrupts int
	moves      int
	damaged    int
	deaths     int
}

func (r *recordingCast) CastProc(e *spell.Entry, _ uint64) { r.procs = append(r.procs, e.ID) }
func (r *recordingCast) Interrupt()                        { r.interrupts++ }
func (r *recordingCast) OnUserStartsMoving()               { r.moves++ }
func (r *recordingCast) OnDamageTaken()                    { r.damaged++ }
func (r *recordingCast) OnDeath()                          { r.deaths++ }

func auraEntry(id uint32, attrs spell.Attributes, durationMs int64, effects ...spell.Effect) *spell.Entry {
	return &spell.Entry{ID: id, Name: "aura", Attributes: attrs, DurationMs: durationMs, Effects: effects}
}

func auraEffect(t spell.AuraType, points int) spell.Effect {
	return spell.Effect{Type: spell.EffectApplyAura, Target: spell.TargetAny, Aura: t, BasePoints: points}
}

func periodic(t spell.AuraType, points int, amplitude int64) spell.Effect {
	e := auraEffect(t, points)
	e.AmplitudeMs = amplitude
	return e
}

// newAura builds a container of entry from caster on owner with every effect added at base points.
func newAura(m *testMap, entry *spell.Entry, owner, caster uint64) *unit.AuraContainer {
	c := unit.NewAuraContainer(m, unit.AuraSpec{
		Entry:       entry,
		Owner:       owner,
		Caster:      caster,
		DurationMs:  entry.DurationMs,
		CasterLevel: 10,
	})
	for i := range entry.Effects {
		c.AddAuraEffect(i, &entry.Effects[i], entry.Effects[i].BasePoints)
	}
	return c
}
