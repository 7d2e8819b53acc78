// Package world is the map collaborator of the spell engine: it registers
// units by GUID, answers range and observer queries, broadcasts payloads,
// and owns the environment the cast checks consult (day/night, indoor areas,
// spell focus objects, summon templates).
package world

import (
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// summonGUIDBase keeps generated GUIDs clear of content-assigned ones.
const summonGUIDBase uint64 = 1 << 48

// Box is an axis-aligned volume.
type Box struct {
	Min unit.Position `yaml:"min"`
	Max unit.Position `yaml:"max"`
}

// Contains reports whether p lies inside b, edges included.
func (b Box) Contains(p unit.Position) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// FocusObject is a spell focus placed in the world.
type FocusObject struct {
	Entry    uint32        `yaml:"entry"`
	Position unit.Position `yaml:"position"`
}

// Config holds the static settings of one map.
type Config struct {
	ID               uint32
	VisibilityRadius float32
}

// Map is one simulation map. It is not safe for concurrent use; every call
// happens on the logic thread that runs its scheduler queue.
type Map struct {
	cfg      Config
	logger   *zap.Logger
	q        *scheduler.Queue
	clock    *GameClock
	spells   *spell.Store
	factions *spell.FactionTable

	units     map[uint64]*unit.Unit
	sessions  map[uint64]Session
	indoors   []Box
	focus     []FocusObject
	templates map[uint32]unit.Template
	nextGUID  uint64

	onEnter []func(*unit.Unit)
	onLeave []func(*unit.Unit)
}

// NewMap creates an empty map.
//
// Precondition: every argument must be non-nil.
func NewMap(cfg Config, q *scheduler.Queue, clock *GameClock, spells *spell.Store, factions *spell.FactionTable, logger *zap.Logger) *Map {
	return &Map{
		cfg:       cfg,
		logger:    logger.With(zap.Uint32("map", cfg.ID)),
		q:         q,
		clock:     clock,
		spells:    spells,
		factions:  factions,
		units:     make(map[uint64]*unit.Unit),
		sessions:  make(map[uint64]Session),
		templates: make(map[uint32]unit.Template),
		nextGUID:  summonGUIDBase,
	}
}

func (m *Map) ID() uint32                    { return m.cfg.ID }
func (m *Map) Queue() *scheduler.Queue       { return m.q }
func (m *Map) Clock() *GameClock             { return m.clock }
func (m *Map) Spells() *spell.Store          { return m.spells }
func (m *Map) Factions() *spell.FactionTable { return m.factions }
func (m *Map) IsDaytime() bool               { return m.clock.IsDaytime() }
func (m *Map) Len() int                      { return len(m.units) }

// OnEnter registers fn to run after a unit joins the map.
func (m *Map) OnEnter(fn func(*unit.Unit)) { m.onEnter = append(m.onEnter, fn) }

// OnLeave registers fn to run before a unit leaves the map, while it can still be found.
func (m *Map) OnLeave(fn func(*unit.Unit)) { m.onLeave = append(m.onLeave, fn) }

// Add registers u and attaches it to the map.
//
// Precondition: u must be non-nil.
// Postcondition: FindUnit(u.GUID()) returns u, or an error when the GUID is taken.
func (m *Map) Add(u *unit.Unit) error {
	if _, exists := m.units[u.GUID()]; exists {
		return fmt.Errorf("map %d: duplicate unit guid %d", m.cfg.ID, u.GUID())
	}
	m.units[u.GUID()] = u
	u.SetMap(m)
	m.logger.Debug("unit entered", zap.Uint64("unit", u.GUID()), zap.String("name", u.Name()))
	for _, fn := range m.onEnter {
		fn(u)
	}
	return nil
}

// Remove detaches the unit with guid: leave hooks run first, then its cast
// is interrupted and every aura removed.
//
// Postcondition: Returns false when no such unit exists.
func (m *Map) Remove(guid uint64) bool {
	u, ok := m.units[guid]
	if !ok {
		return false
	}
	for _, fn := range m.onLeave {
		fn(u)
	}
	if c := u.CastControl(); c != nil {
		c.Interrupt()
	}
	u.RemoveAllAuras()
	delete(m.units, guid)
	delete(m.sessions, guid)
	u.SetMap(nil)
	m.logger.Debug("unit left", zap.Uint64("unit", guid))
	return true
}

// FindUnit resolves a GUID to a unit in the map.
func (m *Map) FindUnit(guid uint64) (*unit.Unit, bool) {
	u, ok := m.units[guid]
	return u, ok
}

// Units returns every unit in ascending GUID order.
func (m *Map) Units() []*unit.Unit {
	return m.sorted(func(*unit.Unit) bool { return true })
}

// UnitsInRange returns the units within radius yards of pos in ascending GUID order.
func (m *Map) UnitsInRange(pos unit.Position, radius float32) []*unit.Unit {
	return m.sorted(func(u *unit.Unit) bool { return u.Position().Distance(pos) <= radius })
}

func (m *Map) sorted(match func(*unit.Unit) bool) []*unit.Unit {
	out := make([]*unit.Unit, 0, len(m.units))
	for _, u := range m.units {
		if match(u) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b *unit.Unit) int {
		switch {
		case a.GUID() < b.GUID():
			return -1
		case a.GUID() > b.GUID():
			return 1
		}
		return 0
	})
	return out
}

// AttachSession makes the unit with guid an observer that receives broadcasts.
func (m *Map) AttachSession(guid uint64, s Session) error {
	if _, ok := m.units[guid]; !ok {
		return fmt.Errorf("map %d: attach session: unknown unit %d", m.cfg.ID, guid)
	}
	m.sessions[guid] = s
	return nil
}

// DetachSession stops broadcasts to guid.
func (m *Map) DetachSession(guid uint64) {
	delete(m.sessions, guid)
}

// Observers returns the sessions of units within visibility range of pos,
// ordered by observer GUID.
func (m *Map) Observers(pos unit.Position) []Session {
	var guids []uint64
	for guid := range m.sessions {
		u, ok := m.units[guid]
		if ok && u.Position().Distance(pos) <= m.cfg.VisibilityRadius {
			guids = append(guids, guid)
		}
	}
	slices.Sort(guids)
	out := make([]Session, 0, len(guids))
	for _, g := range guids {
		out = append(out, m.sessions[g])
	}
	return out
}

// Broadcast sends the payload to every observer of pos. Send failures are
// logged and do not stop delivery to the others.
func (m *Map) Broadcast(pos unit.Position, op packet.Opcode, payload []byte) {
	for _, s := range m.Observers(pos) {
		if err := s.Send(op, payload); err != nil {
			m.logger.Warn("broadcast send failed", zap.Stringer("opcode", op), zap.Error(err))
		}
	}
}

// AddIndoorArea marks b as indoors.
func (m *Map) AddIndoorArea(b Box) { m.indoors = append(m.indoors, b) }

// IsIndoors reports whether pos lies in any indoor area.
func (m *Map) IsIndoors(pos unit.Position) bool {
	for _, b := range m.indoors {
		if b.Contains(pos) {
			return true
		}
	}
	return false
}

// AddFocusObject places a spell focus in the map.
func (m *Map) AddFocusObject(f FocusObject) { m.focus = append(m.focus, f) }

// HasFocusObject reports whether a focus of entry lies within radius of pos.
func (m *Map) HasFocusObject(entry uint32, pos unit.Position, radius float32) bool {
	for _, f := range m.focus {
		if f.Entry == entry && f.Position.Distance(pos) <= radius {
			return true
		}
	}
	return false
}

// RegisterTemplate makes tmpl available to Summon.
func (m *Map) RegisterTemplate(tmpl unit.Template) {
	m.templates[tmpl.Entry] = tmpl
}

// Template returns the registered template for entry.
func (m *Map) Template(entry uint32) (unit.Template, bool) {
	t, ok := m.templates[entry]
	return t, ok
}

// NewGUID returns a fresh GUID for a generated unit.
func (m *Map) NewGUID() uint64 {
	m.nextGUID++
	return m.nextGUID
}

// Summon spawns a unit of template entry at pos. The summon takes the
// summoner's faction so it fights on the same side.
func (m *Map) Summon(entry uint32, pos unit.Position, summoner *unit.Unit) (*unit.Unit, error) {
	tmpl, ok := m.templates[entry]
	if !ok {
		return nil, fmt.Errorf("map %d: summon: unknown template %d", m.cfg.ID, entry)
	}
	if summoner != nil {
		tmpl.Faction = summoner.Faction()
	}
	u := unit.New(m.NewGUID(), tmpl, m.logger)
	u.Relocate(pos)
	if err := m.Add(u); err != nil {
		return nil, err
	}
	m.logger.Info("unit summoned",
		zap.Uint64("unit", u.GUID()),
		zap.Uint32("entry", entry),
	)
	return u, nil
}

var _ unit.Map = (*Map)(nil)
