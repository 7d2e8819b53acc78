package world_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
)

type recordingSession struct {
	ops []packet.Opcode
	err error
}

func (s *recordingSession) Send(op packet.Opcode, _ []byte) error {
	s.ops = append(s.ops, op)
	return s.err
}

func newMap(t *testing.T) *world.Map {
	t.Helper()
	mc := scheduler.NewManualClock(0)
	q := scheduler.NewQueue(mc, zap.NewNop())
	clock := world.NewGameClock(world.ClockConfig{StartHour: 12, HourDurationMs: 60000, DayStartHour: 6, NightStartHour: 20}, q)
	return world.NewMap(world.Config{ID: 1, VisibilityRadius: 50}, q, clock, spell.NewStore(), spell.NewFactionTable(), zap.NewNop())
}

func spawnAt(t *testing.T, m *world.Map, guid uint64, x float32) *unit.Unit {
	t.Helper()
	u := unit.New(guid, unit.Template{Name: "dummy", Level: 1, Health: 100}, zap.NewNop())
	u.Relocate(unit.Position{X: x})
	require.NoError(t, m.Add(u))
	return u
}

func TestMap_AddFindRemove(t *testing.T) {
	m := newMap(t)
	var entered, left []uint64
	m.OnEnter(func(u *unit.Unit) { entered = append(entered, u.GUID()) })
	m.OnLeave(func(u *unit.Unit) {
		_, stillThere := m.FindUnit(u.GUID())
		assert.True(t, stillThere)
		left = append(left, u.GUID())
	})

	u := spawnAt(t, m, 7, 0)
	assert.Equal(t, unit.Map(m), u.Map())
	assert.Error(t, m.Add(u))

	found, ok := m.FindUnit(7)
	require.True(t, ok)
	assert.Same(t, u, found)

	assert.True(t, m.Remove(7))
	assert.False(t, m.Remove(7))
	assert.Nil(t, u.Map())
	assert.Equal(t, []uint64{7}, entered)
	assert.Equal(t, []uint64{7}, left)
}

func TestMap_UnitsInRangeSorted(t *testing.T) {
	m := newMap(t)
	spawnAt(t, m, 3, 5)
	spawnAt(t, m, 1, 0)
	spawnAt(t, m, 2, 100)

	var guids []uint64
	for _, u := range m.UnitsInRange(unit.Position{}, 10) {
		guids = append(guids, u.GUID())
	}
	assert.Equal(t, []uint64{1, 3}, guids)
	assert.Len(t, m.Units(), 3)
}

func TestMap_BroadcastReachesObserversInRange(t *testing.T) {
	m := newMap(t)
	spawnAt(t, m, 1, 0)
	spawnAt(t, m, 2, 40)
	spawnAt(t, m, 3, 200)
	near, mid, far := &recordingSession{}, &recordingSession{err: errors.New("closed")}, &recordingSession{}
	require.NoError(t, m.AttachSession(1, near))
	require.NoError(t, m.AttachSession(2, mid))
	require.NoError(t, m.AttachSession(3, far))
	assert.Error(t, m.AttachSession(99, near))

	m.Broadcast(unit.Position{}, packet.OpSpellGo, []byte{1})
	assert.Equal(t, []packet.Opcode{packet.OpSpellGo}, near.ops)
	assert.Equal(t, []packet.Opcode{packet.OpSpellGo}, mid.ops)
	assert.Empty(t, far.ops)

	m.DetachSession(1)
	assert.Len(t, m.Observers(unit.Position{}), 1)
}

func TestMap_Environment(t *testing.T) {
	m := newMap(t)
	m.AddIndoorArea(world.Box{Min: unit.Position{X: 0, Y: 0, Z: 0}, Max: unit.Position{X: 10, Y: 10, Z: 5}})
	m.AddFocusObject(world.FocusObject{Entry: 4, Position: unit.Position{X: 20}})

	assert.True(t, m.IsIndoors(unit.Position{X: 5, Y: 5, Z: 1}))
	assert.False(t, m.IsIndoors(unit.Position{X: 11}))
	assert.True(t, m.HasFocusObject(4, unit.Position{X: 15}, 10))
	assert.False(t, m.HasFocusObject(4, unit.Position{}, 10))
	assert.False(t, m.HasFocusObject(5, unit.Position{X: 20}, 10))
	assert.True(t, m.IsDaytime())
}

func TestMap_Summon(t *testing.T) {
	m := newMap(t)
	m.RegisterTemplate(unit.Template{Entry: 9, Name: "imp", Level: 5, Faction: 3, Health: 50})
	owner := unit.New(1, unit.Template{Name: "warlock", Faction: 1, Health: 100}, zap.NewNop())
	require.NoError(t, m.Add(owner))

	imp, err := m.Summon(9, unit.Position{X: 2}, owner)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), imp.Faction())
	assert.Greater(t, imp.GUID(), uint64(1)<<48)
	_, ok := m.FindUnit(imp.GUID())
	assert.True(t, ok)

	_, err = m.Summon(10, unit.Position{}, owner)
	assert.Error(t, err)
}
