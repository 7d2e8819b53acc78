package ai_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/ai"
	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
	"github.com/cory-johannsen/spellcore/internal/scripting"
)

// hitSource lands every attack roll in the ordinary hit band.
type hitSource struct{}

func (hitSource) Intn(int) int     { return 0 }
func (hitSource) Float64() float64 { return 0.99 }

type brainWorld struct {
	mc    *scheduler.ManualClock
	q     *scheduler.Queue
	m     *world.Map
	brain *ai.Brain
}

func newBrainWorld(t *testing.T) *brainWorld {
	t.Helper()
	spells, err := spell.LoadDirectory("../../../content/spells")
	require.NoError(t, err)
	factions, err := spell.LoadFactions("../../../content/factions.yaml")
	require.NoError(t, err)
	spawns, err := world.LoadSpawns("../../../content/spawns.yaml")
	require.NoError(t, err)
	domains, err := ai.LoadDomains("../../../content/ai")
	require.NoError(t, err)

	mc := scheduler.NewManualClock(0)
	q := scheduler.NewQueue(mc, zap.NewNop())
	clock := world.NewGameClock(world.ClockConfig{StartHour: 12, HourDurationMs: 60000, DayStartHour: 6, NightStartHour: 20}, q)
	m := world.NewMap(world.Config{ID: 1, VisibilityRadius: 100}, q, clock, spells, factions, zap.NewNop())

	roller := dice.NewLoggedRoller(hitSource{}, zap.NewNop())
	engine := cast.NewEngine(cast.DefaultConfig(), roller, zap.NewNop())
	mgr := scripting.NewManager(roller, zap.NewNop(), scripting.DefaultInstructionLimit)
	t.Cleanup(mgr.Close)
	require.NoError(t, mgr.LoadDir("../../../content/scripts"))
	mgr.BindWorld(m)
	engine.SetScriptHandler(mgr)
	m.OnEnter(func(u *unit.Unit) { engine.Attach(u) })

	reg := ai.NewRegistry()
	for _, d := range domains {
		require.NoError(t, d.CheckSpells(func(id uint32) bool { _, ok := spells.Get(id); return ok }))
		require.NoError(t, reg.Register(d, mgr))
	}

	_, err = spawns.Populate(m, zap.NewNop())
	require.NoError(t, err)

	brain := ai.NewBrain(m, reg, ai.BrainConfig{TickMs: 1000, AwarenessRadius: 40}, zap.NewNop())
	return &brainWorld{mc: mc, q: q, m: m, brain: brain}
}

func (w *brainWorld) unit(t *testing.T, guid uint64) *unit.Unit {
	t.Helper()
	u, ok := w.m.FindUnit(guid)
	require.True(t, ok)
	return u
}

func TestBuildWorldState_SeesHostileAndFriendlyUnits(t *testing.T) {
	w := newBrainWorld(t)

	ws := ai.BuildWorldState(w.m, w.unit(t, 2), 40)
	require.Len(t, ws.Combatants, 1, "the warden is neutral to the acolyte")
	assert.Equal(t, uint64(1), ws.Combatants[0].GUID)
	assert.True(t, ws.Combatants[0].Hostile)
	assert.InDelta(t, 18, ws.Combatants[0].Distance, 0.01)

	ws = ai.BuildWorldState(w.m, w.unit(t, 3), 40)
	require.Len(t, ws.Combatants, 1)
	assert.Equal(t, uint64(1), ws.Combatants[0].GUID)
	assert.False(t, ws.Combatants[0].Hostile)
}

func TestBrain_AcolyteFallsBackToRangedSpell(t *testing.T) {
	w := newBrainWorld(t)
	acolyte := w.unit(t, 2)

	w.brain.Think()

	ctl, ok := cast.ControllerOf(acolyte)
	require.True(t, ok)
	require.True(t, ctl.IsCasting(), "Strike is out of melee range so Fireball is cast")
	assert.Equal(t, uint32(133), ctl.Current().Spell().ID)
}

func TestBrain_WardenHealsWoundedAlly(t *testing.T) {
	w := newBrainWorld(t)
	player := w.unit(t, 1)

	w.brain.Think()
	assert.False(t, player.HasAura(139), "nobody is hurt yet")

	player.DealDamage(0, 300)
	w.brain.Think()
	assert.True(t, player.HasAura(139))
}

func TestBrain_IgnoresPlayersAndDeadUnits(t *testing.T) {
	w := newBrainWorld(t)
	acolyte := w.unit(t, 2)
	acolyte.Kill(0)

	w.brain.Think()

	for _, guid := range []uint64{1, 2} {
		ctl, ok := cast.ControllerOf(w.unit(t, guid))
		require.True(t, ok)
		assert.False(t, ctl.IsCasting(), "unit %d must not cast", guid)
	}
}

func TestBrain_StartArmsTick(t *testing.T) {
	w := newBrainWorld(t)
	acolyte := w.unit(t, 2)
	ctl, _ := cast.ControllerOf(acolyte)

	w.brain.Start()
	w.q.Update(w.mc.Advance(999))
	assert.False(t, ctl.IsCasting())

	w.q.Update(w.mc.Advance(1))
	assert.True(t, ctl.IsCasting())

	w.brain.Stop()
}
