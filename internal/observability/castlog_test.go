package observability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
	"github.com/cory-johannsen/spellcore/internal/observability"
)

func TestCastLog_RecordsStartEffectAndEnd(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	q := scheduler.NewQueue(scheduler.NewManualClock(0), zap.NewNop())
	clock := world.NewGameClock(world.ClockConfig{StartHour: 12, HourDurationMs: 60000, DayStartHour: 6, NightStartHour: 20}, q)
	spells := spell.NewStore()
	spells.Register(&spell.Entry{
		ID: 7, Name: "Renew",
		Effects: []spell.Effect{{Type: spell.EffectHeal, Target: spell.TargetCaster, BasePoints: 5}},
	})
	m := world.NewMap(world.Config{ID: 1, VisibilityRadius: 50}, q, clock, spells, spell.NewFactionTable(), zap.NewNop())

	engine := cast.NewEngine(cast.DefaultConfig(), dice.NewLoggedRoller(dice.NewSeededSource(3), zap.NewNop()), zap.NewNop())
	engine.AddListener(observability.NewCastLog(zap.New(core)))

	caster := unit.New(1, unit.Template{Name: "cleric", Level: 5, Faction: 1, Health: 50, Spells: []uint32{7}}, zap.NewNop())
	require.NoError(t, m.Add(caster))
	ctl := engine.Attach(caster)

	entry, _ := spells.Get(7)
	res, c := ctl.StartCast(entry, targetmap.SpellTargetMap{}, 0, false, 0)
	require.Equal(t, cast.Success, res)
	require.True(t, c.Succeeded())

	assert.Equal(t, 1, logs.FilterMessage("cast started").Len())
	assert.Equal(t, 1, logs.FilterMessage("effect applied").Len())
	ended := logs.FilterMessage("cast succeeded").All()
	require.Len(t, ended, 1)
	assert.Equal(t, "Renew", ended[0].ContextMap()["spell"])
	assert.Equal(t, "success", ended[0].ContextMap()["result"])
}

func TestCastLog_FailureLoggedAtInfo(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	q := scheduler.NewQueue(scheduler.NewManualClock(0), zap.NewNop())
	clock := world.NewGameClock(world.ClockConfig{StartHour: 12, HourDurationMs: 60000, DayStartHour: 6, NightStartHour: 20}, q)
	spells := spell.NewStore()
	spells.Register(&spell.Entry{
		ID: 8, Name: "Forgotten",
		Effects: []spell.Effect{{Type: spell.EffectHeal, Target: spell.TargetCaster, BasePoints: 5}},
	})
	m := world.NewMap(world.Config{ID: 1, VisibilityRadius: 50}, q, clock, spells, spell.NewFactionTable(), zap.NewNop())
	engine := cast.NewEngine(cast.DefaultConfig(), dice.NewLoggedRoller(dice.NewSeededSource(3), zap.NewNop()), zap.NewNop())
	engine.AddListener(observability.NewCastLog(zap.New(core)))

	caster := unit.New(1, unit.Template{Name: "novice", Level: 1, Faction: 1, Health: 50}, zap.NewNop())
	require.NoError(t, m.Add(caster))
	ctl := engine.Attach(caster)

	entry, _ := spells.Get(8)
	res, _ := ctl.StartCast(entry, targetmap.SpellTargetMap{}, 0, false, 0)
	require.Equal(t, cast.NotKnown, res)

	failed := logs.FilterMessage("cast failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, zapcore.InfoLevel, failed[0].Level)
	assert.Equal(t, logs.Len(), 1, "debug lines are filtered at info")
}
