package ai

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/cast"
	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
)

// BrainConfig tunes the NPC think loop.
type BrainConfig struct {
	// TickMs is the delay between think passes.
	TickMs int64
	// AwarenessRadius bounds which units a brain considers.
	AwarenessRadius float32
}

// Brain runs the planner for every computer-controlled unit on a map at a
// fixed interval. It runs entirely on the map's scheduler goroutine.
type Brain struct {
	m      *world.Map
	reg    *Registry
	cfg    BrainConfig
	tick   *scheduler.Countdown
	logger *zap.Logger
}

// NewBrain creates a Brain for m.
//
// Precondition: m and reg must not be nil; cfg.TickMs > 0.
func NewBrain(m *world.Map, reg *Registry, cfg BrainConfig, logger *zap.Logger) *Brain {
	if cfg.TickMs <= 0 {
		panic("ai.NewBrain: TickMs must be > 0")
	}
	return &Brain{
		m:      m,
		reg:    reg,
		cfg:    cfg,
		tick:   scheduler.NewCountdown(m.Queue()),
		logger: logger,
	}
}

// Start arms the think loop.
func (b *Brain) Start() {
	b.tick.SetIn(b.cfg.TickMs, b.onTick)
}

// Stop disarms the think loop.
func (b *Brain) Stop() {
	b.tick.Cancel()
}

func (b *Brain) onTick() {
	b.Think()
	b.tick.SetIn(b.cfg.TickMs, b.onTick)
}

// Think runs one planning pass over every unit on the map.
func (b *Brain) Think() {
	for _, u := range b.m.Units() {
		if u.IsPlayer() || !u.IsAlive() || u.AIDomain() == "" {
			continue
		}
		b.think(u)
	}
}

func (b *Brain) think(u *unit.Unit) {
	planner, ok := b.reg.PlannerFor(u.AIDomain())
	if !ok {
		return
	}
	ctl, ok := cast.ControllerOf(u)
	if !ok || ctl.IsCasting() {
		return
	}
	ws := BuildWorldState(b.m, u, b.cfg.AwarenessRadius)
	plan, err := planner.Plan(ws)
	if err != nil {
		b.logger.Warn("planning", zap.Uint64("unit", u.GUID()), zap.Error(err))
		return
	}
	for _, act := range plan {
		switch act.Action {
		case ActionPass:
			return
		case ActionStop:
			ctl.StopCast()
			return
		case ActionCast:
			if b.tryCast(u, ctl, act) {
				return
			}
		}
	}
}

// tryCast reports whether the action started a cast.
func (b *Brain) tryCast(u *unit.Unit, ctl *cast.Controller, act PlannedAction) bool {
	entry, ok := b.m.Spells().Get(act.Spell)
	if !ok || !u.KnowsSpell(act.Spell) {
		return false
	}
	var tm targetmap.SpellTargetMap
	if act.Target != 0 && act.Target != u.GUID() {
		target, ok := b.m.FindUnit(act.Target)
		if !ok {
			return false
		}
		u.FaceTo(target)
		tm.SetUnitTarget(act.Target)
	}
	res, c := ctl.StartCast(entry, tm, -1, false, 0)
	b.logger.Debug("npc cast",
		zap.Uint64("unit", u.GUID()),
		zap.Uint32("spell", act.Spell),
		zap.Uint64("target", act.Target),
		zap.Stringer("result", res),
	)
	return c != nil && (res == cast.Success || ctl.IsCasting())
}
