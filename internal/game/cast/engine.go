// Package cast implements the per-unit spell cast controller: the Idle and
// Active cast states, validation, resource consumption, channels, projectile
// travel, and dispatch of spell effects to their handlers.
package cast

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/dice"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
)

// Config tunes the cast engine.
type Config struct {
	// ProjectileStepMs caps one simulated projectile step.
	ProjectileStepMs int64
	// ProjectileFinalizeMs resolves the impact once less travel time remains.
	ProjectileFinalizeMs int64
	// FocusRadius is how close a required spell focus must be, in yards.
	FocusRadius float32
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{ProjectileStepMs: 200, ProjectileFinalizeMs: 50, FocusRadius: 10}
}

// ScriptCall carries one ScriptEffect invocation.
type ScriptCall struct {
	SpellID     uint32
	EffectIndex int
	Caster      uint64
	Target      uint64
	Points      int
}

// ScriptHandler runs ScriptEffect effects.
type ScriptHandler interface {
	ScriptEffect(call ScriptCall)
}

// Engine holds what every controller shares: tuning, randomness,
// listeners, and the script handler.
type Engine struct {
	cfg       Config
	roller    *dice.Roller
	logger    *zap.Logger
	listeners []Listener
	scripts   ScriptHandler
}

// NewEngine creates an Engine.
//
// Precondition: roller and logger must be non-nil; cfg step and finalize must be positive.
func NewEngine(cfg Config, roller *dice.Roller, logger *zap.Logger) *Engine {
	if cfg.ProjectileStepMs <= 0 || cfg.ProjectileFinalizeMs <= 0 {
		panic("cast: NewEngine called with non-positive projectile timing")
	}
	return &Engine{cfg: cfg, roller: roller, logger: logger}
}

// AddListener subscribes l to every controller's notifications.
func (e *Engine) AddListener(l Listener) { e.listeners = append(e.listeners, l) }

// SetScriptHandler installs the ScriptEffect handler.
func (e *Engine) SetScriptHandler(h ScriptHandler) { e.scripts = h }

// Attach creates the cast controller of u and installs it on the unit.
//
// Postcondition: ControllerOf(u) returns the new controller, in the Idle state.
func (e *Engine) Attach(u *unit.Unit) *Controller {
	c := &Controller{
		engine: e,
		unit:   u,
		logger: u.Logger(),
		state:  Idle{},
	}
	u.SetCastControl(c)
	return c
}

// ControllerOf returns the controller attached to u.
func ControllerOf(u *unit.Unit) (*Controller, bool) {
	c, ok := u.CastControl().(*Controller)
	return c, ok
}

func (e *Engine) notifyStarted(c *Casting) {
	for _, l := range e.listeners {
		l.CastStarted(c)
	}
}

func (e *Engine) notifyEnded(c *Casting, success bool) {
	for _, l := range e.listeners {
		l.CastEnded(c, success)
	}
}

func (e *Engine) notifyEffect(c *Casting, index int, target uint64) {
	for _, l := range e.listeners {
		l.EffectCompleted(c, index, target)
	}
}
