package cast

import (
	"github.com/google/uuid"

	"github.com/cory-johannsen/spellcore/internal/game/spell"
	"github.com/cory-johannsen/spellcore/internal/game/targetmap"
)

// Casting is the handle of one started cast. Its ended notification fires
// exactly once.
type Casting struct {
	id        uuid.UUID
	spell     *spell.Entry
	caster    uint64
	targets   targetmap.SpellTargetMap
	isProc    bool
	startedAt int64

	ended   bool
	success bool
	result  Result
	onEnded []func(success bool)
}

func newCasting(entry *spell.Entry, caster uint64, targets targetmap.SpellTargetMap, isProc bool) *Casting {
	return &Casting{id: uuid.New(), spell: entry, caster: caster, targets: targets, isProc: isProc}
}

func (c *Casting) ID() uuid.UUID                     { return c.id }
func (c *Casting) Spell() *spell.Entry               { return c.spell }
func (c *Casting) Caster() uint64                    { return c.caster }
func (c *Casting) Targets() targetmap.SpellTargetMap { return c.targets }
func (c *Casting) IsProc() bool                      { return c.isProc }
func (c *Casting) StartedAt() int64                  { return c.startedAt }
func (c *Casting) Ended() bool                       { return c.ended }
func (c *Casting) Succeeded() bool                   { return c.ended && c.success }

// Result returns the final code once ended, Success before.
func (c *Casting) Result() Result { return c.result }

// OnEnded registers fn for the ended notification. Registering after the
// cast ended calls fn immediately.
func (c *Casting) OnEnded(fn func(success bool)) {
	if c.ended {
		fn(c.success)
		return
	}
	c.onEnded = append(c.onEnded, fn)
}

func (c *Casting) end(success bool, res Result) bool {
	if c.ended {
		return false
	}
	c.ended = true
	c.success = success
	c.result = res
	handlers := c.onEnded
	c.onEnded = nil
	for _, fn := range handlers {
		fn(success)
	}
	return true
}

// Listener receives cast notifications for presentation, AI, and scripting.
type Listener interface {
	CastStarted(c *Casting)
	CastEnded(c *Casting, success bool)
	EffectCompleted(c *Casting, effectIndex int, target uint64)
}

// Option tunes one StartCast call.
type Option func(*startOptions)

type startOptions struct {
	replace bool
}

// WithReplace lets StartCast end the current cast and take its place.
// A channel in progress is finished first; a cast in progress is interrupted.
func WithReplace() Option {
	return func(o *startOptions) { o.replace = true }
}
