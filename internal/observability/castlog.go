package observability

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/cast"
)

// CastLog writes one structured line per cast start and end.
// Failed casts are logged at Info, successful ones and effects at Debug.
type CastLog struct {
	logger *zap.Logger
}

// NewCastLog returns a listener writing to logger.
//
// Precondition: logger must be non-nil.
func NewCastLog(logger *zap.Logger) *CastLog {
	return &CastLog{logger: logger.Named("cast")}
}

func castFields(c *cast.Casting) []zap.Field {
	return []zap.Field{
		zap.Stringer("cast_id", c.ID()),
		zap.Uint32("spell_id", c.Spell().ID),
		zap.String("spell", c.Spell().Name),
		zap.Uint64("caster", c.Caster()),
		zap.Bool("proc", c.IsProc()),
	}
}

// CastStarted implements cast.Listener.
func (l *CastLog) CastStarted(c *cast.Casting) {
	l.logger.Debug("cast started", castFields(c)...)
}

// CastEnded implements cast.Listener.
func (l *CastLog) CastEnded(c *cast.Casting, success bool) {
	fields := append(castFields(c), zap.Stringer("result", c.Result()))
	if success {
		l.logger.Debug("cast succeeded", fields...)
		return
	}
	l.logger.Info("cast failed", fields...)
}

// EffectCompleted implements cast.Listener.
func (l *CastLog) EffectCompleted(c *cast.Casting, effectIndex int, target uint64) {
	l.logger.Debug("effect applied", append(castFields(c),
		zap.Int("effect_index", effectIndex),
		zap.Uint64("target", target),
	)...)
}

var _ cast.Listener = (*CastLog)(nil)
