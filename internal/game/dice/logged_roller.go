package dice

import "go.uber.org/zap"

// Roller wraps a Source and logger to provide logged point rolls.
// All rolls are logged at debug level with base, die, scaling, and total.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedRoller creates a Roller that rolls with src and logs each roll to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Source returns the underlying randomness source.
func (r *Roller) Source() Source {
	return r.src
}

// Points rolls effect points for spellID/effectIndex and logs the result.
//
// Postcondition: result logged; returns the rolled total.
func (r *Roller) Points(spellID uint32, effectIndex, base, sides int, perLevel float64, level int) int {
	res := RollPoints(base, sides, perLevel, level, r.src)
	r.logger.Debug("effect points",
		zap.Uint32("spell", spellID),
		zap.Int("effect", effectIndex),
		zap.String("roll", res.String()),
		zap.Int("total", res.Total()),
	)
	return res.Total()
}

// Chance reports whether a roll in [0, 1) falls under p.
func (r *Roller) Chance(p float64) bool {
	return r.src.Float64() < p
}
