package world

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/packet"
)

// Session is the outbound channel of one observing client.
// Send must not block the logic thread.
type Session interface {
	Send(op packet.Opcode, payload []byte) error
}

// LogSession is a Session that records every payload to a logger.
// It stands in for a transport when the server runs headless.
type LogSession struct {
	guid   uint64
	logger *zap.Logger
}

// NewLogSession creates a LogSession for the observer guid.
func NewLogSession(guid uint64, logger *zap.Logger) *LogSession {
	return &LogSession{guid: guid, logger: logger}
}

// Send logs the payload at debug level.
func (s *LogSession) Send(op packet.Opcode, payload []byte) error {
	s.logger.Debug("packet",
		zap.Uint64("observer", s.guid),
		zap.Stringer("opcode", op),
		zap.Int("bytes", len(payload)),
		zap.Binary("payload", payload),
	)
	return nil
}
