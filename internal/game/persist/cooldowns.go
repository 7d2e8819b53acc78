// Package persist carries unit cooldowns across map membership: a unit's
// unexpired cooldowns are saved when it leaves a map and restored when a unit
// with the same GUID enters again.
package persist

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
	"github.com/cory-johannsen/spellcore/internal/game/unit"
	"github.com/cory-johannsen/spellcore/internal/game/world"
)

// CooldownStore persists cooldown snapshots with expiry in unix milliseconds.
type CooldownStore interface {
	Save(ctx context.Context, unitGUID uint64, entries []unit.CooldownEntry) error
	Load(ctx context.Context, unitGUID uint64) ([]unit.CooldownEntry, error)
}

// CooldownSync moves store IO off the logic goroutine. Snapshots are taken
// and restores applied on the logic goroutine; Save and Load run on their own
// goroutines and hand results back through the queue. Calls for one GUID run
// in the order the unit left and entered.
type CooldownSync struct {
	q       *scheduler.Queue
	m       *world.Map
	store   CooldownStore
	epochMs int64
	timeout time.Duration
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu   sync.Mutex
	tail map[uint64]chan struct{} // last pending call per GUID
}

// NewCooldownSync creates a sync writing to store. epochMs is the unix time in
// milliseconds at which q's clock read zero.
//
// Precondition: q, store, and logger must be non-nil.
func NewCooldownSync(q *scheduler.Queue, store CooldownStore, epochMs int64, logger *zap.Logger) *CooldownSync {
	return &CooldownSync{
		q:       q,
		store:   store,
		epochMs: epochMs,
		timeout: 5 * time.Second,
		logger:  logger,
		tail:    make(map[uint64]chan struct{}),
	}
}

// Attach installs the enter and leave hooks on m.
func (s *CooldownSync) Attach(m *world.Map) {
	s.m = m
	m.OnEnter(s.restore)
	m.OnLeave(s.save)
}

// Wait blocks until every in-flight Save and Load has finished.
func (s *CooldownSync) Wait() { s.wg.Wait() }

func (s *CooldownSync) toUnix(entries []unit.CooldownEntry) []unit.CooldownEntry {
	out := make([]unit.CooldownEntry, len(entries))
	for i, e := range entries {
		e.ExpiresAt += s.epochMs
		out[i] = e
	}
	return out
}

func (s *CooldownSync) fromUnix(entries []unit.CooldownEntry) []unit.CooldownEntry {
	out := make([]unit.CooldownEntry, len(entries))
	for i, e := range entries {
		e.ExpiresAt -= s.epochMs
		out[i] = e
	}
	return out
}

// enqueue runs fn on its own goroutine after every earlier call for guid
// has finished.
func (s *CooldownSync) enqueue(guid uint64, fn func(ctx context.Context)) {
	done := make(chan struct{})
	s.mu.Lock()
	prev := s.tail[guid]
	s.tail[guid] = done
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			close(done)
			s.mu.Lock()
			if s.tail[guid] == done {
				delete(s.tail, guid)
			}
			s.mu.Unlock()
		}()
		if prev != nil {
			<-prev
		}
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (s *CooldownSync) save(u *unit.Unit) {
	guid := u.GUID()
	entries := s.toUnix(u.Cooldowns().Snapshot(s.q.Now()))
	s.enqueue(guid, func(ctx context.Context) {
		if err := s.store.Save(ctx, guid, entries); err != nil {
			s.logger.Warn("saving cooldowns", zap.Uint64("unit", guid), zap.Error(err))
			return
		}
		s.logger.Debug("cooldowns saved", zap.Uint64("unit", guid), zap.Int("count", len(entries)))
	})
}

func (s *CooldownSync) restore(u *unit.Unit) {
	guid := u.GUID()
	s.enqueue(guid, func(ctx context.Context) {
		entries, err := s.store.Load(ctx, guid)
		if err != nil {
			s.logger.Warn("loading cooldowns", zap.Uint64("unit", guid), zap.Error(err))
			return
		}
		if len(entries) == 0 {
			return
		}
		local := s.fromUnix(entries)
		s.q.Post(func() {
			// The unit may have left, or been replaced, since the load began.
			cur, ok := s.m.FindUnit(guid)
			if !ok {
				return
			}
			cur.Cooldowns().Restore(local)
			s.logger.Debug("cooldowns restored", zap.Uint64("unit", guid), zap.Int("count", len(local)))
		})
	})
}
