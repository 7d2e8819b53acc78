// Package scheduler implements the single-threaded absolute-time callback
// queue that drives casts, projectiles, and aura ticks.
package scheduler

import (
	"sync/atomic"
	"time"
)

// Clock reports the simulation time in milliseconds.
type Clock interface {
	NowMs() int64
}

// WallClock measures monotonic milliseconds since its creation.
type WallClock struct {
	start time.Time
}

// NewWallClock returns a Clock anchored at the current instant.
func NewWallClock() *WallClock {
	return &WallClock{start: time.Now()}
}

// NowMs returns milliseconds elapsed since the clock was created.
func (c *WallClock) NowMs() int64 {
	return time.Since(c.start).Milliseconds()
}

// ManualClock is a Clock advanced explicitly by the caller.
// It is safe to read from other goroutines.
type ManualClock struct {
	now atomic.Int64
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start int64) *ManualClock {
	c := &ManualClock{}
	c.now.Store(start)
	return c
}

// NowMs returns the current manual time.
func (c *ManualClock) NowMs() int64 {
	return c.now.Load()
}

// Set moves the clock to t. Moving backwards is allowed but callers should not.
func (c *ManualClock) Set(t int64) {
	c.now.Store(t)
}

// Advance moves the clock forward by d milliseconds and returns the new time.
//
// Precondition: d >= 0.
func (c *ManualClock) Advance(d int64) int64 {
	return c.now.Add(d)
}
