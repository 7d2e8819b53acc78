package world

import (
	"fmt"

	"github.com/cory-johannsen/spellcore/internal/game/scheduler"
)

// TimePeriod is a named phase of the game day.
type TimePeriod string

const (
	PeriodMidnight  TimePeriod = "Midnight"
	PeriodLateNight TimePeriod = "Late Night"
	PeriodDawn      TimePeriod = "Dawn"
	PeriodMorning   TimePeriod = "Morning"
	PeriodAfternoon TimePeriod = "Afternoon"
	PeriodDusk      TimePeriod = "Dusk"
	PeriodEvening   TimePeriod = "Evening"
	PeriodNight     TimePeriod = "Night"
)

// GameHour is a game-clock hour in [0, 23].
type GameHour int32

// Period returns the named time period for this hour.
//
// Precondition: h is in [0, 23].
// Postcondition: Returns one of the eight TimePeriod constants.
func (h GameHour) Period() TimePeriod {
	switch {
	case h == 0:
		return PeriodMidnight
	case h >= 1 && h <= 4:
		return PeriodLateNight
	case h >= 5 && h <= 6:
		return PeriodDawn
	case h >= 7 && h <= 11:
		return PeriodMorning
	case h >= 12 && h <= 16:
		return PeriodAfternoon
	case h >= 17 && h <= 18:
		return PeriodDusk
	case h >= 19 && h <= 21:
		return PeriodEvening
	default: // 22-23
		return PeriodNight
	}
}

// String returns the hour in "HH:00" format.
func (h GameHour) String() string {
	return fmt.Sprintf("%02d:00", int(h))
}

// ClockConfig describes the game day.
type ClockConfig struct {
	StartHour      int
	HourDurationMs int64
	DayStartHour   int
	NightStartHour int
}

// GameClock derives the game hour from the scheduler's time, so it advances
// with the simulation and never needs its own goroutine.
type GameClock struct {
	cfg         ClockConfig
	q           *scheduler.Queue
	subscribers []func(GameHour)
	tick        *scheduler.Countdown
}

// NewGameClock creates a clock reading time from q.
//
// Precondition: cfg.HourDurationMs > 0; hours in [0, 23].
func NewGameClock(cfg ClockConfig, q *scheduler.Queue) *GameClock {
	if cfg.HourDurationMs <= 0 {
		panic("world: NewGameClock called with non-positive hour duration")
	}
	return &GameClock{cfg: cfg, q: q}
}

// CurrentHour returns the current game hour.
func (c *GameClock) CurrentHour() GameHour {
	elapsed := c.q.Now() / c.cfg.HourDurationMs
	return GameHour((int64(c.cfg.StartHour) + elapsed) % 24)
}

// IsDaytime reports whether the current hour lies in [DayStartHour, NightStartHour).
func (c *GameClock) IsDaytime() bool {
	h := int(c.CurrentHour())
	return h >= c.cfg.DayStartHour && h < c.cfg.NightStartHour
}

// Subscribe registers fn to run on the logic thread at every hour boundary.
func (c *GameClock) Subscribe(fn func(GameHour)) {
	c.subscribers = append(c.subscribers, fn)
}

// Start arms the hour-boundary notifications. Calling Start twice restarts them.
//
// Postcondition: subscribers are called once per game hour until Stop.
func (c *GameClock) Start() {
	if c.tick == nil {
		c.tick = scheduler.NewCountdown(c.q)
	}
	c.armNext()
}

// Stop cancels the hour-boundary notifications.
func (c *GameClock) Stop() {
	if c.tick != nil {
		c.tick.Cancel()
	}
}

func (c *GameClock) armNext() {
	d := c.cfg.HourDurationMs
	next := (c.q.Now()/d + 1) * d
	c.tick.Set(next, func() {
		h := c.CurrentHour()
		for _, fn := range c.subscribers {
			fn(h)
		}
		c.armNext()
	})
}
