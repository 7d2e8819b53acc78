package scheduler

// Countdown wraps one deadline on a Queue with an ended notification and
// cancellation. Re-setting the deadline before it fires replaces it.
type Countdown struct {
	q        *Queue
	ev       *Event
	deadline int64
	onEnded  func()
}

// NewCountdown returns an unarmed Countdown on q.
func NewCountdown(q *Queue) *Countdown {
	return &Countdown{q: q}
}

// Set arms the countdown to invoke onEnded at the absolute time deadline,
// replacing any pending deadline.
//
// Precondition: onEnded must not be nil.
// Postcondition: Pending() is true; only the latest onEnded will run.
func (c *Countdown) Set(deadline int64, onEnded func()) {
	c.Cancel()
	c.deadline = deadline
	c.onEnded = onEnded
	var ev *Event
	ev = c.q.AddEvent(func() {
		if c.ev != ev {
			return
		}
		c.ev = nil
		fn := c.onEnded
		c.onEnded = nil
		fn()
	}, deadline)
	c.ev = ev
}

// SetIn arms the countdown delay milliseconds from now.
func (c *Countdown) SetIn(delay int64, onEnded func()) {
	c.Set(c.q.Now()+delay, onEnded)
}

// Cancel disarms the countdown without firing. Safe to call when unarmed.
func (c *Countdown) Cancel() {
	if c.ev != nil {
		c.ev.Cancel()
		c.ev = nil
	}
	c.onEnded = nil
}

// Pending reports whether the countdown is armed and has not fired.
func (c *Countdown) Pending() bool {
	return c.ev != nil
}

// Deadline returns the last armed deadline.
func (c *Countdown) Deadline() int64 {
	return c.deadline
}

// Remaining returns milliseconds until the deadline, or 0 when not pending.
func (c *Countdown) Remaining() int64 {
	if c.ev == nil {
		return 0
	}
	if r := c.deadline - c.q.Now(); r > 0 {
		return r
	}
	return 0
}
