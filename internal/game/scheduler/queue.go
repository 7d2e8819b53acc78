package scheduler

import (
	"container/heap"
	"context"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// noWake is the armed deadline when the queue is empty.
const noWake = math.MaxInt64

// Event is one pending callback. It is owned by the Queue that created it.
type Event struct {
	at        int64
	seq       uint64
	index     int
	fn        func()
	cancelled bool
}

// At returns the absolute time the event is scheduled for.
func (e *Event) At() int64 { return e.at }

// Cancelled reports whether Cancel was called before the event fired.
func (e *Event) Cancelled() bool { return e.cancelled }

// Cancel prevents the callback from running. Safe to call multiple times and
// after the event has fired.
func (e *Event) Cancel() {
	e.cancelled = true
	e.fn = nil
}

type eventHeap []*Event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	ev := x.(*Event)
	ev.index = len(*h)
	*h = append(*h, ev)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	old[n-1] = nil
	ev.index = -1
	*h = old[:n-1]
	return ev
}

// Queue is a min-time-ordered callback queue.
//
// AddEvent, Update, and every callback run on one logic goroutine; the queue
// itself takes no locks on that path. Post is the only method safe to call
// from other goroutines.
type Queue struct {
	clock  Clock
	logger *zap.Logger

	events eventHeap
	seq    uint64
	armed  int64

	rearm  chan struct{}
	postMu sync.Mutex
	posted []func()
}

// NewQueue creates an empty Queue reading time from clock.
//
// Precondition: clock and logger must be non-nil.
func NewQueue(clock Clock, logger *zap.Logger) *Queue {
	return &Queue{
		clock:  clock,
		logger: logger,
		armed:  noWake,
		rearm:  make(chan struct{}, 1),
	}
}

// Now returns the queue's current time.
func (q *Queue) Now() int64 {
	return q.clock.NowMs()
}

// Len returns the number of pending events, including cancelled ones not yet popped.
func (q *Queue) Len() int {
	return len(q.events)
}

// AddEvent schedules fn to run at the absolute time at. When at precedes the
// currently armed wake-up, the wake-up is re-armed.
//
// Precondition: fn must not be nil.
// Postcondition: Returns the pending Event; fn runs once at or after at unless cancelled.
func (q *Queue) AddEvent(fn func(), at int64) *Event {
	if fn == nil {
		panic("scheduler: AddEvent called with nil callback")
	}
	q.seq++
	ev := &Event{at: at, seq: q.seq, fn: fn}
	heap.Push(&q.events, ev)
	if at < q.armed {
		q.armed = at
		q.signal()
	}
	return ev
}

// AddEventIn schedules fn delay milliseconds after Now.
func (q *Queue) AddEventIn(fn func(), delay int64) *Event {
	return q.AddEvent(fn, q.Now()+delay)
}

// NextWake returns the time of the earliest pending event.
//
// Postcondition: ok is false iff no event is pending.
func (q *Queue) NextWake() (at int64, ok bool) {
	for len(q.events) > 0 && q.events[0].cancelled {
		heap.Pop(&q.events)
	}
	if len(q.events) == 0 {
		return 0, false
	}
	return q.events[0].at, true
}

// Update pops and invokes every event whose time is <= now, in time order,
// including events scheduled by callbacks during this call when they are
// already due. It then re-arms for the new earliest pending event.
//
// Postcondition: no pending event has At() <= now; returns the number of callbacks run.
func (q *Queue) Update(now int64) int {
	q.drainPosted()
	ran := 0
	for len(q.events) > 0 {
		ev := q.events[0]
		if ev.at > now {
			break
		}
		heap.Pop(&q.events)
		if ev.cancelled {
			continue
		}
		fn := ev.fn
		ev.fn = nil
		fn()
		ran++
	}
	if at, ok := q.NextWake(); ok {
		q.armed = at
	} else {
		q.armed = noWake
	}
	return ran
}

// Post queues fn to run on the logic goroutine at the next wake-up.
// Safe for concurrent use.
func (q *Queue) Post(fn func()) {
	q.postMu.Lock()
	q.posted = append(q.posted, fn)
	q.postMu.Unlock()
	q.signal()
}

func (q *Queue) drainPosted() {
	q.postMu.Lock()
	posted := q.posted
	q.posted = nil
	q.postMu.Unlock()
	for _, fn := range posted {
		fn()
	}
}

func (q *Queue) signal() {
	select {
	case q.rearm <- struct{}{}:
	default:
	}
}

// Run drives the queue against its clock until ctx is cancelled, sleeping
// until the earliest pending event or a re-arm signal.
//
// Postcondition: returns ctx.Err() once ctx is done.
func (q *Queue) Run(ctx context.Context) error {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	q.logger.Info("scheduler loop started", zap.Int("pending", q.Len()))
	for {
		q.Update(q.Now())

		wait := time.Hour
		if at, ok := q.NextWake(); ok {
			wait = time.Duration(at-q.Now()) * time.Millisecond
			if wait < 0 {
				wait = 0
			}
		}
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			q.logger.Info("scheduler loop stopped", zap.Int("pending", q.Len()))
			return ctx.Err()
		case <-timer.C:
		case <-q.rearm:
		}
	}
}
