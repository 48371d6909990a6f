// Package simkernel implements the single-threaded, cooperative
// discrete-event scheduler that drives the whole simulation: a virtual
// clock advanced strictly by draining a priority queue of events keyed
// by (time, sequence number).
//
// No third-party discrete-event-simulation library appears anywhere in
// the example pack this repository was grounded on; container/heap is
// the idiomatic standard-library primitive for a priority queue, and is
// used here only for the event heap itself. Every other component in
// this repository (netlink, topology, routing, handover, traffic) is
// built on top of this scheduler rather than introducing a second
// scheduling primitive.
package simkernel

import (
	"container/heap"
	"time"
)

// Handler is invoked when its event fires. now is the virtual time at
// which the event was dispatched (== the event's scheduled time).
type Handler func(now float64)

// Handle identifies a scheduled event so it can be cancelled.
type Handle uint64

type event struct {
	time    float64
	seq     uint64
	handle  Handle
	handler Handler
	cancel  bool
	index   int
}

// eventHeap is a min-heap ordered by (time, seq), giving FIFO order for
// events scheduled at the same virtual time (spec §4.2, §5).
type eventHeap []*event

func (h eventHeap) Len() int { return len(h) }
func (h eventHeap) Less(i, j int) bool {
	if h[i].time != h[j].time {
		return h[i].time < h[j].time
	}
	return h[i].seq < h[j].seq
}
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *eventHeap) Push(x any) {
	e := x.(*event)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	e.index = -1
	return e
}

// EventObserver receives per-dispatch instrumentation from the scheduler.
// A Scheduler with no observer attached pays nothing beyond a nil check.
type EventObserver interface {
	RecordEvent(d time.Duration)
	SetPendingEvents(count int)
	SetVirtualClock(now float64)
}

// Scheduler owns the virtual clock and the event queue. It is not safe
// for concurrent use — per spec §5, exactly one logical thread advances
// virtual time.
type Scheduler struct {
	now        float64
	nextSeq    uint64
	queue      eventHeap
	byHandle   map[Handle]*event
	nextHandle Handle

	observer EventObserver
}

// SetObserver attaches an EventObserver; passing nil disables
// instrumentation.
func (s *Scheduler) SetObserver(o EventObserver) {
	s.observer = o
}

// New constructs an empty scheduler with the virtual clock at t=0.
func New() *Scheduler {
	return &Scheduler{
		byHandle: make(map[Handle]*event),
	}
}

// Now returns the current virtual time.
func (s *Scheduler) Now() float64 { return s.now }

// ScheduleAt schedules fn to run at virtual time t, which must be >= Now().
// Returns a Handle that can be passed to Cancel.
func (s *Scheduler) ScheduleAt(t float64, fn Handler) Handle {
	if t < s.now {
		t = s.now
	}
	s.nextHandle++
	h := s.nextHandle
	e := &event{
		time:    t,
		seq:     s.nextSeq,
		handle:  h,
		handler: fn,
	}
	s.nextSeq++
	heap.Push(&s.queue, e)
	s.byHandle[h] = e
	return h
}

// Cancel removes a pending event. Idempotent: cancelling an already-fired
// or already-cancelled handle is a no-op.
func (s *Scheduler) Cancel(h Handle) {
	e, ok := s.byHandle[h]
	if !ok {
		return
	}
	delete(s.byHandle, h)
	e.cancel = true
}

// Pending reports whether the given handle still refers to a queued,
// non-cancelled event. Used by callers (e.g. the node transmit queue)
// that must not schedule a second self-wake while one is outstanding.
func (s *Scheduler) Pending(h Handle) bool {
	e, ok := s.byHandle[h]
	return ok && !e.cancel
}

// Step pops and dispatches the single earliest non-cancelled event,
// advancing the virtual clock to its time. Returns false if the queue is
// empty.
func (s *Scheduler) Step() bool {
	for s.queue.Len() > 0 {
		e := heap.Pop(&s.queue).(*event)
		if e.cancel {
			continue
		}
		delete(s.byHandle, e.handle)
		s.now = e.time

		if s.observer == nil {
			e.handler(s.now)
			return true
		}

		start := time.Now()
		e.handler(s.now)
		s.observer.RecordEvent(time.Since(start))
		s.observer.SetPendingEvents(s.queue.Len())
		s.observer.SetVirtualClock(s.now)
		return true
	}
	return false
}

// Run drains the queue, dispatching events in order, until either the
// queue is empty or the next event's time would exceed horizon.
func (s *Scheduler) Run(horizon float64) {
	for s.queue.Len() > 0 {
		if s.queue[0].time > horizon {
			return
		}
		s.Step()
	}
}
