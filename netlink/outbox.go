package netlink

import (
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

// DefaultQueueCapacity is the default bounded-FIFO size (spec §4.4).
const DefaultQueueCapacity = 1000

// Gate is one outbound port of a node: a peer handle and the link
// wired to it. Gates are addressed by index so that ground stations can
// grow a satellite's inbound-radio gate array on handover (spec §4.7).
type Gate struct {
	Peer      model.NodeHandle
	Link      *Link
	Connected bool
}

// DropFunc is called whenever the outbox drops a frame, naming the
// reason per the taxonomy in spec §7.
type DropFunc func(reason model.DropReason, f Frame)

// Outbox is a node's bounded transmit queue plus its outbound gate
// array (spec §4.4). At most one self-wake is ever outstanding.
type Outbox struct {
	gates    []Gate
	queue    []Frame
	capacity int

	wake    simkernel.Handle
	hasWake bool

	OnDrop DropFunc
}

// NewOutbox constructs an outbox with the given queue capacity and no
// gates.
func NewOutbox(capacity int) *Outbox {
	return &Outbox{capacity: capacity}
}

// AddGate appends a new, disconnected gate and returns its index.
func (o *Outbox) AddGate() int {
	o.gates = append(o.gates, Gate{})
	return len(o.gates) - 1
}

// Connect wires gate idx to peer over link and marks it connected.
func (o *Outbox) Connect(idx int, peer model.NodeHandle, link *Link) {
	o.gates[idx] = Gate{Peer: peer, Link: link, Connected: true}
}

// Disconnect marks gate idx as having lost its peer. Frames already
// queued for it will be dropped as gate-disconnected when they reach
// the head of the queue (spec §4.4).
func (o *Outbox) Disconnect(idx int) {
	if idx >= 0 && idx < len(o.gates) {
		o.gates[idx].Connected = false
	}
}

// GateCount returns the number of gates on this outbox.
func (o *Outbox) GateCount() int { return len(o.gates) }

// GateInfo returns gate idx's peer, wired link, and connected state. ok is
// false if idx is out of range.
func (o *Outbox) GateInfo(idx int) (peer model.NodeHandle, link *Link, connected bool, ok bool) {
	if idx < 0 || idx >= len(o.gates) {
		return 0, nil, false, false
	}
	g := o.gates[idx]
	return g.Peer, g.Link, g.Connected, true
}

// QueueLength returns the current number of queued frames.
func (o *Outbox) QueueLength() int { return len(o.queue) }

// Enqueue appends f to the tail of the queue, tail-dropping it if the
// queue is already at capacity, then drains what it can (spec §4.4).
func (o *Outbox) Enqueue(sched *simkernel.Scheduler, f Frame) {
	if len(o.queue) >= o.capacity {
		o.drop(model.DropQueueOverflow, f)
		return
	}
	o.queue = append(o.queue, f)
	o.processQueue(sched)
}

// processQueue drains the head of the queue until it is empty, the
// link is busy, or the gate disconnects (spec §4.4's three terminal
// outcomes for a queued message).
func (o *Outbox) processQueue(sched *simkernel.Scheduler) {
	for len(o.queue) > 0 {
		f := o.queue[0]

		if f.GateIdx < 0 || f.GateIdx >= len(o.gates) || !o.gates[f.GateIdx].Connected {
			o.queue = o.queue[1:]
			o.drop(model.DropGateDisconnected, f)
			continue
		}

		link := o.gates[f.GateIdx].Link
		now := sched.Now()
		arrival, ok := link.Transmit(now, f.BitLength)
		if !ok {
			o.scheduleWake(sched, link.BusyUntil)
			return
		}

		o.queue = o.queue[1:]
		arrive := f.Arrive
		sched.ScheduleAt(arrival, func(t float64) {
			if arrive != nil {
				arrive(sched, t)
			}
		})
	}
}

// scheduleWake schedules a self-wake at t unless one is already
// pending, satisfying the "at most one self-wake outstanding" invariant
// (spec §4.4).
func (o *Outbox) scheduleWake(sched *simkernel.Scheduler, t float64) {
	if o.hasWake && sched.Pending(o.wake) {
		return
	}
	o.hasWake = true
	o.wake = sched.ScheduleAt(t, func(float64) {
		o.hasWake = false
		o.processQueue(sched)
	})
}

func (o *Outbox) drop(reason model.DropReason, f Frame) {
	if o.OnDrop != nil {
		o.OnDrop(reason, f)
	}
}
