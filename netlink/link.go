// Package netlink implements the point-to-point channel model (spec
// §4.3) and the bounded per-node transmit queue that arbitrates access
// to it (spec §4.4).
package netlink

import "github.com/signalsfoundry/leo-orbit-sim/simkernel"

// Link is a unidirectional point-to-point channel: a fixed datarate, a
// delay that the topology manager may update between admissions, and a
// busy-until time. Full-duplex between two endpoints is modelled as two
// independent Links (spec §3).
type Link struct {
	DatarateBps float64
	DelaySec    float64
	BusyUntil   float64
}

// Transmit attempts to admit a frame of bitLength bits onto the link at
// virtual time now. If the link is busy (now strictly less than
// BusyUntil) it returns ok=false and the caller must wait. Otherwise it
// reserves the link until the transmission finishes and returns the
// virtual time the frame will arrive at the far end — transmission
// duration plus the link's current delay. A delay update made by the
// topology manager after this call does not affect frames already
// admitted (spec §4.3).
func (l *Link) Transmit(now float64, bitLength int) (arrival float64, ok bool) {
	if now < l.BusyUntil {
		return 0, false
	}
	txDuration := float64(bitLength) / l.DatarateBps
	l.BusyUntil = now + txDuration
	return now + txDuration + l.DelaySec, true
}

// Busy reports whether the link is occupied at virtual time now.
func (l *Link) Busy(now float64) bool {
	return now < l.BusyUntil
}

// Kind tags what a Frame carries, so a drop callback can decide whether a
// drop counts against the data-packet statistics in spec §6's Outputs
// (routing advertisements are protocol overhead, not user traffic).
type Kind int

const (
	KindPacket Kind = iota
	KindAdvertisement
)

// Frame is one message queued for transmission on an outbound gate.
// Arrive is invoked (with the scheduler and the arrival time) once the
// frame has crossed the link; it is supplied by the caller that
// enqueued the frame (routing, traffic, etc.) and is how netlink stays
// agnostic to packet vs. advertisement payloads.
type Frame struct {
	GateIdx   int
	BitLength int
	Kind      Kind
	Arrive    func(sched *simkernel.Scheduler, arrivalTime float64)
}
