// Package handover implements the ground-station handover state machine
// (spec §4.7): on every 1 Hz tick, find the nearest in-range satellite and,
// if it differs from the one the ground station is currently attached to,
// tear down the old dynamic link and stand up a new one.
//
// Grounded directly on GroundStation.cc's findNearestSatellite (linear
// scan over every satellite, keep the closest one within maxRange),
// performHandover (no-op if unchanged, else disconnect-then-connect), and
// connectToSatellite/disconnectFromSatellite (dynamic gate growth on the
// satellite side, symmetric datarate-4Gbps links with propagation +
// processing delay in both directions).
package handover

import (
	"context"
	"math"

	"github.com/signalsfoundry/leo-orbit-sim/internal/logging"
	"github.com/signalsfoundry/leo-orbit-sim/kb"
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/orbit"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

// TickIntervalSec is the handover check period (spec §4.7: "every 1 s of
// virtual time").
const TickIntervalSec = 1.0

// GroundLinkDatarateBps is the fixed datarate of a dynamic ground link in
// either direction (spec §4.7).
const GroundLinkDatarateBps = 4e9

// SpeedOfLightKmPerSec and ProcessingDelaySec parameterise the dynamic
// link's one-way delay: distance/c + processing delay (spec §4.7).
const (
	SpeedOfLightKmPerSec = 299792.458
	ProcessingDelaySec   = 1e-3
)

// GroundGateIdx is the single outbound gate a ground station uses for its
// one serving-satellite link. The driver reserves this slot (AddGate)
// when the ground station is built, since a ground station only ever has
// one dynamic attachment at a time (spec §4.7).
const GroundGateIdx = 0

// Manager drives the per-ground-station handover tick.
type Manager struct {
	Registry *kb.Registry
	Fleet    *netlink.Fleet

	// Log receives one entry per attach/detach transition, annotated with
	// the ground station's address. A nil Log is a no-op.
	Log logging.Logger
}

// Tick evaluates gs's current handover state at the scheduler's virtual
// time, performs any needed attach/detach, and schedules the next tick
// TickIntervalSec later (spec §4.7, steps 1-4).
func (m *Manager) Tick(sched *simkernel.Scheduler, gs *model.GroundStation) {
	now := sched.Now()
	best, bestDistKm := findNearest(m.Registry, gs, now)

	var bestID, currentID model.NodeHandle
	if best != nil {
		bestID = best.ID
	}
	attached := gs.IsAttached()
	if attached {
		currentID = gs.Attached.Satellite
	}

	changed := (best != nil) != attached || bestID != currentID
	if changed {
		if attached {
			m.detach(gs)
		}
		if best != nil {
			m.attach(gs, best, bestDistKm)
		}
	}

	sched.ScheduleAt(now+TickIntervalSec, func(float64) {
		m.Tick(sched, gs)
	})
}

// findNearest scans every registered satellite and returns the one at
// minimum distance to gs, provided that distance is within gs.MaxRangeKm
// (spec §4.7 step 1). Returns (nil, +Inf) if none qualifies.
func findNearest(reg *kb.Registry, gs *model.GroundStation, now float64) (*model.Satellite, float64) {
	var best *model.Satellite
	bestDist := math.Inf(1)
	for _, sat := range reg.Satellites() {
		pos := orbit.Propagate(sat.Orbit, now)
		d := gs.Position.DistanceTo(pos)
		if d <= gs.MaxRangeKm && d < bestDist {
			bestDist = d
			best = sat
		}
	}
	return best, bestDist
}

// detach tears down the dynamic link on both sides and transitions gs to
// Unattached (spec §4.7 step 4a). The satellite's gate slot is marked
// disconnected, not removed — its gate array only ever grows.
func (m *Manager) detach(gs *model.GroundStation) {
	att := gs.Attached
	if satOb := m.Fleet.Outbox(att.Satellite); satOb != nil {
		satOb.Disconnect(att.GateIdx)
	}
	if gsOb := m.Fleet.Outbox(gs.Address); gsOb != nil {
		gsOb.Disconnect(GroundGateIdx)
	}
	old := att.Satellite
	gs.Attached = nil
	m.Registry.Publish(kb.Event{Type: kb.EventHandover, Node: gs.Address})
	logging.WithNode(m.Log, int(gs.Address)).Info(context.Background(), "ground station detached",
		logging.Int("satellite", int(old)))
}

// attach allocates a fresh gate index on sat, creates the two fresh
// links (GS->Sat and Sat->GS), wires both sides, and transitions gs to
// Attached (spec §4.7 step 4b).
func (m *Manager) attach(gs *model.GroundStation, sat *model.Satellite, distKm float64) {
	satOb := m.Fleet.Outbox(sat.ID)
	gsOb := m.Fleet.Outbox(gs.Address)
	if satOb == nil || gsOb == nil {
		return
	}

	delay := distKm/SpeedOfLightKmPerSec + ProcessingDelaySec
	downlink := &netlink.Link{DatarateBps: GroundLinkDatarateBps, DelaySec: delay} // satellite -> ground
	uplink := &netlink.Link{DatarateBps: GroundLinkDatarateBps, DelaySec: delay}   // ground -> satellite

	gateIdx := satOb.AddGate()
	satOb.Connect(gateIdx, gs.Address, downlink)
	gsOb.Connect(GroundGateIdx, sat.ID, uplink)

	gs.Attached = &model.Attachment{Satellite: sat.ID, GateIdx: gateIdx}
	m.Registry.Publish(kb.Event{Type: kb.EventHandover, Node: gs.Address, Satellite: sat.ID})
	logging.WithNode(m.Log, int(gs.Address)).Info(context.Background(), "ground station attached",
		logging.Int("satellite", int(sat.ID)), logging.Any("distance_km", distKm))
}
