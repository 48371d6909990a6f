package handover

import (
	"testing"

	"github.com/signalsfoundry/leo-orbit-sim/kb"
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/orbit"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

func newGroundStation(t *testing.T, reg *kb.Registry, fleet *netlink.Fleet, addr model.NodeHandle, maxRangeKm float64) *model.GroundStation {
	t.Helper()
	gs := model.NewGroundStation(addr, orbit.GeoCoord{LatDeg: 0, LonDeg: 0, AltKm: 0}, maxRangeKm, 1, 1000)
	if err := reg.AddGroundStation(gs); err != nil {
		t.Fatalf("AddGroundStation: %v", err)
	}
	ob := netlink.NewOutbox(10)
	ob.AddGate() // reserve GroundGateIdx
	fleet.Register(addr, ob)
	return gs
}

func newSatellite(t *testing.T, reg *kb.Registry, fleet *netlink.Fleet, id model.NodeHandle, p orbit.Params) *model.Satellite {
	t.Helper()
	sat := model.NewSatellite(id, p, 10000)
	if err := reg.AddSatellite(sat); err != nil {
		t.Fatalf("AddSatellite: %v", err)
	}
	fleet.Register(id, netlink.NewOutbox(10))
	return sat
}

// A satellite directly overhead at the ground station's longitude, at a
// low-enough altitude that distance is comfortably inside any generous
// MaxRangeKm used in these tests, and comfortably outside any tiny one.
func overheadOrbit() orbit.Params {
	return orbit.Params{SemiMajorAxisKm: orbit.EarthRadiusKm + 500, Eccentricity: 0, InclinationDeg: 0, RAANDeg: 0, ArgPerigeeDeg: 0, M0Deg: 0}
}

func TestTick_AttachesToNearestInRangeSatellite(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()
	gs := newGroundStation(t, reg, fleet, 100, 2000)
	sat := newSatellite(t, reg, fleet, 1, overheadOrbit())

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, gs)

	if !gs.IsAttached() || gs.Attached.Satellite != sat.ID {
		t.Fatalf("expected gs to attach to satellite 1, got %+v", gs.Attached)
	}
	if gs.Attached.GateIdx != 0 {
		t.Errorf("expected first dynamic gate allocated on the satellite to be index 0, got %d", gs.Attached.GateIdx)
	}

	satOb := fleet.Outbox(sat.ID)
	peer, link, connected, ok := satOb.GateInfo(gs.Attached.GateIdx)
	if !ok || !connected || peer != gs.Address {
		t.Fatalf("expected the satellite's new gate to be connected to the ground station")
	}
	if link.DatarateBps != GroundLinkDatarateBps {
		t.Errorf("expected ground link datarate %v, got %v", GroundLinkDatarateBps, link.DatarateBps)
	}

	gsOb := fleet.Outbox(gs.Address)
	peer, _, connected, ok = gsOb.GateInfo(GroundGateIdx)
	if !ok || !connected || peer != sat.ID {
		t.Fatalf("expected the ground station's gate 0 to be connected to the satellite")
	}
}

func TestTick_NoSatelliteInRangeStaysUnattached(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()
	gs := newGroundStation(t, reg, fleet, 100, 1.0) // effectively no range
	newSatellite(t, reg, fleet, 1, overheadOrbit())

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, gs)

	if gs.IsAttached() {
		t.Errorf("expected gs to remain Unattached, got %+v", gs.Attached)
	}
}

func TestTick_SwitchesToCloserSatelliteOnHandover(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()
	gs := newGroundStation(t, reg, fleet, 100, 50000)

	far := newSatellite(t, reg, fleet, 1, orbit.Params{SemiMajorAxisKm: orbit.EarthRadiusKm + 2000, Eccentricity: 0})

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()

	// Only far is registered for the first tick, so gs attaches to it.
	m.Tick(sched, gs)
	if gs.Attached == nil || gs.Attached.Satellite != far.ID {
		t.Fatalf("expected gs to attach to the only satellite in range, got %+v", gs.Attached)
	}

	// A nearer satellite now appears; the next tick must hand over to it.
	near := newSatellite(t, reg, fleet, 2, orbit.Params{SemiMajorAxisKm: orbit.EarthRadiusKm + 500, Eccentricity: 0})
	m.Tick(sched, gs)
	if gs.Attached.Satellite != near.ID {
		t.Fatalf("expected handover to the nearer satellite %v, got %v", near.ID, gs.Attached.Satellite)
	}

	// The old gate on the far satellite must now be disconnected, not
	// removed: its gate array only grows.
	farOb := fleet.Outbox(far.ID)
	if farOb.GateCount() != 1 {
		t.Fatalf("expected far satellite to retain its one allocated gate, got %d", farOb.GateCount())
	}
	_, _, connected, ok := farOb.GateInfo(0)
	if !ok || connected {
		t.Errorf("expected far satellite's old gate to be disconnected after handover")
	}
}

func TestTick_SchedulesNextCheck(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()
	gs := newGroundStation(t, reg, fleet, 100, 2000)
	newSatellite(t, reg, fleet, 1, overheadOrbit())

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, gs)

	sched.Run(TickIntervalSec + 0.5)
	if sched.Now() < TickIntervalSec {
		t.Errorf("expected the follow-up handover check to fire at t=%v, clock stopped at %v", TickIntervalSec, sched.Now())
	}
}
