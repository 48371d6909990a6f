package topology

import (
	"testing"

	"github.com/signalsfoundry/leo-orbit-sim/kb"
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/orbit"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

func circularOrbit(raanDeg float64) orbit.Params {
	return orbit.Params{SemiMajorAxisKm: 6921, Eccentricity: 0, InclinationDeg: 53, RAANDeg: raanDeg}
}

func TestTick_RebuildsNeighborsWithinRange(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()

	sat1 := model.NewSatellite(1, circularOrbit(0), 10000) // generous ISL range
	sat2 := model.NewSatellite(2, circularOrbit(1), 10000) // slightly different plane => some distance apart
	reg.AddSatellite(sat1)
	reg.AddSatellite(sat2)

	ob1 := netlink.NewOutbox(10)
	ob2 := netlink.NewOutbox(10)
	link12 := &netlink.Link{DatarateBps: 1e9}
	link21 := &netlink.Link{DatarateBps: 1e9}
	ob1.AddGate()
	ob1.Connect(0, 2, link12)
	ob2.AddGate()
	ob2.Connect(0, 1, link21)
	fleet.Register(1, ob1)
	fleet.Register(2, ob2)

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, sat1)

	if len(sat1.Neighbors) != 1 || sat1.Neighbors[0].Peer != 2 {
		t.Fatalf("expected sat1 to have sat2 as its one neighbour, got %+v", sat1.Neighbors)
	}
	if link12.DelaySec <= 0 {
		t.Errorf("expected link delay to be updated to a positive value, got %v", link12.DelaySec)
	}
	if _, ok := sat1.RoutingTable[2]; !ok {
		t.Errorf("expected routing.LocalUpdate to have populated a direct route to neighbour 2")
	}
}

func TestTick_OutOfRangePeerDroppedFromNeighborsButLinkStaysConnected(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()

	sat1 := model.NewSatellite(1, circularOrbit(0), 1.0) // near-zero ISL range: everything is "out of range"
	sat2 := model.NewSatellite(2, circularOrbit(45), 1.0)
	reg.AddSatellite(sat1)
	reg.AddSatellite(sat2)

	ob1 := netlink.NewOutbox(10)
	link12 := &netlink.Link{DatarateBps: 1e9}
	ob1.AddGate()
	ob1.Connect(0, 2, link12)
	fleet.Register(1, ob1)
	fleet.Register(2, netlink.NewOutbox(10))

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, sat1)

	if len(sat1.Neighbors) != 0 {
		t.Errorf("expected no current neighbours when peer is out of ISL range, got %+v", sat1.Neighbors)
	}
	peer, _, connected, ok := ob1.GateInfo(0)
	if !ok || !connected || peer != 2 {
		t.Errorf("expected the physical gate to remain connected despite being out of routing range")
	}
}

func TestTick_SchedulesNextRefresh(t *testing.T) {
	reg := kb.New()
	fleet := netlink.NewFleet()
	sat := model.NewSatellite(1, circularOrbit(0), 5000)
	reg.AddSatellite(sat)
	fleet.Register(1, netlink.NewOutbox(10))

	m := &Manager{Registry: reg, Fleet: fleet}
	sched := simkernel.New()
	m.Tick(sched, sat)

	if sched.Now() != 0 {
		t.Fatalf("Tick itself should not advance the clock, got %v", sched.Now())
	}
	sched.Run(TickIntervalSec + 0.5)
	if sched.Now() < TickIntervalSec {
		t.Errorf("expected the scheduled follow-up tick to fire at t=%v, clock stopped at %v", TickIntervalSec, sched.Now())
	}
}
