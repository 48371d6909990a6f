package sim

import (
	"context"
	"testing"

	"github.com/signalsfoundry/leo-orbit-sim/internal/scenario"
)

func singleSatelliteScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Satellites: []scenario.Satellite{
			{SatelliteID: 1, AltitudeKm: 550, Eccentricity: 0, InclinationDeg: 0, RAANDeg: 0, ArgPerigeeDeg: 0, InitialAngleDeg: 0, MaxISLRangeKm: 5000},
		},
		GroundStations: []scenario.GroundStation{
			{Address: 201, LatitudeDeg: 0, LongitudeDeg: 0, AltitudeKm: 0, MaxRangeKm: 20000, SendIntervalSec: 2.5, PacketSizeBytes: 128, Role: scenario.RoleHub},
			{Address: 101, LatitudeDeg: 0, LongitudeDeg: 10, AltitudeKm: 0, MaxRangeKm: 20000, SendIntervalSec: 2.5, PacketSizeBytes: 128, Role: scenario.RoleLeaf},
		},
		SimTimeLimitSec: 8.0,
		Seed:            1,
	}
}

func TestNew_BuildsRegistryFromScenario(t *testing.T) {
	s, err := New(singleSatelliteScenario())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if len(s.Registry.Satellites()) != 1 {
		t.Errorf("satellites registered = %d, want 1", len(s.Registry.Satellites()))
	}
	if len(s.Registry.GroundStations()) != 2 {
		t.Errorf("ground stations registered = %d, want 2", len(s.Registry.GroundStations()))
	}

	hub := s.Registry.GroundStation(201)
	if hub == nil || len(hub.Peers) != 1 || hub.Peers[0] != 101 {
		t.Errorf("hub peers = %+v, want [101]", hub)
	}
	leaf := s.Registry.GroundStation(101)
	if leaf == nil || len(leaf.Peers) != 1 || leaf.Peers[0] != 201 {
		t.Errorf("leaf peers = %+v, want [201]", leaf)
	}
}

func TestNew_RejectsMultipleHubs(t *testing.T) {
	sc := singleSatelliteScenario()
	sc.GroundStations[1].Role = scenario.RoleHub

	if _, err := New(sc); err == nil {
		t.Fatal("New: expected error for scenario with two hubs, got nil")
	}
}

func TestRun_DeliversPacketEndToEnd(t *testing.T) {
	s, err := New(singleSatelliteScenario())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	s.Run(context.Background())

	reports := s.Reports()
	if len(reports) != 3 {
		t.Fatalf("reports = %d, want 3 (1 satellite + 2 ground stations)", len(reports))
	}

	var hub, leaf *ScalarReport
	for i := range reports {
		switch reports[i].NodeHandle {
		case 201:
			hub = &reports[i]
		case 101:
			leaf = &reports[i]
		}
	}
	if hub == nil || leaf == nil {
		t.Fatalf("missing hub/leaf reports: %+v", reports)
	}

	if leaf.PacketsSent == 0 {
		t.Error("leaf PacketsSent = 0, want > 0")
	}
	if hub.PacketsReceived == 0 {
		t.Error("hub PacketsReceived = 0, want > 0 (leaf always targets the hub)")
	}
	if len(hub.EndToEndDelaySamples) != int(hub.PacketsReceived) {
		t.Errorf("hub delay samples = %d, want %d", len(hub.EndToEndDelaySamples), hub.PacketsReceived)
	}
	for _, hops := range hub.HopCountSamples {
		if hops < 1 {
			t.Errorf("hop count sample = %d, want >= 1 (packet must cross the satellite)", hops)
		}
	}
}

func TestRun_AttachesGroundStationsBeforeFirstTraffic(t *testing.T) {
	sc := singleSatelliteScenario()
	// A sub-second send interval means several packets would generate
	// before the first periodic handover check at t=1.0 if a ground
	// station started Unattached.
	sc.GroundStations[0].SendIntervalSec = 0.1
	sc.GroundStations[1].SendIntervalSec = 0.1

	s, err := New(sc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, gs := range s.Registry.GroundStations() {
		if !gs.IsAttached() {
			t.Fatalf("ground station %d not attached immediately after New", gs.Address)
		}
	}

	s.Run(context.Background())

	for _, report := range s.Reports() {
		if report.NodeType != "ground" {
			continue
		}
		if report.PacketsDropped != 0 {
			t.Errorf("ground station %d dropped %d packets, want 0 (no-serving-satellite drops before the first handover check)", report.NodeHandle, report.PacketsDropped)
		}
	}
}

func TestRun_IsDeterministicAcrossRunsWithSameSeed(t *testing.T) {
	runOnce := func() []ScalarReport {
		s, err := New(singleSatelliteScenario())
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		s.Run(context.Background())
		return s.Reports()
	}

	a := runOnce()
	b := runOnce()

	if len(a) != len(b) {
		t.Fatalf("report counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if !reportsEqual(a[i], b[i]) {
			t.Errorf("report %d differs across runs:\n%+v\n%+v", i, a[i], b[i])
		}
	}
}

func reportsEqual(a, b ScalarReport) bool {
	if a.NodeHandle != b.NodeHandle || a.NodeType != b.NodeType {
		return false
	}
	if a.PacketsSent != b.PacketsSent || a.PacketsReceived != b.PacketsReceived {
		return false
	}
	if a.PacketsDropped != b.PacketsDropped || a.PacketsForwarded != b.PacketsForwarded {
		return false
	}
	if len(a.EndToEndDelaySamples) != len(b.EndToEndDelaySamples) {
		return false
	}
	for i := range a.EndToEndDelaySamples {
		if a.EndToEndDelaySamples[i] != b.EndToEndDelaySamples[i] {
			return false
		}
	}
	return true
}
