package kb

import (
	"testing"

	"github.com/signalsfoundry/leo-orbit-sim/model"
)

func TestAddAndGetSatellite(t *testing.T) {
	r := New()
	s := model.NewSatellite(1, orbitParamsStub(), 2000)
	if err := r.AddSatellite(s); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}
	got := r.Satellite(1)
	if got == nil || got.ID != 1 {
		t.Fatalf("Satellite(1) returned %#v", got)
	}
}

func TestAddSatelliteDuplicateHandleFails(t *testing.T) {
	r := New()
	if err := r.AddSatellite(model.NewSatellite(1, orbitParamsStub(), 2000)); err != nil {
		t.Fatalf("first AddSatellite error: %v", err)
	}
	if err := r.AddSatellite(model.NewSatellite(1, orbitParamsStub(), 2000)); err == nil {
		t.Fatalf("expected duplicate handle to fail")
	}
}

func TestSatelliteAndGroundHandlesMustBeDisjoint(t *testing.T) {
	r := New()
	if err := r.AddSatellite(model.NewSatellite(99, orbitParamsStub(), 2000)); err != nil {
		t.Fatalf("AddSatellite error: %v", err)
	}
	g := model.NewGroundStation(99, orbitGeoStub(), 2000, 1, 1024)
	if err := r.AddGroundStation(g); err == nil {
		t.Fatalf("expected ground station to collide with existing satellite handle")
	}
}

func TestSubscribePublishDeliversEvents(t *testing.T) {
	r := New()
	var got []Event
	unsub := r.Subscribe(func(e Event) { got = append(got, e) })

	r.Publish(Event{Type: EventHandover, Node: 101, Satellite: 1})
	if len(got) != 1 || got[0].Node != 101 {
		t.Fatalf("expected one event for node 101, got %#v", got)
	}

	unsub()
	r.Publish(Event{Type: EventHandover, Node: 102})
	if len(got) != 1 {
		t.Fatalf("expected no further events after unsubscribe, got %#v", got)
	}
}

func TestSatellitesReturnsAscendingHandleOrder(t *testing.T) {
	r := New()
	// Registered out of order; map iteration would otherwise return these
	// in an unpredictable order from one process to the next.
	for _, id := range []model.NodeHandle{5, 1, 3, 2, 4} {
		if err := r.AddSatellite(model.NewSatellite(id, orbitParamsStub(), 2000)); err != nil {
			t.Fatalf("AddSatellite(%d) error: %v", id, err)
		}
	}

	sats := r.Satellites()
	if len(sats) != 5 {
		t.Fatalf("len(Satellites()) = %d, want 5", len(sats))
	}
	for i, sat := range sats {
		if want := model.NodeHandle(i + 1); sat.ID != want {
			t.Errorf("Satellites()[%d].ID = %d, want %d", i, sat.ID, want)
		}
	}
}

func TestGroundStationsReturnsAscendingHandleOrder(t *testing.T) {
	r := New()
	for _, addr := range []model.NodeHandle{103, 101, 102} {
		if err := r.AddGroundStation(model.NewGroundStation(addr, orbitGeoStub(), 2000, 1, 1024)); err != nil {
			t.Fatalf("AddGroundStation(%d) error: %v", addr, err)
		}
	}

	grounds := r.GroundStations()
	want := []model.NodeHandle{101, 102, 103}
	if len(grounds) != len(want) {
		t.Fatalf("len(GroundStations()) = %d, want %d", len(grounds), len(want))
	}
	for i, gs := range grounds {
		if gs.Address != want[i] {
			t.Errorf("GroundStations()[%d].Address = %d, want %d", i, gs.Address, want[i])
		}
	}
}

func TestIsSatellite(t *testing.T) {
	r := New()
	r.AddSatellite(model.NewSatellite(1, orbitParamsStub(), 2000))
	r.AddGroundStation(model.NewGroundStation(101, orbitGeoStub(), 2000, 1, 1024))

	if !r.IsSatellite(1) {
		t.Errorf("expected handle 1 to be a satellite")
	}
	if r.IsSatellite(101) {
		t.Errorf("expected handle 101 to not be a satellite")
	}
}
