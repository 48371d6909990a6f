// Package scenario decodes a constellation scenario from JSON into a typed
// configuration record, resolved once at simulation-build time (spec §6,
// §9's "replace dynamic reflection-style parameter access with a typed
// configuration record"). JSON is used rather than the original `.ini`
// format because the spec explicitly allows "any equivalent hierarchical
// format".
//
// Grounded on the teacher's core/scenario_loader.go: unexported *JSON
// struct shapes decoded with encoding/json, an exported Load function that
// returns a typed summary, and error wrapping that names the failing
// function.
package scenario

import (
	"encoding/json"
	"fmt"
	"io"
)

// Role is the traffic-generation role of a ground station (spec §4.8's
// "role-based rule defined by scenario configuration").
type Role string

const (
	// RoleHub sends to a uniformly chosen leaf on every traffic tick.
	RoleHub Role = "hub"
	// RoleLeaf sends to the scenario's single hub on every traffic tick.
	RoleLeaf Role = "leaf"
)

// Satellite is one satellite's scenario-file parameters (spec §6).
type Satellite struct {
	SatelliteID   int     `json:"satelliteId"`
	AltitudeKm    float64 `json:"altitude"`
	InclinationDeg float64 `json:"inclination"`
	RAANDeg       float64 `json:"raan"`
	ArgPerigeeDeg float64 `json:"argPerigee"`
	InitialAngleDeg float64 `json:"initialAngle"` // mean anomaly at epoch, per spec's fixed reading
	Eccentricity  float64 `json:"eccentricity"`
	MaxISLRangeKm float64 `json:"maxISLRange"`
}

// GroundStation is one ground station's scenario-file parameters (spec §6).
type GroundStation struct {
	Address         int     `json:"address"`
	LatitudeDeg     float64 `json:"latitude"`
	LongitudeDeg    float64 `json:"longitude"`
	AltitudeKm      float64 `json:"altitude"`
	MaxRangeKm      float64 `json:"maxRange"`
	SendIntervalSec float64 `json:"sendInterval"`
	PacketSizeBytes int     `json:"packetSize"`
	Role            Role    `json:"role"`
}

// ISLEdge is one inter-satellite-link edge in the static topology spec
// (spec §6's "enumeration of ISL edges").
type ISLEdge struct {
	A             int      `json:"a"`
	B             int      `json:"b"`
	DatarateBps   *float64 `json:"datarateBps"`
}

// DefaultISLDatarateBps is used for an edge that omits datarateBps (spec §6:
// "each with a datarate (default 10 Gb/s)").
const DefaultISLDatarateBps = 10e9

// Datarate returns the edge's configured datarate, or the default.
func (e ISLEdge) Datarate() float64 {
	if e.DatarateBps != nil {
		return *e.DatarateBps
	}
	return DefaultISLDatarateBps
}

// Scenario is the fully-decoded, typed configuration for one simulation
// run (spec §6's Scenario file).
type Scenario struct {
	Satellites     []Satellite     `json:"satellites"`
	GroundStations []GroundStation `json:"groundStations"`
	Topology       []ISLEdge       `json:"topology"`

	SimTimeLimitSec float64 `json:"sim-time-limit"`
	Seed            int64   `json:"seed"`
}

// document is the raw JSON shape; kept separate from Scenario so the
// exported type can grow validated/derived fields without changing the
// wire format.
type document struct {
	Satellites     []Satellite     `json:"satellites"`
	GroundStations []GroundStation `json:"groundStations"`
	Topology       []ISLEdge       `json:"topology"`
	SimTimeLimit   float64         `json:"sim-time-limit"`
	Seed           int64           `json:"seed"`
}

// Load decodes a Scenario from r and validates it against the invariants
// spec §7 calls "scenario-error": unknown references in the topology table,
// duplicate handles, and out-of-range values. A scenario error aborts the
// run (spec §7's "Propagation" rule); Load is where that abort is raised.
func Load(r io.Reader) (*Scenario, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("scenario.Load: decode failed: %w", err)
	}

	s := &Scenario{
		Satellites:      doc.Satellites,
		GroundStations:  doc.GroundStations,
		Topology:        doc.Topology,
		SimTimeLimitSec: doc.SimTimeLimit,
		Seed:            doc.Seed,
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("scenario.Load: %w", err)
	}
	return s, nil
}

func (s *Scenario) validate() error {
	if len(s.Satellites) == 0 {
		return fmt.Errorf("scenario declares no satellites")
	}
	if s.SimTimeLimitSec <= 0 {
		return fmt.Errorf("sim-time-limit must be positive, got %v", s.SimTimeLimitSec)
	}

	ids := make(map[int]bool, len(s.Satellites))
	for _, sat := range s.Satellites {
		if sat.SatelliteID <= 0 {
			return fmt.Errorf("satellite id must be >= 1, got %d", sat.SatelliteID)
		}
		if ids[sat.SatelliteID] {
			return fmt.Errorf("duplicate satellite id %d", sat.SatelliteID)
		}
		ids[sat.SatelliteID] = true
		if sat.Eccentricity < 0 || sat.Eccentricity >= 1 {
			return fmt.Errorf("satellite %d eccentricity %v out of [0,1)", sat.SatelliteID, sat.Eccentricity)
		}
	}

	addrs := make(map[int]bool, len(s.GroundStations))
	for _, gs := range s.GroundStations {
		if ids[gs.Address] {
			return fmt.Errorf("ground station address %d collides with a satellite id", gs.Address)
		}
		if addrs[gs.Address] {
			return fmt.Errorf("duplicate ground station address %d", gs.Address)
		}
		addrs[gs.Address] = true
		if gs.Role != RoleHub && gs.Role != RoleLeaf {
			return fmt.Errorf("ground station %d has invalid role %q, want %q or %q", gs.Address, gs.Role, RoleHub, RoleLeaf)
		}
	}

	for _, e := range s.Topology {
		if !ids[e.A] {
			return fmt.Errorf("topology edge references unknown satellite %d", e.A)
		}
		if !ids[e.B] {
			return fmt.Errorf("topology edge references unknown satellite %d", e.B)
		}
		if e.A == e.B {
			return fmt.Errorf("topology edge from satellite %d to itself", e.A)
		}
	}

	return nil
}
