package model

import "github.com/signalsfoundry/leo-orbit-sim/orbit"

// Attachment records which satellite a ground station is currently
// handed over to, and the dynamic gate index allocated on that
// satellite for the link (spec §4.7).
type Attachment struct {
	Satellite NodeHandle
	GateIdx   int
}

// TrafficRole selects a ground station's source/destination rule in the
// traffic generator (spec §4.8's "role-based rule defined by scenario
// configuration").
type TrafficRole string

const (
	// RoleHub sends to a uniformly chosen member of Peers on every
	// traffic tick (e.g. the Istanbul hub sending to a random hometown).
	RoleHub TrafficRole = "hub"
	// RoleLeaf always sends to the single member of Peers (the hub).
	RoleLeaf TrafficRole = "leaf"
)

// GroundStationStats are the per-ground-station scalar counters and
// per-packet vectors emitted at the end of a run (spec §6 Outputs).
type GroundStationStats struct {
	PacketsSent      int64
	PacketsReceived  int64
	PacketsDropped   int64
	TotalBitsReceived int64
	FirstPacketTime  float64
	LastPacketTime   float64

	// Reason breakdown for PacketsDropped, mirroring SatelliteStats (spec
	// §7's error taxonomy).
	DroppedNoServingSatellite int64
	DroppedGateDown           int64
	DroppedQueueFull          int64

	// EndToEndDelaySamples and HopCountSamples are appended to on every
	// delivered packet (spec §6's endToEndDelay/hopCount vectors).
	EndToEndDelaySamples []float64
	HopCountSamples      []int
}

// Throughput returns total bits received divided by the active window
// between the first and last received packet (spec §4.8).
func (s *GroundStationStats) Throughput() float64 {
	window := s.LastPacketTime - s.FirstPacketTime
	if window <= 0 {
		return 0
	}
	return float64(s.TotalBitsReceived) / window
}

// GroundStation is both a source and sink of user traffic. Attached is
// nil when Unattached (spec §4.7's state machine).
type GroundStation struct {
	Address     NodeHandle
	Geo         orbit.GeoCoord
	Position    orbit.Vec3 // fixed ECEF, computed once at scenario build
	MaxRangeKm  float64
	SendIntervalSec float64
	PacketSizeBytes int

	// Role and Peers drive the traffic generator's destination-selection
	// rule (spec §4.8): a hub picks uniformly among Peers, a leaf always
	// targets the single entry in Peers.
	Role  TrafficRole
	Peers []NodeHandle

	Attached *Attachment

	Stats GroundStationStats
}

// NewGroundStation constructs a ground station and fixes its ECEF
// position from its geographic coordinate.
func NewGroundStation(addr NodeHandle, geo orbit.GeoCoord, maxRangeKm, sendIntervalSec float64, packetSizeBytes int) *GroundStation {
	return &GroundStation{
		Address:         addr,
		Geo:             geo,
		Position:        orbit.GeoToECEF(geo),
		MaxRangeKm:      maxRangeKm,
		SendIntervalSec: sendIntervalSec,
		PacketSizeBytes: packetSizeBytes,
	}
}

// IsAttached reports whether the ground station currently has a
// serving satellite.
func (g *GroundStation) IsAttached() bool { return g.Attached != nil }
