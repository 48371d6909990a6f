// Package model holds the entities of the constellation simulation:
// satellites, ground stations, routing state, and data packets. Types
// here are plain data; behaviour lives in the owning packages (topology,
// routing, handover, traffic) that mutate them inside scheduler handlers.
package model

import "github.com/signalsfoundry/leo-orbit-sim/orbit"

// NodeHandle is a stable small-integer reference to a satellite or
// ground station, used in place of aliased pointers so that links and
// routing tables never hold raw cross-node references (spec §9).
type NodeHandle int

// Neighbor is one entry in a satellite's current neighbour set: a peer handle, the cached distance to it, and the
// index of the local outbound gate wired to it.
type Neighbor struct {
	Peer     NodeHandle
	DistanceKm float64
	GateIdx  int
}

// RouteEntry is one row of a distance-vector routing table: the best
// known next hop and cost to reach Destination.
type RouteEntry struct {
	Destination NodeHandle
	NextHop     NodeHandle
	Cost        float64
}

// SatelliteStats are the per-satellite scalar counters emitted at the
// end of a run (spec §6 Outputs).
type SatelliteStats struct {
	PacketsReceived    int64 // should stay 0 — a satellite is never a final destination
	PacketsForwarded   int64
	PacketsDropped     int64
	DroppedNoRoute     int64
	DroppedGateDown    int64
	DroppedQueueFull   int64
	TotalBitsForwarded int64
	FirstForwardTime   float64
	LastForwardTime    float64
}

// Throughput returns total bits forwarded divided by the active window
// between the first and last forwarded packet, per spec §4.8.
func (s *SatelliteStats) Throughput() float64 {
	window := s.LastForwardTime - s.FirstForwardTime
	if window <= 0 {
		return 0
	}
	return float64(s.TotalBitsForwarded) / window
}

// DeliveryRatio is total successes over successes+drops at this
// satellite, 1.0 if it has handled nothing yet (spec §6).
func (s *SatelliteStats) DeliveryRatio() float64 {
	total := s.PacketsForwarded + s.PacketsDropped
	if total == 0 {
		return 1.0
	}
	return float64(s.PacketsForwarded) / float64(total)
}

// Satellite is a pure router: it carries an orbit, a neighbour set, a
// distance-vector routing table, and per-node statistics. Its transmit
// queue and outbound gates live in a netlink.Outbox inside the
// simulation's netlink.Fleet, keyed by the same handle.
type Satellite struct {
	ID            NodeHandle
	Orbit         orbit.Params
	MaxISLRangeKm float64

	Position  orbit.Vec3
	Neighbors []Neighbor

	// RoutingTable maps destination -> best known route, per spec §3's
	// "at most one entry per destination" invariant.
	RoutingTable map[NodeHandle]RouteEntry

	Stats SatelliteStats
}

// NewSatellite constructs a satellite with an empty routing table.
func NewSatellite(id NodeHandle, p orbit.Params, maxISLRangeKm float64) *Satellite {
	return &Satellite{
		ID:            id,
		Orbit:         p,
		MaxISLRangeKm: maxISLRangeKm,
		RoutingTable:  make(map[NodeHandle]RouteEntry),
	}
}

// NeighborDistance returns the cached distance to peer and true if peer
// is a current neighbour, used by the routing engine to compute link
// cost when processing an advertisement (spec §4.6 "Receive").
func (s *Satellite) NeighborDistance(peer NodeHandle) (float64, bool) {
	for _, n := range s.Neighbors {
		if n.Peer == peer {
			return n.DistanceKm, true
		}
	}
	return 0, false
}
