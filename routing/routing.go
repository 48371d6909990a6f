// Package routing implements the per-satellite distance-vector routing
// engine (spec §4.6): the local-update rebuild that runs after every
// neighbour refresh, the periodic broadcast of each satellite's table to
// its current neighbours, and the monotone-improvement processing of
// advertisements as they arrive. It also implements packet forwarding
// against the table it maintains.
//
// Grounded on the RouteEntry/routingTable shape declared in the original
// OMNeT++ Satellite.h (destination/next-hop/cost, one entry per
// destination) and on the Go map-keyed routing-table idiom used by the
// AODV reference router in the example pack
// (other_examples/dhruvds12-eie4-mesh-simulation__aodv.go), generalised
// from AODV's on-demand route discovery to this spec's periodic
// distance-vector broadcast. There is no split-horizon or
// count-to-infinity mitigation here — inherited behaviour per spec §9.
package routing

import (
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

// advertisementHeaderBits and advertisementEntryBits size an
// Advertisement's wire frame for the netlink transmit queue: one
// NodeHandle-sized source field, then a (destination, cost) pair per
// entry.
const (
	advertisementHeaderBits = 32
	advertisementEntryBits  = 96
)

// PacketDeliverFunc is invoked when a forwarded packet reaches the next
// hop. It is how the routing engine stays agnostic to what happens after
// a hop — whether that means another satellite forwarding again, or a
// ground station's sink recording delivery.
type PacketDeliverFunc func(sched *simkernel.Scheduler, at model.NodeHandle, pkt model.Packet)

// AdvertisementDeliverFunc is invoked when a broadcast advertisement
// reaches one of the sending satellite's neighbours.
type AdvertisementDeliverFunc func(at model.NodeHandle, adv model.Advertisement)

// LocalUpdate rebuilds sat's routing table from its current neighbour
// set (spec §4.6 "Local update"): the table is cleared and one
// directly-connected route is inserted per neighbour, at cost equal to
// the cached distance to it.
func LocalUpdate(sat *model.Satellite) {
	table := make(map[model.NodeHandle]model.RouteEntry, len(sat.Neighbors))
	for _, n := range sat.Neighbors {
		table[n.Peer] = model.RouteEntry{Destination: n.Peer, NextHop: n.Peer, Cost: n.DistanceKm}
	}
	sat.RoutingTable = table
}

// Broadcast sends one Advertisement — every table entry plus a self-entry
// at cost 0 — to each of sat's current neighbours (spec §4.6
// "Broadcast"). deliver is called once per neighbour when the
// advertisement actually crosses the link.
func Broadcast(sched *simkernel.Scheduler, sat *model.Satellite, fleet *netlink.Fleet, deliver AdvertisementDeliverFunc) {
	ob := fleet.Outbox(sat.ID)
	if ob == nil || len(sat.Neighbors) == 0 {
		return
	}

	entries := make([]model.AdEntry, 0, len(sat.RoutingTable)+1)
	entries = append(entries, model.AdEntry{Destination: sat.ID, Cost: 0})
	for _, r := range sat.RoutingTable {
		entries = append(entries, model.AdEntry{Destination: r.Destination, Cost: r.Cost})
	}
	adv := model.Advertisement{Source: sat.ID, Entries: entries}
	bits := advertisementHeaderBits + advertisementEntryBits*len(entries)

	for _, n := range sat.Neighbors {
		peer := n.Peer
		ob.Enqueue(sched, netlink.Frame{
			GateIdx:   n.GateIdx,
			BitLength: bits,
			Kind:      netlink.KindAdvertisement,
			Arrive: func(*simkernel.Scheduler, float64) {
				if deliver != nil {
					deliver(peer, adv)
				}
			},
		})
	}
}

// Receive processes an advertisement arriving at sat from adv.Source,
// using the link cost to adv.Source cached in sat's current neighbour
// list (spec §4.6 "Receive"). A strictly-lower total cost replaces the
// existing route; a tie keeps the older route, which is what avoids
// oscillation under this protocol's lack of split-horizon. If adv.Source
// is no longer a current neighbour (it arrived just as the topology
// changed), the advertisement is stale and is ignored.
func Receive(sat *model.Satellite, adv model.Advertisement) {
	linkCost, isNeighbor := sat.NeighborDistance(adv.Source)
	if !isNeighbor {
		return
	}

	for _, e := range adv.Entries {
		if e.Destination == sat.ID {
			continue
		}
		total := e.Cost + linkCost

		existing, has := sat.RoutingTable[e.Destination]
		if !has {
			sat.RoutingTable[e.Destination] = model.RouteEntry{Destination: e.Destination, NextHop: adv.Source, Cost: total}
			continue
		}
		if total < existing.Cost {
			sat.RoutingTable[e.Destination] = model.RouteEntry{Destination: e.Destination, NextHop: adv.Source, Cost: total}
		}
	}
}

// Forward routes pkt towards its destination using sat's routing table
// (spec §4.6 "Forwarding"): it resolves the next hop's outbound gate and
// enqueues the packet there, incrementing its hop count. If the table has
// no entry for the destination, or the resolved next hop is no longer a
// current neighbour, the packet is dropped with reason "no-route". Gate
// disconnection and queue overflow during the enqueue itself are handled
// by the outbox's own drop path, not here.
func Forward(sched *simkernel.Scheduler, sat *model.Satellite, fleet *netlink.Fleet, pkt model.Packet, deliver PacketDeliverFunc) {
	route, hasRoute := sat.RoutingTable[pkt.Destination]
	gateIdx := -1
	if hasRoute {
		for _, n := range sat.Neighbors {
			if n.Peer == route.NextHop {
				gateIdx = n.GateIdx
				break
			}
		}
	}
	if !hasRoute || gateIdx < 0 {
		sat.Stats.PacketsDropped++
		sat.Stats.DroppedNoRoute++
		return
	}

	ob := fleet.Outbox(sat.ID)
	if ob == nil {
		return
	}

	pkt.HopCount++
	bits := pkt.BitLength
	nextHop := route.NextHop
	ob.Enqueue(sched, netlink.Frame{
		GateIdx:   gateIdx,
		BitLength: bits,
		Kind:      netlink.KindPacket,
		Arrive: func(s *simkernel.Scheduler, arrival float64) {
			sat.Stats.PacketsForwarded++
			sat.Stats.TotalBitsForwarded += int64(bits)
			if sat.Stats.PacketsForwarded == 1 {
				sat.Stats.FirstForwardTime = arrival
			}
			sat.Stats.LastForwardTime = arrival
			if deliver != nil {
				deliver(s, nextHop, pkt)
			}
		},
	})
}
