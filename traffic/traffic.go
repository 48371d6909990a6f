// Package traffic implements the periodic application-data traffic
// generator and its delivery sink (spec §4.8): each ground station emits
// one data packet every sendInterval seconds, addressed by a role-based
// hub/leaf rule, and records end-to-end delay, hop count, and throughput
// when a packet is finally delivered.
//
// Grounded on original_source/src/modules/GroundStation.cc's trafficTimer
// handler (packet construction, the address-99-is-a-hub addressing rule,
// and the endToEndDelay/packetsReceived/totalBitsReceived bookkeeping in
// its DataPacket-reception branch), generalised from the hard-coded
// addresses 99/101-110 to the scenario-driven Role/Peers on
// model.GroundStation.
package traffic

import (
	"math/rand"

	"github.com/signalsfoundry/leo-orbit-sim/handover"
	"github.com/signalsfoundry/leo-orbit-sim/kb"
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
)

// DeliverFunc is invoked when a packet generated at a ground station
// reaches its first hop (the satellite serving the ground station when the
// packet was generated). It is
// how the traffic generator stays agnostic to what happens past the first
// hop — ordinarily another call into the routing engine's Forward.
type DeliverFunc func(sched *simkernel.Scheduler, at model.NodeHandle, pkt model.Packet)

// packetHeaderBits accounts for the fixed source/destination/id/hop-count
// header alongside the scenario's configured payload size, when sizing a
// generated packet's wire frame.
const packetHeaderBits = 96

// Generator drives each ground station's periodic packet production.
type Generator struct {
	Registry *kb.Registry
	Fleet    *netlink.Fleet
	RNG      *rand.Rand // single deterministic stream, per spec §5

	// Deliver is called once a generated packet crosses the ground
	// station's uplink to its serving satellite.
	Deliver DeliverFunc

	nextPacketID int64
}

// NewGenerator constructs a Generator seeded from the scenario's RNG seed
// (spec §5: "a single deterministic stream seeded from scenario config").
func NewGenerator(reg *kb.Registry, fleet *netlink.Fleet, seed int64, deliver DeliverFunc) *Generator {
	return &Generator{
		Registry: reg,
		Fleet:    fleet,
		RNG:      rand.New(rand.NewSource(seed)),
		Deliver:  deliver,
	}
}

// Tick generates one packet from gs, enqueues it on the ground station's
// uplink gate if attached (dropping it with reason "no-serving-satellite"
// otherwise, per spec §4.7's final paragraph), and reschedules itself
// sendInterval seconds later.
func (g *Generator) Tick(sched *simkernel.Scheduler, gs *model.GroundStation) {
	now := sched.Now()
	dest := g.chooseDestination(gs)

	pkt := model.Packet{
		Source:       gs.Address,
		Destination:  dest,
		PacketID:     g.nextPacketID,
		HopCount:     0,
		CreationTime: now,
		BitLength:    gs.PacketSizeBytes * 8,
	}
	g.nextPacketID++

	ob := g.Fleet.Outbox(gs.Address)
	if !gs.IsAttached() || ob == nil {
		gs.Stats.PacketsSent++
		gs.Stats.PacketsDropped++
		gs.Stats.DroppedNoServingSatellite++
		sched.ScheduleAt(now+gs.SendIntervalSec, func(float64) { g.Tick(sched, gs) })
		return
	}

	gs.Stats.PacketsSent++
	deliver := g.Deliver
	frameBits := packetHeaderBits + pkt.BitLength
	servingSat := gs.Attached.Satellite
	ob.Enqueue(sched, netlink.Frame{
		GateIdx:   handover.GroundGateIdx,
		BitLength: frameBits,
		Kind:      netlink.KindPacket,
		Arrive: func(s *simkernel.Scheduler, arrival float64) {
			if deliver != nil {
				deliver(s, servingSat, pkt)
			}
		},
	})

	sched.ScheduleAt(now+gs.SendIntervalSec, func(float64) {
		g.Tick(sched, gs)
	})
}

func (g *Generator) chooseDestination(gs *model.GroundStation) model.NodeHandle {
	if len(gs.Peers) == 0 {
		return gs.Address
	}
	if gs.Role == model.RoleHub {
		return gs.Peers[g.RNG.Intn(len(gs.Peers))]
	}
	return gs.Peers[0]
}

// Sink records end-to-end delay, hop count, and byte-count statistics for
// a packet that has reached its destination ground station (spec §4.8's
// reception-side bookkeeping).
type Sink struct {
	// OnDeliver, if set, is called for each delivered packet after its
	// endToEndDelay/hopCount samples have been appended to gs.Stats.
	OnDeliver func(gs *model.GroundStation, pkt model.Packet, now float64)
}

// Receive updates gs's statistics for a packet that has just arrived,
// per spec §4.8: "records end-to-end delay (now - creation_time),
// hop-count, and byte-count; derives per-node throughput as
// total_bits_received / (last_packet_time - first_packet_time)".
func (s *Sink) Receive(gs *model.GroundStation, pkt model.Packet, now float64) {
	gs.Stats.PacketsReceived++
	gs.Stats.TotalBitsReceived += int64(pkt.BitLength)
	if gs.Stats.PacketsReceived == 1 {
		gs.Stats.FirstPacketTime = now
	}
	gs.Stats.LastPacketTime = now

	gs.Stats.EndToEndDelaySamples = append(gs.Stats.EndToEndDelaySamples, now-pkt.CreationTime)
	gs.Stats.HopCountSamples = append(gs.Stats.HopCountSamples, pkt.HopCount)

	if s.OnDeliver != nil {
		s.OnDeliver(gs, pkt, now)
	}
}
