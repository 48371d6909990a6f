package model

// Packet is a user-traffic data packet (spec §3's DataPacket). It is
// immutable except HopCount, which is incremented on every forwarding
// hop.
type Packet struct {
	Source      NodeHandle
	Destination NodeHandle
	PacketID    int64
	HopCount    int
	CreationTime float64
	BitLength   int
}

// DropReason enumerates the runtime error taxonomy of spec §7. Every
// drop anywhere in the simulation is attributed to exactly one of
// these.
type DropReason string

const (
	DropNoRoute           DropReason = "no-route"
	DropGateDisconnected  DropReason = "gate-disconnected"
	DropQueueOverflow     DropReason = "queue-overflow"
	DropNoServingSatellite DropReason = "no-serving-satellite"
)

// Advertisement is a routing-protocol broadcast message (spec §3's
// RoutingAdvertisement): a source and a list of (destination, cost)
// pairs, including a self-entry with cost 0.
type Advertisement struct {
	Source  NodeHandle
	Entries []AdEntry
}

// AdEntry is one (destination, cost) pair inside an Advertisement.
type AdEntry struct {
	Destination NodeHandle
	Cost        float64
}
