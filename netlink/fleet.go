package netlink

import (
	"sync"

	"github.com/signalsfoundry/leo-orbit-sim/model"
)

// Fleet is the registry of every node's Outbox, keyed by the same
// model.NodeHandle the node registry (kb.Registry) uses for satellites and
// ground stations. Mirrors kb.Registry's map-of-handles shape (spec §9) so
// that routing, topology, handover, and traffic code can reach a peer's
// transmit queue by handle without holding an aliased reference to it.
type Fleet struct {
	mu       sync.RWMutex
	outboxes map[model.NodeHandle]*Outbox
}

// NewFleet constructs an empty fleet.
func NewFleet() *Fleet {
	return &Fleet{outboxes: make(map[model.NodeHandle]*Outbox)}
}

// Register associates an Outbox with a node handle, overwriting any
// previous association.
func (f *Fleet) Register(h model.NodeHandle, ob *Outbox) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outboxes[h] = ob
}

// Outbox returns the outbox registered for h, or nil if none.
func (f *Fleet) Outbox(h model.NodeHandle) *Outbox {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.outboxes[h]
}
