// Package kb is the simulation's node registry: the single place that
// maps a stable model.NodeHandle to the satellite or ground-station
// state behind it. Links and routing tables refer to peers by handle,
// never by aliased pointer, and look them up here (spec §9).
package kb

import (
	"fmt"
	"sync"

	"github.com/signalsfoundry/leo-orbit-sim/model"
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	// EventPositionUpdated fires when a satellite's cached position is
	// refreshed by the topology manager.
	EventPositionUpdated EventType = iota
	// EventHandover fires when a ground station attaches, re-attaches,
	// or detaches from a serving satellite.
	EventHandover
)

// Event is emitted to subscribers when something interesting happens in
// the registry. Node is the handle the event concerns; for
// EventHandover, Satellite is the new serving satellite (zero value if
// the ground station went Unattached).
type Event struct {
	Type      EventType
	Node      model.NodeHandle
	Satellite model.NodeHandle
}

// Registry is the in-memory, thread-safe store of every satellite and
// ground station in the scenario, keyed by their stable handles.
// Satellite ids and ground-station addresses are disjoint (spec §3), so
// a single handle space with a kind tag is sufficient.
type Registry struct {
	mu sync.RWMutex

	satellites map[model.NodeHandle]*model.Satellite
	grounds    map[model.NodeHandle]*model.GroundStation

	subs []func(Event)
}

// New constructs an empty registry.
func New() *Registry {
	return &Registry{
		satellites: make(map[model.NodeHandle]*model.Satellite),
		grounds:    make(map[model.NodeHandle]*model.GroundStation),
	}
}

// AddSatellite registers a satellite. Returns an error if the handle is
// already in use by a satellite or a ground station.
func (r *Registry) AddSatellite(s *model.Satellite) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFree(s.ID); err != nil {
		return err
	}
	r.satellites[s.ID] = s
	return nil
}

// AddGroundStation registers a ground station. Returns an error if the
// handle is already in use.
func (r *Registry) AddGroundStation(g *model.GroundStation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkFree(g.Address); err != nil {
		return err
	}
	r.grounds[g.Address] = g
	return nil
}

func (r *Registry) checkFree(h model.NodeHandle) error {
	if _, exists := r.satellites[h]; exists {
		return fmt.Errorf("handle %d already registered as a satellite", h)
	}
	if _, exists := r.grounds[h]; exists {
		return fmt.Errorf("handle %d already registered as a ground station", h)
	}
	return nil
}

// Satellite returns the satellite with the given handle, or nil.
func (r *Registry) Satellite(h model.NodeHandle) *model.Satellite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.satellites[h]
}

// GroundStation returns the ground station with the given handle, or nil.
func (r *Registry) GroundStation(h model.NodeHandle) *model.GroundStation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.grounds[h]
}

// IsSatellite reports whether h refers to a registered satellite.
func (r *Registry) IsSatellite(h model.NodeHandle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.satellites[h]
	return ok
}

// Satellites returns a snapshot slice of every registered satellite,
// ordered by ascending handle. Map iteration order is randomized per
// process; every caller that schedules events or breaks distance ties
// over this slice (handover's nearest-satellite scan, the simulation
// driver's initial timers) needs a stable order for spec §5's
// determinism invariant, so the order is fixed here once rather than
// left to each call site.
func (r *Registry) Satellites() []*model.Satellite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Satellite, 0, len(r.satellites))
	for _, s := range r.satellites {
		out = append(out, s)
	}
	sortByHandle(out, func(i int) model.NodeHandle { return out[i].ID })
	return out
}

// GroundStations returns a snapshot slice of every registered ground
// station, ordered by ascending handle (see Satellites).
func (r *Registry) GroundStations() []*model.GroundStation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.GroundStation, 0, len(r.grounds))
	for _, g := range r.grounds {
		out = append(out, g)
	}
	sortByHandle(out, func(i int) model.NodeHandle { return out[i].Address })
	return out
}

// sortByHandle is a tiny insertion sort over a generic slice keyed by
// handle — these snapshots are small enough that it isn't worth pulling
// in sort.Slice's closure-capture boilerplate for them.
func sortByHandle[T any](items []T, key func(i int) model.NodeHandle) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && key(j) < key(j-1); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}

// Subscribe registers a callback for registry events and returns an
// unsubscribe function.
func (r *Registry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
	idx := len(r.subs) - 1

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if idx < 0 || idx >= len(r.subs) {
			return
		}
		r.subs = append(r.subs[:idx], r.subs[idx+1:]...)
		idx = -1
	}
}

// Publish notifies subscribers of an event. It takes no lock over the
// callback invocations themselves, matching the registry's single-writer
// usage: callers publish from within a scheduler handler, where no other
// handler is concurrently mutating state (spec §5).
func (r *Registry) Publish(e Event) {
	r.mu.RLock()
	subs := append([]func(Event){}, r.subs...)
	r.mu.RUnlock()
	for _, sub := range subs {
		sub(e)
	}
}
