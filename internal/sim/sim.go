// Package sim is the simulation driver (spec §4.9, C9): it builds the node
// registry and static ISL mesh from a loaded scenario, schedules the
// periodic position/topology, handover, and traffic timers, runs the
// simkernel event loop to the configured horizon, and collects each node's
// scalar report afterwards.
//
// Grounded on the teacher's cmd/simulator/main.go for the overall shape of
// a driver that builds nodes from a scenario, wires a time controller, and
// runs to completion — generalised from the teacher's two hard-coded
// platforms plus one time.Duration ticker to this spec's scenario-driven
// satellite/ground-station population and simkernel's virtual-time event
// queue.
package sim

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/leo-orbit-sim/handover"
	"github.com/signalsfoundry/leo-orbit-sim/internal/logging"
	"github.com/signalsfoundry/leo-orbit-sim/internal/observability"
	"github.com/signalsfoundry/leo-orbit-sim/internal/scenario"
	"github.com/signalsfoundry/leo-orbit-sim/kb"
	"github.com/signalsfoundry/leo-orbit-sim/model"
	"github.com/signalsfoundry/leo-orbit-sim/netlink"
	"github.com/signalsfoundry/leo-orbit-sim/orbit"
	"github.com/signalsfoundry/leo-orbit-sim/routing"
	"github.com/signalsfoundry/leo-orbit-sim/simkernel"
	"github.com/signalsfoundry/leo-orbit-sim/topology"
	"github.com/signalsfoundry/leo-orbit-sim/traffic"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ScalarReport is the typed per-node summary the driver emits at shutdown
// (spec §6's Outputs). NodeType is "satellite" or "ground".
type ScalarReport struct {
	NodeHandle model.NodeHandle
	NodeType   string

	PacketsSent      int64
	PacketsReceived  int64
	PacketsDropped   int64
	PacketsForwarded int64

	ThroughputBps        float64
	ForwardThroughputBps float64
	PacketDeliveryRatio  float64
	ForwardSuccessRate   float64

	EndToEndDelaySamples []float64
	HopCountSamples      []int
}

// Simulation owns every piece the driver wires together: the registry, the
// link fleet, the scheduler, and the per-component managers.
type Simulation struct {
	Scheduler *simkernel.Scheduler
	Registry  *kb.Registry
	Fleet     *netlink.Fleet

	topologyMgr *topology.Manager
	handoverMgr *handover.Manager
	generator   *traffic.Generator
	sink        *traffic.Sink

	horizon          float64
	log              logging.Logger
	metrics          *observability.SimCollector
	schedulerMetrics *observability.SchedulerCollector
	tracer           trace.Tracer
}

// Option configures optional dependencies at construction time.
type Option func(*Simulation)

// WithLogger attaches a structured logger; the zero value is a no-op logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Simulation) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics attaches a Prometheus collector; nil collectors are no-ops.
func WithMetrics(m *observability.SimCollector) Option {
	return func(s *Simulation) { s.metrics = m }
}

// WithSchedulerMetrics attaches a collector that instruments the simkernel
// event loop itself (events processed, handler duration, queue depth,
// virtual clock); nil collectors are no-ops.
func WithSchedulerMetrics(m *observability.SchedulerCollector) Option {
	return func(s *Simulation) { s.schedulerMetrics = m }
}

// WithTracer overrides the tracer used for the run's root span and each
// topology tick's child span. Defaults to observability.Tracer(), which is
// a no-op until observability.InitTracing installs a real provider.
func WithTracer(t trace.Tracer) Option { return func(s *Simulation) { s.tracer = t } }

// New builds a Simulation from a decoded scenario (spec §4.9's "builds
// nodes and static ISL links from scenario"). It returns a scenario-error
// (spec §7) wrapped as a Go error if the scenario is structurally invalid
// in a way Load did not already catch — e.g. more than one hub.
func New(sc *scenario.Scenario, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		Scheduler: simkernel.New(),
		Registry:  kb.New(),
		Fleet:     netlink.NewFleet(),
		horizon:   sc.SimTimeLimitSec,
		log:       logging.Noop(),
		tracer:    observability.Tracer(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.schedulerMetrics != nil {
		s.Scheduler.SetObserver(s.schedulerMetrics)
	}

	if err := s.buildSatellites(sc); err != nil {
		return nil, err
	}
	if err := s.buildISLMesh(sc); err != nil {
		return nil, err
	}
	if err := s.buildGroundStations(sc); err != nil {
		return nil, err
	}

	s.topologyMgr = &topology.Manager{
		Registry:             s.Registry,
		Fleet:                s.Fleet,
		DeliverAdvertisement: s.deliverAdvertisement,
		Log:                  s.log,
		Tracer:               s.tracer,
	}
	s.handoverMgr = &handover.Manager{Registry: s.Registry, Fleet: s.Fleet, Log: s.log}
	s.sink = &traffic.Sink{}
	s.generator = traffic.NewGenerator(s.Registry, s.Fleet, sc.Seed, s.deliverPacket)

	// Attach every ground station to its nearest in-range satellite at
	// t=0, before Run ever schedules a traffic timer — otherwise a
	// station sends into an Unattached state for the whole first second
	// (spec §4.7's handover tick period), tail-dropping every packet a
	// sub-second sendInterval generates before the first periodic check.
	// Grounded on original_source's GroundStation.cc, which calls
	// performHandover() once from initialize() ahead of the periodic
	// handoverTimer. Tick schedules that first periodic check itself, at
	// handover.TickIntervalSec.
	for _, gs := range s.Registry.GroundStations() {
		s.handoverMgr.Tick(s.Scheduler, gs)
	}

	return s, nil
}

func (s *Simulation) buildSatellites(sc *scenario.Scenario) error {
	for _, satCfg := range sc.Satellites {
		params := orbit.Params{
			SemiMajorAxisKm: orbit.EarthRadiusKm + satCfg.AltitudeKm,
			Eccentricity:    satCfg.Eccentricity,
			InclinationDeg:  satCfg.InclinationDeg,
			RAANDeg:         satCfg.RAANDeg,
			ArgPerigeeDeg:   satCfg.ArgPerigeeDeg,
			M0Deg:           satCfg.InitialAngleDeg,
		}
		sat := model.NewSatellite(model.NodeHandle(satCfg.SatelliteID), params, satCfg.MaxISLRangeKm)
		sat.Position = orbit.Propagate(params, 0)

		if err := s.Registry.AddSatellite(sat); err != nil {
			return fmt.Errorf("sim.New: %w", err)
		}
		ob := netlink.NewOutbox(netlink.DefaultQueueCapacity)
		ob.OnDrop = s.onSatelliteDrop(sat)
		s.Fleet.Register(sat.ID, ob)
	}
	return nil
}

// onSatelliteDrop attributes a dropped frame back to sat's stats and, for
// user data packets only, to the live metrics collector (spec §7's error
// taxonomy; advertisements are transport overhead and are not counted as
// delivery failures).
func (s *Simulation) onSatelliteDrop(sat *model.Satellite) netlink.DropFunc {
	return func(reason model.DropReason, f netlink.Frame) {
		if f.Kind != netlink.KindPacket {
			return
		}
		sat.Stats.PacketsDropped++
		switch reason {
		case model.DropGateDisconnected:
			sat.Stats.DroppedGateDown++
		case model.DropQueueOverflow:
			sat.Stats.DroppedQueueFull++
		}
		if s.metrics != nil {
			s.metrics.PacketsDropped.WithLabelValues(string(reason)).Add(1)
		}
	}
}

// buildISLMesh wires the static inter-satellite link graph once, at
// scenario-construction time (spec §4.5: "The physical ISL graph is built
// once at scenario construction from an explicit topology specification").
// Each edge becomes two gates, one per direction, whose initial delay is
// computed from the satellites' t=0 positions; the first topology tick
// recomputes it from there.
func (s *Simulation) buildISLMesh(sc *scenario.Scenario) error {
	for _, edge := range sc.Topology {
		a := s.Registry.Satellite(model.NodeHandle(edge.A))
		b := s.Registry.Satellite(model.NodeHandle(edge.B))
		if a == nil || b == nil {
			return fmt.Errorf("sim.New: topology edge references unregistered satellite (%d, %d)", edge.A, edge.B)
		}

		obA := s.Fleet.Outbox(a.ID)
		obB := s.Fleet.Outbox(b.ID)

		dist := a.Position.DistanceTo(b.Position)
		delay := dist/topology.SpeedOfLightKmPerSec + topology.ProcessingDelaySec
		rate := edge.Datarate()

		aToB := &netlink.Link{DatarateBps: rate, DelaySec: delay}
		bToA := &netlink.Link{DatarateBps: rate, DelaySec: delay}

		idxA := obA.AddGate()
		obA.Connect(idxA, b.ID, aToB)
		idxB := obB.AddGate()
		obB.Connect(idxB, a.ID, bToA)
	}
	return nil
}

func (s *Simulation) buildGroundStations(sc *scenario.Scenario) error {
	var hub model.NodeHandle
	hubSeen := false
	var leaves []model.NodeHandle
	for _, gsCfg := range sc.GroundStations {
		if gsCfg.Role == scenario.RoleHub {
			if hubSeen {
				return fmt.Errorf("sim.New: scenario declares more than one hub ground station")
			}
			hub = model.NodeHandle(gsCfg.Address)
			hubSeen = true
		} else {
			leaves = append(leaves, model.NodeHandle(gsCfg.Address))
		}
	}

	for _, gsCfg := range sc.GroundStations {
		geo := orbit.GeoCoord{LatDeg: gsCfg.LatitudeDeg, LonDeg: gsCfg.LongitudeDeg, AltKm: gsCfg.AltitudeKm}
		gs := model.NewGroundStation(model.NodeHandle(gsCfg.Address), geo, gsCfg.MaxRangeKm, gsCfg.SendIntervalSec, gsCfg.PacketSizeBytes)

		if gsCfg.Role == scenario.RoleHub {
			gs.Role = model.RoleHub
			gs.Peers = leaves
		} else {
			gs.Role = model.RoleLeaf
			gs.Peers = []model.NodeHandle{hub}
		}

		if err := s.Registry.AddGroundStation(gs); err != nil {
			return fmt.Errorf("sim.New: %w", err)
		}
		ob := netlink.NewOutbox(netlink.DefaultQueueCapacity)
		ob.AddGate() // reserved uplink slot, connected on first handover (spec §4.7)
		ob.OnDrop = s.onGroundStationDrop(gs)
		s.Fleet.Register(gs.Address, ob)
	}
	return nil
}

// onGroundStationDrop mirrors onSatelliteDrop for ground-station uplinks.
// DroppedNoServingSatellite is not handled here — the traffic generator
// never reaches the outbox in that case, so it updates that counter itself.
func (s *Simulation) onGroundStationDrop(gs *model.GroundStation) netlink.DropFunc {
	return func(reason model.DropReason, f netlink.Frame) {
		if f.Kind != netlink.KindPacket {
			return
		}
		gs.Stats.PacketsDropped++
		switch reason {
		case model.DropGateDisconnected:
			gs.Stats.DroppedGateDown++
		case model.DropQueueOverflow:
			gs.Stats.DroppedQueueFull++
		}
		if s.metrics != nil {
			s.metrics.PacketsDropped.WithLabelValues(string(reason)).Add(1)
		}
	}
}

// deliverAdvertisement routes an arrived routing.Advertisement to the
// satellite registered at `at`, completing the loop the topology manager's
// Broadcast step started.
func (s *Simulation) deliverAdvertisement(at model.NodeHandle, adv model.Advertisement) {
	sat := s.Registry.Satellite(at)
	if sat == nil {
		return
	}
	routing.Receive(sat, adv)
}

// deliverPacket routes an arrived data packet to whatever is registered at
// `at`: another forwarding hop if it's a satellite, or the sink if it's the
// destination ground station. It is passed to both traffic.Generator (for
// a packet's first hop) and routing.Forward (for every hop after that), so
// the forwarding chain never needs to know what kind of node is next.
func (s *Simulation) deliverPacket(sched *simkernel.Scheduler, at model.NodeHandle, pkt model.Packet) {
	if sat := s.Registry.Satellite(at); sat != nil {
		routing.Forward(sched, sat, s.Fleet, pkt, s.deliverPacket)
		return
	}
	if gs := s.Registry.GroundStation(at); gs != nil {
		now := sched.Now()
		s.sink.Receive(gs, pkt, now)
		s.metrics.ObserveDelivery(now-pkt.CreationTime, pkt.HopCount)
	}
}

// syncMetrics samples the registry's cumulative stats into the live
// Prometheus gauges (spec §6's outputs, observed in-flight rather than only
// at shutdown). A no-op when no collector is attached.
func (s *Simulation) syncMetrics() {
	if s.metrics == nil {
		return
	}
	now := s.Scheduler.Now()
	var sent, received, forwarded int64
	for _, sat := range s.Registry.Satellites() {
		forwarded += sat.Stats.PacketsForwarded
		s.metrics.SetRoutingTableSize(fmt.Sprintf("sat-%d", sat.ID), len(sat.RoutingTable))
		if ob := s.Fleet.Outbox(sat.ID); ob != nil {
			node := fmt.Sprintf("sat-%d", sat.ID)
			s.metrics.SetQueueDepth(node, ob.QueueLength())
			s.metrics.SetLinkBusy(node, primaryGateBusy(ob, now))
		}
	}
	for _, gs := range s.Registry.GroundStations() {
		sent += gs.Stats.PacketsSent
		received += gs.Stats.PacketsReceived
		if ob := s.Fleet.Outbox(gs.Address); ob != nil {
			node := fmt.Sprintf("gs-%d", gs.Address)
			s.metrics.SetQueueDepth(node, ob.QueueLength())
			s.metrics.SetLinkBusy(node, primaryGateBusy(ob, now))
		}
	}
	s.metrics.SetTotals(sent, received, forwarded, nil)
}

// primaryGateBusy reports whether a node's first connected outbound gate's
// link is occupied at the given virtual time, for the sim_link_busy_ratio
// gauge. Nodes with no connected gate (an unattached ground station, or a
// satellite with no ISL edge and no attached ground station) report
// not-busy. An ISL gate whose peer is out of range stays connected and is
// sampled like any other.
func primaryGateBusy(ob *netlink.Outbox, now float64) bool {
	for idx := 0; idx < ob.GateCount(); idx++ {
		_, link, connected, ok := ob.GateInfo(idx)
		if ok && connected {
			return link.Busy(now)
		}
	}
	return false
}

// Run schedules every node's initial periodic timer (spec §4.9) and runs
// the simkernel loop to the configured horizon.
func (s *Simulation) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "simulation.run", trace.WithAttributes(
		attribute.Float64("horizon_sec", s.horizon),
		attribute.Int("satellite_count", len(s.Registry.Satellites())),
		attribute.Int("ground_station_count", len(s.Registry.GroundStations())),
	))
	defer span.End()
	s.topologyMgr.RootCtx = ctx

	// Registry.Satellites/GroundStations return handle-ordered snapshots
	// (kb/registry.go), so every node's initial timer is scheduled in the
	// same order every run: with all first topology/handover ticks landing
	// at the same virtual time, that order is what the scheduler's seq
	// tie-breaker sees, and spec §5/§8 require that to be deterministic
	// across runs of the same scenario and seed, not a function of Go's
	// randomized map iteration.
	sats := s.Registry.Satellites()
	for _, sat := range sats {
		sat := sat
		s.Scheduler.ScheduleAt(topology.TickIntervalSec, func(float64) {
			s.topologyMgr.Tick(s.Scheduler, sat)
		})
	}
	// Each ground station's periodic handover check is already running:
	// New attached it to its nearest satellite at t=0 and, in doing so,
	// had Tick schedule its own first periodic re-check.
	grounds := s.Registry.GroundStations()
	for _, gs := range grounds {
		gs := gs
		s.Scheduler.ScheduleAt(gs.SendIntervalSec, func(float64) {
			s.generator.Tick(s.Scheduler, gs)
		})
	}

	if s.metrics != nil {
		s.Scheduler.ScheduleAt(topology.TickIntervalSec, s.metricsTick)
	}

	s.log.Info(ctx, "simulation starting", logging.Any("horizon_sec", s.horizon))
	s.Scheduler.Run(s.horizon)
	s.syncMetrics()
	s.log.Info(ctx, "simulation complete", logging.Any("final_clock_sec", s.Scheduler.Now()))
}

// metricsTick samples live gauges once per topology-tick interval and
// reschedules itself, mirroring the self-rescheduling pattern every other
// periodic timer in this driver uses.
func (s *Simulation) metricsTick(now float64) {
	s.syncMetrics()
	s.Scheduler.ScheduleAt(now+topology.TickIntervalSec, s.metricsTick)
}

// Reports returns one ScalarReport per registered node, satellites first in
// ascending handle order, then ground stations in ascending handle order —
// deterministic given a deterministic scenario and seed (spec §5, §8).
func (s *Simulation) Reports() []ScalarReport {
	var out []ScalarReport

	sats := s.Registry.Satellites()
	sortNodes(sats, func(i int) model.NodeHandle { return sats[i].ID })
	for _, sat := range sats {
		out = append(out, ScalarReport{
			NodeHandle:           sat.ID,
			NodeType:             "satellite",
			PacketsReceived:      sat.Stats.PacketsReceived,
			PacketsDropped:       sat.Stats.PacketsDropped,
			PacketsForwarded:     sat.Stats.PacketsForwarded,
			ForwardThroughputBps: sat.Stats.Throughput(),
			PacketDeliveryRatio:  sat.Stats.DeliveryRatio(),
			ForwardSuccessRate:   sat.Stats.DeliveryRatio(),
		})
	}

	grounds := s.Registry.GroundStations()
	sortNodes(grounds, func(i int) model.NodeHandle { return grounds[i].Address })
	for _, gs := range grounds {
		out = append(out, ScalarReport{
			NodeHandle:           gs.Address,
			NodeType:             "ground",
			PacketsSent:          gs.Stats.PacketsSent,
			PacketsReceived:      gs.Stats.PacketsReceived,
			PacketsDropped:       gs.Stats.PacketsDropped,
			ThroughputBps:        gs.Stats.Throughput(),
			PacketDeliveryRatio:  deliveryRatio(gs.Stats.PacketsSent, gs.Stats.PacketsDropped),
			EndToEndDelaySamples: gs.Stats.EndToEndDelaySamples,
			HopCountSamples:      gs.Stats.HopCountSamples,
		})
	}

	return out
}

func deliveryRatio(sent, dropped int64) float64 {
	if sent == 0 {
		return 1.0
	}
	delivered := sent - dropped
	if delivered < 0 {
		delivered = 0
	}
	return float64(delivered) / float64(sent)
}

// sortNodes is a tiny insertion sort over a generic slice keyed by handle,
// avoiding a dependency on sort.Slice's closure-capture boilerplate for two
// call sites of fewer than a few hundred elements each.
func sortNodes[T any](items []T, key func(i int) model.NodeHandle) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && key(j) < key(j-1); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
