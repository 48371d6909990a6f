package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles the Prometheus metrics the simulation driver exports
// for a run in progress. The sent/received/forwarded totals and the
// per-node gauges are sampled from the node registry's cumulative counters
// (model.SatelliteStats, model.GroundStationStats) at each topology tick
// and once more at shutdown, which is why the totals are gauges rather
// than counters. PacketsDropped is the exception: internal/sim adds to it
// from the outbox drop callbacks, so it counts only gate-disconnected and
// queue-overflow drops of data packets; no-route and no-serving-satellite
// drops are not reflected in it. The two histograms are observed once per
// delivered packet. The authoritative per-packet bookkeeping lives in the
// stats structs and in the ScalarReport the driver emits at the end of a
// run (spec §6); these metrics exist for live observability, not as the
// source of truth.
type SimCollector struct {
	gatherer prometheus.Gatherer

	PacketsSent      prometheus.Gauge
	PacketsReceived  prometheus.Gauge
	PacketsForwarded prometheus.Gauge
	PacketsDropped   *prometheus.GaugeVec // labelled by drop reason

	EndToEndDelaySeconds prometheus.Histogram
	HopCount             prometheus.Histogram

	QueueDepth     *prometheus.GaugeVec // labelled by node handle
	LinkBusyRatio  *prometheus.GaugeVec // labelled by node handle, sampled at topology ticks
	RoutingEntries *prometheus.GaugeVec // labelled by satellite handle
}

// NewSimCollector registers the simulation's Prometheus metrics against the
// provided registerer, defaulting to the global registry when nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	sent, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_packets_sent_total",
		Help: "Cumulative data packets generated by ground-station traffic sources.",
	}), "sim_packets_sent_total")
	if err != nil {
		return nil, err
	}
	received, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_packets_received_total",
		Help: "Cumulative data packets delivered to their destination ground station.",
	}), "sim_packets_received_total")
	if err != nil {
		return nil, err
	}
	forwarded, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_packets_forwarded_total",
		Help: "Cumulative data packets forwarded across every satellite hop.",
	}), "sim_packets_forwarded_total")
	if err != nil {
		return nil, err
	}
	dropped, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_packets_dropped_total",
		Help: "Cumulative packets dropped, labelled by reason.",
	}, []string{"reason"}), "sim_packets_dropped_total")
	if err != nil {
		return nil, err
	}

	delay, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_end_to_end_delay_seconds",
		Help:    "End-to-end delay of delivered packets, from creation to sink reception.",
		Buckets: prometheus.ExponentialBuckets(1e-4, 2, 16),
	}), "sim_end_to_end_delay_seconds")
	if err != nil {
		return nil, err
	}
	hops, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_hop_count",
		Help:    "Hop count of delivered packets.",
		Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
	}), "sim_hop_count")
	if err != nil {
		return nil, err
	}

	queueDepth, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_queue_depth",
		Help: "Current transmit-queue length per node.",
	}, []string{"node"}), "sim_queue_depth")
	if err != nil {
		return nil, err
	}
	busyRatio, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_link_busy_ratio",
		Help: "1 if a node's primary outbound link was busy at the last sample, else 0.",
	}, []string{"node"}), "sim_link_busy_ratio")
	if err != nil {
		return nil, err
	}
	routingEntries, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sim_routing_table_size",
		Help: "Number of entries in a satellite's distance-vector routing table.",
	}, []string{"node"}), "sim_routing_table_size")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:             gatherer,
		PacketsSent:          sent,
		PacketsReceived:      received,
		PacketsForwarded:     forwarded,
		PacketsDropped:       dropped,
		EndToEndDelaySeconds: delay,
		HopCount:             hops,
		QueueDepth:           queueDepth,
		LinkBusyRatio:        busyRatio,
		RoutingEntries:       routingEntries,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler over the collector's
// gatherer.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// ObserveDelivery records one delivered packet's end-to-end delay and hop
// count (spec §6's endToEndDelay/hopCount vectors, sampled into
// histograms).
func (c *SimCollector) ObserveDelivery(delaySeconds float64, hopCount int) {
	if c == nil {
		return
	}
	if c.EndToEndDelaySeconds != nil {
		c.EndToEndDelaySeconds.Observe(delaySeconds)
	}
	if c.HopCount != nil {
		c.HopCount.Observe(float64(hopCount))
	}
}

// SetTotals sets the cumulative sent/received/forwarded/dropped-by-reason
// gauges from already-summed totals.
func (c *SimCollector) SetTotals(sent, received, forwarded int64, droppedByReason map[string]int64) {
	if c == nil {
		return
	}
	if c.PacketsSent != nil {
		c.PacketsSent.Set(float64(sent))
	}
	if c.PacketsReceived != nil {
		c.PacketsReceived.Set(float64(received))
	}
	if c.PacketsForwarded != nil {
		c.PacketsForwarded.Set(float64(forwarded))
	}
	if c.PacketsDropped != nil {
		for reason, count := range droppedByReason {
			c.PacketsDropped.WithLabelValues(reason).Set(float64(count))
		}
	}
}

// SetQueueDepth records the current transmit-queue length for node.
func (c *SimCollector) SetQueueDepth(node string, depth int) {
	if c == nil || c.QueueDepth == nil {
		return
	}
	c.QueueDepth.WithLabelValues(node).Set(float64(depth))
}

// SetLinkBusy records whether node's primary outbound link was busy at the
// moment of sampling.
func (c *SimCollector) SetLinkBusy(node string, busy bool) {
	if c == nil || c.LinkBusyRatio == nil {
		return
	}
	v := 0.0
	if busy {
		v = 1.0
	}
	c.LinkBusyRatio.WithLabelValues(node).Set(v)
}

// SetRoutingTableSize records the number of entries in a satellite's
// distance-vector table.
func (c *SimCollector) SetRoutingTableSize(node string, size int) {
	if c == nil || c.RoutingEntries == nil {
		return
	}
	c.RoutingEntries.WithLabelValues(node).Set(float64(size))
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}
