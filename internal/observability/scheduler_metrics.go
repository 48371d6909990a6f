package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerCollector exposes metrics about the simkernel event loop itself,
// independent of the simulation domain counters in SimCollector.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	EventsProcessed     prometheus.Counter
	HandlerDuration     prometheus.Histogram
	PendingEventsGauge  prometheus.Gauge
	VirtualClockSeconds prometheus.Gauge
}

// NewSchedulerCollector registers scheduler metrics against the provided
// registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	events, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_scheduler_events_processed_total",
		Help: "Cumulative number of events dispatched by the simkernel event loop.",
	}), "sim_scheduler_events_processed_total")
	if err != nil {
		return nil, err
	}

	handlerDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_scheduler_handler_duration_seconds",
		Help:    "Wall-clock duration of a single event handler invocation.",
		Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
	}), "sim_scheduler_handler_duration_seconds")
	if err != nil {
		return nil, err
	}

	pending, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_scheduler_pending_events",
		Help: "Number of events currently queued in the event heap.",
	}), "sim_scheduler_pending_events")
	if err != nil {
		return nil, err
	}

	clock, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_scheduler_virtual_clock_seconds",
		Help: "Current virtual simulation time, in seconds since epoch.",
	}), "sim_scheduler_virtual_clock_seconds")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:            gatherer,
		EventsProcessed:     events,
		HandlerDuration:     handlerDuration,
		PendingEventsGauge:  pending,
		VirtualClockSeconds: clock,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordEvent records one dispatched event's handler duration and advances
// the events-processed counter.
func (c *SchedulerCollector) RecordEvent(d time.Duration) {
	if c == nil {
		return
	}
	if c.EventsProcessed != nil {
		c.EventsProcessed.Inc()
	}
	if c.HandlerDuration != nil {
		c.HandlerDuration.Observe(d.Seconds())
	}
}

// SetPendingEvents updates the pending-event-count gauge.
func (c *SchedulerCollector) SetPendingEvents(count int) {
	if c == nil || c.PendingEventsGauge == nil {
		return
	}
	c.PendingEventsGauge.Set(float64(count))
}

// SetVirtualClock updates the virtual-clock gauge.
func (c *SchedulerCollector) SetVirtualClock(now float64) {
	if c == nil || c.VirtualClockSeconds == nil {
		return
	}
	c.VirtualClockSeconds.Set(now)
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
