// Package metrics exposes the harness's Prometheus instrumentation: a
// small set of gauges and counters covering comparison results, queue
// drops, and simulator session lifecycle.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "fixharness"
	subsystem = "run"
)

// Collector holds every metric the harness emits. A nil *Collector is a
// valid, inert receiver: every method on it is a no-op, so instrumented
// code never needs a presence check before calling one.
type Collector struct {
	ComparisonsTotal  *prometheus.CounterVec
	MismatchesTotal   *prometheus.CounterVec
	UnmatchedTotal    *prometheus.CounterVec
	QueueDroppedTotal prometheus.Counter
	SimulatorSessions prometheus.Gauge
}

// NewCollector builds a Collector and registers its metrics against reg.
// A nil reg registers against prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		ComparisonsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "comparisons_total", Help: "Total matched message pairs compared.",
		}, []string{"msg_type"}),
		MismatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "mismatches_total", Help: "Total tag-level comparison mismatches.",
		}, []string{"kind"}),
		UnmatchedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "unmatched_total", Help: "Total messages left unmatched by linking.",
		}, []string{"side"}),
		QueueDroppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "queue_dropped_total", Help: "Total inbound messages dropped because the online runner's queue was full.",
		}),
		SimulatorSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "simulator_sessions", Help: "Number of currently owned simulator endpoint sessions.",
		}),
	}
	reg.MustRegister(c.ComparisonsTotal, c.MismatchesTotal, c.UnmatchedTotal, c.QueueDroppedTotal, c.SimulatorSessions)
	return c
}

func (c *Collector) IncComparisons(msgType string) {
	if c == nil {
		return
	}
	c.ComparisonsTotal.WithLabelValues(msgType).Inc()
}

func (c *Collector) IncMismatch(kind string) {
	if c == nil {
		return
	}
	c.MismatchesTotal.WithLabelValues(kind).Inc()
}

func (c *Collector) IncUnmatched(side string) {
	if c == nil {
		return
	}
	c.UnmatchedTotal.WithLabelValues(side).Inc()
}

func (c *Collector) IncQueueDropped() {
	if c == nil {
		return
	}
	c.QueueDroppedTotal.Inc()
}

func (c *Collector) SetSimulatorSessions(n float64) {
	if c == nil {
		return
	}
	c.SimulatorSessions.Set(n)
}
