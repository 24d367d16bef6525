package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_IncrementsRegisteredCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.IncComparisons("D")
	c.IncComparisons("D")
	c.IncMismatch("value_mismatch")
	c.IncUnmatched("actual")
	c.IncQueueDropped()
	c.SetSimulatorSessions(3)

	if got := testutil.ToFloat64(c.ComparisonsTotal.WithLabelValues("D")); got != 2 {
		t.Fatalf("expected 2 comparisons recorded for msgType D, got %v", got)
	}
	if got := testutil.ToFloat64(c.MismatchesTotal.WithLabelValues("value_mismatch")); got != 1 {
		t.Fatalf("expected 1 mismatch recorded, got %v", got)
	}
	if got := testutil.ToFloat64(c.UnmatchedTotal.WithLabelValues("actual")); got != 1 {
		t.Fatalf("expected 1 unmatched recorded, got %v", got)
	}
	if got := testutil.ToFloat64(c.QueueDroppedTotal); got != 1 {
		t.Fatalf("expected 1 queue drop recorded, got %v", got)
	}
	if got := testutil.ToFloat64(c.SimulatorSessions); got != 3 {
		t.Fatalf("expected simulator session gauge at 3, got %v", got)
	}
}

func TestCollector_NilReceiverMethodsAreNoOps(t *testing.T) {
	var c *Collector

	c.IncComparisons("D")
	c.IncMismatch("value_mismatch")
	c.IncUnmatched("actual")
	c.IncQueueDropped()
	c.SetSimulatorSessions(5)
}
