// Package metrics exposes Prometheus instrumentation for the fetch and
// aggregation pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the application metrics. A nil Collector is valid and
// records nothing, so instrumentation can be left unwired in tests.
type Collector struct {
	FetchTotal      *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	RebuildTotal    prometheus.Counter
	YearsAppended   prometheus.Counter
	AggregationRuns prometheus.Counter
}

// NewCollector registers the tracker's metrics with reg.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fetch_requests_total",
				Help:      "Remote archive requests by outcome",
			},
			[]string{"outcome"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Duration of remote archive requests",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
		RebuildTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_rebuilds_total",
				Help:      "Full history rebuilds started",
			},
		),
		YearsAppended: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "years_appended_total",
				Help:      "Year records appended to the history",
			},
		),
		AggregationRuns: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "aggregation_runs_total",
				Help:      "Summary aggregation runs",
			},
		),
	}
}

// ObserveFetch records one remote request with its outcome and duration.
func (c *Collector) ObserveFetch(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.FetchTotal.WithLabelValues(outcome).Inc()
	c.FetchDuration.Observe(elapsed.Seconds())
}

// RebuildStarted records the start of a full history rebuild.
func (c *Collector) RebuildStarted() {
	if c == nil {
		return
	}
	c.RebuildTotal.Inc()
}

// YearAppended records an incremental history append.
func (c *Collector) YearAppended() {
	if c == nil {
		return
	}
	c.YearsAppended.Inc()
}

// AggregationRan records one summary aggregation.
func (c *Collector) AggregationRan() {
	if c == nil {
		return
	}
	c.AggregationRuns.Inc()
}
