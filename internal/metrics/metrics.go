// Package metrics exposes cycle counters to Prometheus and a small status API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/usher2/u2dumpsync/internal/dumpsync"
)

const resultError = "Error"

// Metrics - cycle collectors on their own registry.
type Metrics struct {
	registry *prometheus.Registry

	cycles        *prometheus.CounterVec
	records       *prometheus.CounterVec
	lastDump      prometheus.Gauge
	cycleDuration prometheus.Histogram
}

var _ dumpsync.Observer = (*Metrics)(nil)

// New - collectors registered on a fresh registry with the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "u2dumpsync_cycles_total",
				Help: "Sync cycles by final state",
			},
			[]string{"result"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "u2dumpsync_records_total",
				Help: "Reconciled registry records by operation",
			},
			[]string{"op"},
		),
		lastDump: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "u2dumpsync_last_dump_timestamp_seconds",
				Help: "Registry time of the last committed dump",
			},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "u2dumpsync_cycle_duration_seconds",
				Help:    "Sync cycle duration in seconds",
				Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
			},
		),
	}

	m.registry.MustRegister(
		m.cycles, m.records, m.lastDump, m.cycleDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry - where the collectors live.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveCycle - count a finished cycle.
func (m *Metrics) ObserveCycle(res dumpsync.Result, err error, elapsed time.Duration) {
	m.cycleDuration.Observe(elapsed.Seconds())

	if err != nil {
		m.cycles.WithLabelValues(resultError).Inc()

		return
	}

	m.cycles.WithLabelValues(res.State.String()).Inc()

	if res.State != dumpsync.StateCommitted {
		return
	}

	m.records.WithLabelValues("add").Add(float64(res.Stats.AddCount))
	m.records.WithLabelValues("update").Add(float64(res.Stats.UpdateCount))
	m.records.WithLabelValues("remove").Add(float64(res.Stats.RemoveCount))

	if res.Epoch > 0 {
		m.lastDump.Set(float64(res.Epoch))
	}
}
