// Package metrics records timed calls as Prometheus series. A run is a
// short-lived process, so series are written to a node-exporter textfile
// instead of being scraped.
package metrics

import (
	"context"

	eventbus "github.com/hanpama/fieldtimer/internal/eventbus"
	events "github.com/hanpama/fieldtimer/internal/events"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fieldtimer"

// Metrics holds the collectors for one process.
type Metrics struct {
	registry *prometheus.Registry

	CallDuration *prometheus.HistogramVec
	CallsTotal   *prometheus.CounterVec
	RunFields    prometheus.Gauge
	RunFailures  prometheus.Gauge
	RunDuration  prometheus.Gauge
}

// New creates collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "field_call_duration_seconds",
			Help:      "Latency of isolated top-level field calls.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation", "field", "outcome"}),

		CallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_calls_total",
			Help:      "Isolated field calls by outcome.",
		}, []string{"operation", "outcome"}),

		RunFields: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_fields",
			Help:      "Top-level fields in the last run.",
		}),

		RunFailures: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_failures",
			Help:      "Fields whose call failed in the last run.",
		}),

		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run.",
		}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Subscribe feeds the collectors from the event bus. Unmeasured calls are
// counted but not observed.
func (m *Metrics) Subscribe() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(_ context.Context, e events.FieldCallFinish) {
			m.CallsTotal.WithLabelValues(e.OperationName, e.Outcome).Inc()
			if e.Measured {
				m.CallDuration.WithLabelValues(e.OperationName, e.Field, e.Outcome).Observe(e.Duration.Seconds())
			}
		}),
		eventbus.Subscribe(func(_ context.Context, e events.RunStart) {
			m.RunFields.Set(float64(e.Fields))
		}),
		eventbus.Subscribe(func(_ context.Context, e events.RunFinish) {
			m.RunFailures.Set(float64(e.Failures))
			m.RunDuration.Set(e.Duration.Seconds())
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

// WriteTextfile writes every series to path in the text exposition format.
// The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
