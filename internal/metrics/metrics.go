// Package metrics exposes Prometheus instrumentation for query compilation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Compilation outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeInvalid       = "invalid"
	OutcomeDateParse     = "date_parse"
	OutcomeConfiguration = "configuration"
	OutcomeInternal      = "internal"
)

// Metrics provides observability for the compile service.
type Metrics struct {
	registry *prometheus.Registry

	// Compilations by source ("api", "mcp", "cli", "inbox") and outcome
	Compilations *prometheus.CounterVec

	// Criteria received per compilation, by category
	Criteria *prometheus.CounterVec

	CompileLatency prometheus.Histogram

	// Date expressions resolved through the resolve operation
	Resolutions *prometheus.CounterVec
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Compilations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ansuz_compilations_total",
			Help: "Total criteria compilations by source and outcome",
		}, []string{"source", "outcome"}),

		Criteria: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ansuz_criteria_total",
			Help: "Total criteria received by category",
		}, []string{"category"}),

		CompileLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ansuz_compile_duration_seconds",
			Help:    "Duration of criteria validation and compilation",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.1},
		}),

		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ansuz_date_resolutions_total",
			Help: "Total date expression resolutions by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementCompilation records a compilation outcome.
func (m *Metrics) IncrementCompilation(source, outcome string) {
	if m != nil {
		m.Compilations.WithLabelValues(source, outcome).Inc()
	}
}

// AddCriteria records one criterion of the given category.
func (m *Metrics) AddCriteria(category string) {
	if m != nil {
		m.Criteria.WithLabelValues(category).Inc()
	}
}

// ObserveCompileLatency records the duration of one compilation.
func (m *Metrics) ObserveCompileLatency(d time.Duration) {
	if m != nil {
		m.CompileLatency.Observe(d.Seconds())
	}
}

// IncrementResolution records a resolve outcome.
func (m *Metrics) IncrementResolution(outcome string) {
	if m != nil {
		m.Resolutions.WithLabelValues(outcome).Inc()
	}
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
