package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/think/internal/ir"
)

// Metrics holds the Prometheus collectors a run updates. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	passes       prometheus.Counter
	applications *prometheus.CounterVec
	derived      *prometheus.CounterVec
	skolems      prometheus.Counter
	production   prometheus.Gauge
	passDuration prometheus.Histogram
}

// NewMetrics creates the engine collectors and registers them on reg.
// Registering twice on the same registry panics, as with promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		passes: f.NewCounter(prometheus.CounterOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "passes_total",
			Help:      "Total fixpoint passes over the rule set",
		}),
		// Labels: rule
		applications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "rule_applications_total",
			Help:      "Total rule applications",
		}, []string{"rule"}),
		// Labels: rule
		derived: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "derived_quads_total",
			Help:      "Total quads added to the production store",
		}, []string{"rule"}),
		skolems: f.NewCounter(prometheus.CounterOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "skolems_minted_total",
			Help:      "Total existential identifiers minted",
		}),
		production: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "production_quads",
			Help:      "Current size of the production store",
		}),
		passDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "think",
			Subsystem: "engine",
			Name:      "pass_duration_seconds",
			Help:      "Duration of one pass over the rule set",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
}

func (m *Metrics) observePass(seconds float64) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.passDuration.Observe(seconds)
}

func (m *Metrics) observeApplication(rule string, added int) {
	if m == nil {
		return
	}
	m.applications.WithLabelValues(rule).Inc()
	m.derived.WithLabelValues(rule).Add(float64(added))
}

func (m *Metrics) observeMint() {
	if m == nil {
		return
	}
	m.skolems.Inc()
}

func (m *Metrics) setProduction(size int) {
	if m == nil {
		return
	}
	m.production.Set(float64(size))
}

// countingGenerator reports every minted identifier to metrics.
type countingGenerator struct {
	next    SkolemGenerator
	metrics *Metrics
}

func (g countingGenerator) Next() ir.BlankNode {
	g.metrics.observeMint()
	return g.next.Next()
}
