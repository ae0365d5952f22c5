// Package metrics exposes triage counters on a private Prometheus registry.
// All methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "healthguard"

// Metrics holds the triage collectors.
type Metrics struct {
	registry *prometheus.Registry

	incidentsIngested prometheus.Counter
	analyses          *prometheus.CounterVec
	fallbacks         *prometheus.CounterVec
	auditFailures     prometheus.Counter
	indexDocuments    prometheus.Gauge
	similarityQuery   prometheus.Histogram
	escalations       *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		incidentsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_ingested_total",
			Help:      "Raw events normalized and stored as incidents.",
		}),
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Completed analyses by decision.",
		}, []string{"decision"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallbacks_total",
			Help:      "Stages served by the deterministic fallback.",
		}, []string{"stage"}),
		auditFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_failures_total",
			Help:      "Audit records the sink failed to persist.",
		}),
		indexDocuments: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_documents",
			Help:      "Documents in the similarity index.",
		}),
		similarityQuery: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "similarity_query_seconds",
			Help:      "Similarity index query latency.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		escalations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation records created by source.",
		}, []string{"source"}),
	}
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncidentIngested() {
	if m == nil {
		return
	}
	m.incidentsIngested.Inc()
}

func (m *Metrics) AnalysisCompleted(decision string) {
	if m == nil {
		return
	}
	m.analyses.WithLabelValues(decision).Inc()
}

func (m *Metrics) Fallback(stage string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(stage).Inc()
}

func (m *Metrics) AuditFailure() {
	if m == nil {
		return
	}
	m.auditFailures.Inc()
}

func (m *Metrics) IndexSize(n int) {
	if m == nil {
		return
	}
	m.indexDocuments.Set(float64(n))
}

func (m *Metrics) ObserveSimilarityQuery(d time.Duration) {
	if m == nil {
		return
	}
	m.similarityQuery.Observe(d.Seconds())
}

// EscalationCreated counts an escalation; source is "agent" or "api".
func (m *Metrics) EscalationCreated(source string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(source).Inc()
}
