// Package metrics exposes Prometheus instrumentation for the processing
// pipeline on a service-owned registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's instrument set.
type Metrics struct {
	registry *prometheus.Registry

	jobsStarted   prometheus.Counter
	jobsFinished  *prometheus.CounterVec
	jobsInFlight  prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	documents     *prometheus.CounterVec
	providerCalls *prometheus.CounterVec
	uploadBytes   prometheus.Counter
}

// New creates a Metrics set registered on a fresh registry alongside the
// standard Go and process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		jobsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_started_total",
			Help:      "Processing jobs accepted for execution.",
		}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Processing jobs by terminal status.",
		}, []string{"status"}),
		jobsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_in_flight",
			Help:      "Processing jobs currently executing.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		}, []string{"stage"}),
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_generated_total",
			Help:      "Generated documents by format.",
		}, []string{"format"}),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "External provider calls by provider and outcome.",
		}, []string{"provider", "outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes accepted through chunked upload.",
		}),
	}

	registry.MustRegister(
		m.jobsStarted,
		m.jobsFinished,
		m.jobsInFlight,
		m.stageDuration,
		m.documents,
		m.providerCalls,
		m.uploadBytes,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) JobStarted() {
	m.jobsStarted.Inc()
	m.jobsInFlight.Inc()
}

func (m *Metrics) JobFinished(status string) {
	m.jobsFinished.WithLabelValues(status).Inc()
	m.jobsInFlight.Dec()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) DocumentGenerated(format string) {
	m.documents.WithLabelValues(format).Inc()
}

func (m *Metrics) ProviderCall(provider string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.providerCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) UploadBytes(n int64) {
	if n > 0 {
		m.uploadBytes.Add(float64(n))
	}
}
