// Package metrics exposes Prometheus instrumentation for the gallery service.
// All methods are safe on a nil *Metrics so components can run uninstrumented.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chartgallery"

// Metrics holds the service collectors registered against one registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec

	fetchTotal *prometheus.CounterVec

	artifacts prometheus.Gauge
}

// New creates a Metrics instance backed by a fresh registry that also carries
// the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		runsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Forecast pipeline runs by outcome and failing stage",
		}, []string{"status", "stage"}),
		runDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_seconds",
			Help:      "Forecast pipeline run duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"status"}),
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_fetch_total",
			Help:      "Price history fetches by provider and result",
		}, []string{"provider", "result"}),
		artifacts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "gallery_artifacts",
			Help:      "Number of chart artifacts listed in the last index rebuild",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// ObserveRun records one pipeline run. stage is empty on success.
func (m *Metrics) ObserveRun(status, stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status, stage).Inc()
	m.runDuration.WithLabelValues(status).Observe(d.Seconds())
}

// ObserveFetch records a provider fetch. result is one of "ok", "no_data",
// "error" or "cache".
func (m *Metrics) ObserveFetch(provider, result string) {
	if m == nil {
		return
	}
	m.fetchTotal.WithLabelValues(provider, result).Inc()
}

// SetArtifacts records the artifact count from the latest index rebuild.
func (m *Metrics) SetArtifacts(n int) {
	if m == nil {
		return
	}
	m.artifacts.Set(float64(n))
}
