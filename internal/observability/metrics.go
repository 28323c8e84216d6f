// Package observability provides Prometheus metrics for buildboard.
//
// Metrics cover ingestion outcomes, facet rebuilds and HTTP requests.
// A nil *Metrics is valid and records nothing, so callers never need to
// check whether instrumentation is configured.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/custodia-labs/buildboard/internal/core/domain"
	"github.com/custodia-labs/buildboard/internal/core/services"
)

// Ensure Metrics implements the ingest metrics sink.
var _ services.IngestMetrics = (*Metrics)(nil)

const namespace = "buildboard"

// Metrics holds the Prometheus collectors of one process.
type Metrics struct {
	registry *prometheus.Registry

	// IngestTotal counts processed records.
	// Labels: outcome (ingested, rejected, failed)
	IngestTotal *prometheus.CounterVec

	// RebuildDuration observes full facet rebuilds.
	RebuildDuration prometheus.Histogram

	// RebuildPartitions counts partitions per rebuild.
	// Labels: state (computed, reused)
	RebuildPartitions *prometheus.CounterVec

	// FacetValues is the number of distinct values per category.
	// Labels: category
	FacetValues *prometheus.GaugeVec

	// RequestsTotal counts HTTP requests.
	// Labels: route, status
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes HTTP request latency.
	// Labels: route
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a registry with the buildboard collectors plus the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		IngestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "records_total",
			Help:      "Records processed by ingestion, by outcome",
		}, []string{"outcome"}),
		RebuildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "facets",
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of full facet rebuilds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		RebuildPartitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "facets",
			Name:      "rebuild_partitions_total",
			Help:      "Partitions visited by facet rebuilds, by cache state",
		}, []string{"state"}),
		FacetValues: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "facets",
			Name:      "values",
			Help:      "Distinct facet values per category",
		}, []string{"category"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status",
		}, []string{"route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordIngest counts one processed record.
func (m *Metrics) RecordIngest(outcome string) {
	if m == nil {
		return
	}
	m.IngestTotal.WithLabelValues(outcome).Inc()
}

// RecordRebuild observes one full facet rebuild.
func (m *Metrics) RecordRebuild(partitions, reused int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RebuildDuration.Observe(duration.Seconds())
	m.RebuildPartitions.WithLabelValues("computed").Add(float64(partitions - reused))
	m.RebuildPartitions.WithLabelValues("reused").Add(float64(reused))
}

// RecordFacets sets the per-category value gauges from a catalog.
func (m *Metrics) RecordFacets(catalog *domain.FacetCatalog) {
	if m == nil || catalog == nil {
		return
	}
	for _, c := range domain.Categories() {
		m.FacetValues.WithLabelValues(string(c)).Set(float64(len(catalog.Facets[c])))
	}
}

// RecordRequest counts one HTTP request.
// route is the matched route pattern, never the raw path.
func (m *Metrics) RecordRequest(route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
