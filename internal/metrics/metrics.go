// Package metrics exposes Prometheus collectors for dashboard loads.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custos/internal/core"
)

// Drop reasons used as label values.
const (
	ReasonInvalidDate       = "invalid_date"
	ReasonMissingCostCenter = "missing_cost_center"
)

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry        *prometheus.Registry
	loads           *prometheus.CounterVec
	loadDuration    prometheus.Histogram
	rowsDropped     *prometheus.CounterVec
	valuesDefaulted prometheus.Counter
	cacheRequests   *prometheus.CounterVec
	lastRows        prometheus.Gauge
	httpRequests    *prometheus.CounterVec
	httpDuration    prometheus.Histogram
}

// New registers the custos collectors plus the Go and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_loads_total",
			Help: "Cost sheet loads by outcome.",
		}, []string{"outcome"}),
		loadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_load_duration_seconds",
			Help:    "Time to fetch and normalize the cost sheet.",
			Buckets: prometheus.DefBuckets,
		}),
		rowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_rows_dropped_total",
			Help: "Rows removed by the normalizer.",
		}, []string{"reason"}),
		valuesDefaulted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "custos_values_defaulted_total",
			Help: "Kept rows whose value could not be parsed and became 0.",
		}),
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_cache_requests_total",
			Help: "Raw table cache lookups by result.",
		}, []string{"result"}),
		lastRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "custos_last_load_records",
			Help: "Records produced by the most recent load.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "custos_http_requests_total",
			Help: "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		httpDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "custos_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.loads, m.loadDuration, m.rowsDropped, m.valuesDefaulted, m.cacheRequests, m.lastRows,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveLoad records one load attempt.
func (m *Metrics) ObserveLoad(outcome string, d time.Duration, stats core.NormalizeStats) {
	m.loads.WithLabelValues(outcome).Inc()
	m.loadDuration.Observe(d.Seconds())
	if stats.DroppedInvalidDate > 0 {
		m.rowsDropped.WithLabelValues(ReasonInvalidDate).Add(float64(stats.DroppedInvalidDate))
	}
	if stats.DroppedMissingCostCenter > 0 {
		m.rowsDropped.WithLabelValues(ReasonMissingCostCenter).Add(float64(stats.DroppedMissingCostCenter))
	}
	if stats.DefaultedValues > 0 {
		m.valuesDefaulted.Add(float64(stats.DefaultedValues))
	}
	m.lastRows.Set(float64(stats.OutputRows))
}

// ObserveCache counts one cache lookup. Its signature matches
// cache.TableCache.Observe.
func (m *Metrics) ObserveCache(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request. Its signature matches
// trace.ObserveFunc.
func (m *Metrics) ObserveHTTP(method string, statusCode int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.Observe(d.Seconds())
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
