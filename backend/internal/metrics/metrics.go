// Package metrics holds the Prometheus metrics of the engine, its store and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name
const Namespace = "kaybee"

// Collector holds all Prometheus metrics for the application.
// Each collector owns its registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Engine metrics
	NeighborhoodRequests *prometheus.CounterVec
	NeighborhoodEntities prometheus.Histogram
	Merges               *prometheus.CounterVec
	EntitiesAllocated    prometheus.Counter

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		NeighborhoodRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "neighborhood_requests_total",
				Help:      "Neighborhood lookups by outcome (found, empty, error)",
			},
			[]string{"status"},
		),
		NeighborhoodEntities: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "neighborhood_entities",
				Help:      "Number of entities in returned neighborhoods",
				Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 250},
			},
		),
		Merges: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "merges_total",
				Help:      "Replacement merges by outcome (ok, invalid, conflict, error)",
			},
			[]string{"status"},
		),
		EntitiesAllocated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "entities_allocated_total",
				Help:      "Total number of fresh entity ids handed out by merges",
			},
		),
		StoreOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "store_operations_total",
				Help:      "Total number of graph store operations",
			},
			[]string{"op", "status"},
		),
		StoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Graph store operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.NeighborhoodRequests,
		c.NeighborhoodEntities,
		c.Merges,
		c.EntitiesAllocated,
		c.StoreOperations,
		c.StoreDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the registry the metrics are registered with
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveStoreOperation records one store call
func (c *Collector) ObserveStoreOperation(op, status string, elapsed time.Duration) {
	c.StoreOperations.WithLabelValues(op, status).Inc()
	c.StoreDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// ObserveNeighborhood records one neighborhood lookup
func (c *Collector) ObserveNeighborhood(status string, entities int) {
	c.NeighborhoodRequests.WithLabelValues(status).Inc()
	if status != "error" {
		c.NeighborhoodEntities.Observe(float64(entities))
	}
}

// ObserveMerge records one merge and the number of ids it allocated
func (c *Collector) ObserveMerge(status string, allocated int) {
	c.Merges.WithLabelValues(status).Inc()
	if allocated > 0 {
		c.EntitiesAllocated.Add(float64(allocated))
	}
}

// ObserveHTTP records one HTTP request
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
