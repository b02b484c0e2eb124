package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abramin/voyage/internal/project"
)

// Metrics holds the collectors exported on /metrics.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	expandDuration  prometheus.Histogram
	expandNodes     prometheus.Histogram
	rebuildsTotal   *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	graphNodes      *prometheus.GaugeVec
	graphEdges      *prometheus.GaugeVec
	graphDangling   prometheus.Gauge
}

// NewMetrics creates and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_http_requests_total",
				Help: "Number of API requests by route and status code.",
			},
			[]string{"route", "code"},
		),
		expandDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voyage_expand_duration_seconds",
				Help:    "Time taken to expand a node into a dependency diagram.",
				Buckets: prometheus.DefBuckets,
			},
		),
		expandNodes: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voyage_expand_nodes",
				Help:    "Number of nodes emitted by an expansion.",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		rebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "voyage_graph_rebuilds_total",
				Help: "Number of graph rebuilds by project.",
			},
			[]string{"project"},
		),
		rebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "voyage_graph_rebuild_duration_seconds",
				Help:    "Time taken to rebuild the dependency graph.",
				Buckets: prometheus.DefBuckets,
			},
		),
		graphNodes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "voyage_graph_nodes",
				Help: "Number of nodes in the current graph by kind.",
			},
			[]string{"kind"},
		),
		graphEdges: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "voyage_graph_edges",
				Help: "Number of edges in the current graph by relation.",
			},
			[]string{"relation"},
		),
		graphDangling: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "voyage_graph_dangling_references",
				Help: "Number of addresses that did not resolve in the last rebuild.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestsTotal,
		m.expandDuration,
		m.expandNodes,
		m.rebuildsTotal,
		m.rebuildDuration,
		m.graphNodes,
		m.graphEdges,
		m.graphDangling,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRebuild records a graph rebuild. It is registered as a project hook.
func (m *Metrics) ObserveRebuild(ev project.RebuildEvent) {
	m.rebuildsTotal.WithLabelValues(ev.ProjectID).Inc()
	m.rebuildDuration.Observe(ev.Duration.Seconds())

	m.graphNodes.Reset()
	for kind, n := range ev.Stats.ByKind {
		m.graphNodes.WithLabelValues(string(kind)).Set(float64(n))
	}
	m.graphEdges.Reset()
	for rel, n := range ev.Stats.ByRelation {
		m.graphEdges.WithLabelValues(string(rel)).Set(float64(n))
	}
	m.graphDangling.Set(float64(ev.Stats.Dangling))
}

func (m *Metrics) observeExpand(start time.Time, nodes int) {
	m.expandDuration.Observe(time.Since(start).Seconds())
	m.expandNodes.Observe(float64(nodes))
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument counts requests to route.
func (m *Metrics) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}
