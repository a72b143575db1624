// Package metrics defines Prometheus metrics for relgraph.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relgraph_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relgraph_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relgraph_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	QueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relgraph_queries_total",
			Help: "Relational queries issued by the engines",
		},
		[]string{"op", "table"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relgraph_query_duration_seconds",
			Help:    "Relational query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relgraph_operation_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	GuardDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relgraph_guard_decisions_total",
			Help: "Pre-flight guard decisions by recommendation",
		},
		[]string{"recommendation"},
	)

	CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relgraph_circuit_breaker_trips_total",
			Help: "Mid-execution safety ceiling trips by limit",
		},
		[]string{"limit"},
	)

	InFlightOperations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "relgraph_inflight_operations",
			Help: "Graph operations currently admitted",
		},
	)

	AdmissionRejected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relgraph_admission_rejected_total",
			Help: "Graph operations turned away because every slot was busy",
		},
	)

	NodesVisited = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relgraph_nodes_visited",
			Help:    "Nodes visited or materialized per operation",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		QueriesTotal, QueryDuration, OperationDuration,
		GuardDecisions, CircuitBreakerTrips, NodesVisited,
		InFlightOperations, AdmissionRejected,
	)
}
