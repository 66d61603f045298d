// Package metrics holds the Prometheus collectors of the housing service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "housing_http_in_flight_requests",
		Help: "In-flight HTTP requests",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housing_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "housing_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housing_operations_total",
		Help: "Core operations by name and result code",
	}, []string{"operation", "result"})

	auditFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "housing_audit_failures_total",
		Help: "Audit records that could not be written or published",
	}, []string{"sink"})

	bedsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "housing_beds_total",
		Help: "Beds in residential rooms at the last dashboard read",
	})

	bedsUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "housing_beds_used",
		Help: "Occupied beds at the last dashboard read",
	})
)

// ResultOK labels successful operations.
const ResultOK = "OK"

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HTTPStarted marks a request in flight and returns a func recording its outcome.
func HTTPStarted() func(method, path, status string) {
	httpInFlight.Inc()
	start := time.Now()
	return func(method, path, status string) {
		httpInFlight.Dec()
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path, status).Observe(time.Since(start).Seconds())
	}
}

// ObserveOperation counts a core operation with its result code.
func ObserveOperation(operation, result string) {
	if result == "" {
		result = ResultOK
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
}

// AuditFailure counts a failed audit write or publish.
func AuditFailure(sink string) {
	auditFailures.WithLabelValues(sink).Inc()
}

// AuditFailures returns the collector, mainly for tests.
func AuditFailures() *prometheus.CounterVec {
	return auditFailures
}

// SetBeds records the bed totals.
func SetBeds(total, used int) {
	bedsTotal.Set(float64(total))
	bedsUsed.Set(float64(used))
}
