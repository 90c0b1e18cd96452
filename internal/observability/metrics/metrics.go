// Package metrics provides Prometheus instrumentation for blockscout-verify.
//
// The tool is a one-shot process, so metrics are collected into a private
// registry and pushed to a Pushgateway at exit instead of being scraped.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	enabled     bool
	serviceName string
	registry    *prometheus.Registry

	// Outbound HTTP metrics
	httpClientRequestsTotal *prometheus.CounterVec
	httpClientDuration      *prometheus.HistogramVec

	// Verification domain metrics
	verificationTotal      *prometheus.CounterVec
	verificationDuration   *prometheus.HistogramVec
	verificationLastResult *prometheus.GaugeVec
)

// Init initializes the metrics system. Calling it again replaces the registry.
func Init(enabledFlag bool, svcName string) {
	enabled = enabledFlag
	serviceName = svcName

	if !enabled {
		registry = nil
		return
	}

	registry = prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	// Outbound request counter
	httpClientRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_client_requests_total",
			Help: "Total number of outbound HTTP requests",
		},
		[]string{"code", "method"},
	)

	// Outbound request duration histogram
	httpClientDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_client_request_duration_seconds",
			Help:    "Outbound HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Verification submission counter
	verificationTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_submit_total",
			Help: "Total number of verification submissions",
		},
		[]string{"network", "outcome"},
	)

	// Verification submission duration histogram
	verificationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verification_submit_duration_seconds",
			Help:    "Verification submission latency in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"network"},
	)

	// Unix time of the last submission per outcome
	verificationLastResult = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "verification_last_submit_timestamp_seconds",
			Help: "Unix time of the last verification submission",
		},
		[]string{"network", "outcome"},
	)
}

// Registry returns the registry metrics are collected into, or nil when disabled.
func Registry() *prometheus.Registry {
	return registry
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// ServiceName returns the configured service name for metric labels.
func ServiceName() string {
	return serviceName
}
