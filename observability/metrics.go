// Package observability exposes Prometheus metrics for the generation
// pipeline and the HTTP surface.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GeneratorInvocations counts generator calls by domain and outcome.
	GeneratorInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitagent",
		Subsystem: "agent",
		Name:      "generator_invocations_total",
		Help:      "Domain generator invocations by generator and outcome.",
	}, []string{"generator", "outcome"})

	// TasksGenerated counts merged tasks returned per goal type.
	TasksGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitagent",
		Subsystem: "agent",
		Name:      "tasks_generated_total",
		Help:      "Tasks produced by the generation pipeline, after merge.",
	}, []string{"goal_type"})

	// GenerationDuration observes end-to-end pipeline latency per goal type.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitagent",
		Subsystem: "agent",
		Name:      "generation_duration_seconds",
		Help:      "End-to-end generation pipeline duration.",
		Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"goal_type"})

	// ParseFailures counts generator outputs that yielded no usable items.
	ParseFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitagent",
		Subsystem: "agent",
		Name:      "parse_failures_total",
		Help:      "Generator outputs normalized to an empty item list.",
	}, []string{"generator"})

	// HTTPRequests counts API requests by route, method and status class.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitagent",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by route pattern, method, and status.",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fitagent",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration by route pattern.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})
)

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
