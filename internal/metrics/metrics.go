// Package metrics registers the Prometheus metrics used by the relay.
// All collectors are registered with the default registry on import; the
// server mounts promhttp.Handler at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay-level counters and histograms.
var (
	// RelayRequestsTotal counts /api/ai requests that reached the router,
	// labelled by provider and outcome ("success", "degraded", "rejected",
	// "error"). Unregistered provider names are reported as "unknown".
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_requests_total",
			Help: "Total number of relay requests by provider and outcome.",
		},
		[]string{"provider", "status"},
	)

	// UpstreamDuration observes the time spent on the outbound provider call.
	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_upstream_duration_seconds",
			Help:    "Upstream provider call duration in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider"},
	)

	// UpstreamErrors counts failed upstream calls by provider and error type
	// ("network", "status", "malformed").
	UpstreamErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_upstream_errors_total",
			Help: "Total upstream provider errors by type.",
		},
		[]string{"provider", "error_type"},
	)

	// BodyRejections counts /api/ai bodies rejected before routing, labelled
	// by reason ("too_large", "invalid").
	BodyRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_body_rejections_total",
			Help: "Total request bodies rejected before reaching the router.",
		},
		[]string{"reason"},
	)
)

// Page-serving counters.
var (
	// PageRenders counts HTML documents rendered with a CSP nonce, labelled
	// by outcome ("ok", "load_error").
	PageRenders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_page_renders_total",
			Help: "Total HTML documents rendered with a per-response nonce.",
		},
		[]string{"status"},
	)
)
