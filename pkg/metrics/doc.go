/*
Package metrics provides Prometheus metrics collection and exposition for the
worker runtime.

Metrics are registered at package init via prometheus.MustRegister and cover
work item dispatch, orchestration turns, activity execution, entity batches,
the scheduler channel's connection state and reconnect count, token cache
refreshes, and payload store operations. Handler returns the standard
promhttp handler for mounting under pkg/diag's HTTP server.

# Usage

	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	// ... do work ...
	timer.ObserveDuration(metrics.ActivityExecutionDuration)

Health and readiness tracking lives alongside the metrics in health.go:
components register themselves with RegisterComponent, and GetHealth/
GetReadiness aggregate that state for the /health and /ready endpoints.
*/
package metrics
