// Package monitoring provides Prometheus metrics collection for the kernel.
//
// Features:
//   - HTTP request metrics (counts, durations, sizes) via Gin middleware
//   - Filesystem operation and flush-queue metrics
//   - Task, application, window, and event bus gauges
//   - Service call timing with the Timer helper
//   - Recent-latency ring for percentile reporting on the stats endpoint
//
// Example Usage:
//
//	metrics := monitoring.NewMetrics()
//	router.Use(monitoring.Middleware(metrics))
//
//	timer := monitoring.NewTimer(metrics, "storage", "get")
//	defer timer.Stop("success")
//
// Metrics are exposed at /metrics in Prometheus format. NewMetrics
// registers collectors with the default registry and must be called
// at most once per process.
package monitoring
