package http

import (
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"gonum.org/v1/gonum/stat"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
)

// MetricsSummary condenses the request counters into dashboard numbers.
type MetricsSummary struct {
	TotalRequests     int64   `json:"total_requests"`
	ErrorRate         float64 `json:"error_rate"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	ActiveConnections int64   `json:"active_connections"`
	UptimeSeconds     float64 `json:"uptime_seconds"`
}

// HTTPMetrics reports latency percentiles over the recent request window.
type HTTPMetrics struct {
	SampleCount int     `json:"sample_count"`
	P50Ms       float64 `json:"p50_ms"`
	P90Ms       float64 `json:"p90_ms"`
	P99Ms       float64 `json:"p99_ms"`
}

// KernelMetrics reports live counts from the kernel managers.
type KernelMetrics struct {
	FS             vfs.Stats              `json:"fs"`
	Tasks          task.Stats             `json:"tasks"`
	WindowsOpen    int                    `json:"windows_open"`
	AppsRunning    int                    `json:"apps_running"`
	AppsRegistered int                    `json:"apps_registered"`
	Bus            events.Stats           `json:"bus"`
	Services       map[string]interface{} `json:"services"`
}

// MetricsSnapshot is the /metrics/json response body.
type MetricsSnapshot struct {
	Timestamp time.Time      `json:"timestamp"`
	Summary   MetricsSummary `json:"summary"`
	HTTP      HTTPMetrics    `json:"http"`
	Kernel    KernelMetrics  `json:"kernel"`
}

// MetricsJSON serves aggregated counters for shell dashboards that do
// not speak the Prometheus exposition format.
func (h *Handlers) MetricsJSON(c *gin.Context) {
	if h.metrics == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "metrics collection disabled"})
		return
	}

	snap := h.metrics.GetSnapshot()

	summary := MetricsSummary{
		TotalRequests:     snap.TotalRequests,
		ActiveConnections: snap.ActiveConnections,
		UptimeSeconds:     h.metrics.GetUptimeSeconds(),
	}
	if snap.TotalRequests > 0 {
		summary.ErrorRate = float64(snap.TotalErrors) / float64(snap.TotalRequests)
	}
	if snap.RequestCount > 0 {
		summary.AvgLatencyMs = snap.TotalDuration / float64(snap.RequestCount) * 1000
	}

	c.JSON(http.StatusOK, MetricsSnapshot{
		Timestamp: time.Now(),
		Summary:   summary,
		HTTP:      h.latencyPercentiles(),
		Kernel: KernelMetrics{
			FS:             h.fs.GetStats(),
			Tasks:          h.tasks.Stats(),
			WindowsOpen:    h.windows.Count(),
			AppsRunning:    h.runtime.Count(),
			AppsRegistered: h.registry.Count(),
			Bus:            h.bus.Stats(),
			Services:       h.services.Stats(),
		},
	})
}

// latencyPercentiles summarizes the recent latency ring. Quantile
// requires ascending input, so sort before asking.
func (h *Handlers) latencyPercentiles() HTTPMetrics {
	latencies := h.metrics.RecentLatencies()
	if len(latencies) == 0 {
		return HTTPMetrics{}
	}
	sort.Float64s(latencies)

	return HTTPMetrics{
		SampleCount: len(latencies),
		P50Ms:       stat.Quantile(0.50, stat.Empirical, latencies, nil) * 1000,
		P90Ms:       stat.Quantile(0.90, stat.Empirical, latencies, nil) * 1000,
		P99Ms:       stat.Quantile(0.99, stat.Empirical, latencies, nil) * 1000,
	}
}
