package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Filesystem metrics
	FSOps           *prometheus.CounterVec
	FSOpDuration    *prometheus.HistogramVec
	FSNodes         prometheus.Gauge
	FlushQueueDepth prometheus.Gauge
	FlushBatches    prometheus.Counter

	// Event bus metrics
	EventsPublished  prometheus.Counter
	BusSubscriptions prometheus.Gauge

	// Task metrics
	TasksActive  prometheus.Gauge
	TasksSpawned prometheus.Counter
	TasksKilled  prometheus.Counter

	// Application metrics
	AppsRunning    prometheus.Gauge
	AppsLaunched   prometheus.Counter
	AppsTerminated prometheus.Counter
	RegistryApps   prometheus.Gauge

	// Window metrics
	WindowsOpen prometheus.Gauge
	WindowOps   *prometheus.CounterVec

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot

	// Recent HTTP latencies for quantile estimation
	latencies *latencyRing

	mu sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	TotalRequests     int64
	TotalErrors       int64
	RunningApps       int64
	ActiveConnections int64
	TotalDuration     float64 // sum of all request durations
	RequestCount      int64   // count for averaging
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
		latencies: newLatencyRing(1024),

		// HTTP metrics
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000, 10000000},
			},
			[]string{"method", "path"},
		),

		// Filesystem metrics
		FSOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_fs_operations_total",
				Help: "Total number of filesystem operations",
			},
			[]string{"op", "status"},
		),
		FSOpDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_fs_operation_duration_seconds",
				Help:    "Filesystem operation duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
			},
			[]string{"op"},
		),
		FSNodes: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_fs_nodes",
				Help: "Number of nodes in the virtual filesystem",
			},
		),
		FlushQueueDepth: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_fs_flush_queue_depth",
				Help: "Pending mutations awaiting persistence",
			},
		),
		FlushBatches: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_fs_flush_batches_total",
				Help: "Total number of flush batches written to the store",
			},
		),

		// Event bus metrics
		EventsPublished: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_events_published_total",
				Help: "Total number of events published on the global bus",
			},
		),
		BusSubscriptions: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_bus_subscriptions",
				Help: "Number of live global bus subscriptions",
			},
		),

		// Task metrics
		TasksActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_tasks_active",
				Help: "Number of live tasks",
			},
		),
		TasksSpawned: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_tasks_spawned_total",
				Help: "Total number of tasks spawned",
			},
		),
		TasksKilled: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_tasks_killed_total",
				Help: "Total number of tasks killed",
			},
		),

		// Application metrics
		AppsRunning: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_apps_running",
				Help: "Number of running applications",
			},
		),
		AppsLaunched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_apps_launched_total",
				Help: "Total number of application launches",
			},
		),
		AppsTerminated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "kernel_apps_terminated_total",
				Help: "Total number of application terminations",
			},
		),
		RegistryApps: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_registry_apps",
				Help: "Number of registered applications",
			},
		),

		// Window metrics
		WindowsOpen: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_windows_open",
				Help: "Number of open windows",
			},
		),
		WindowOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_window_operations_total",
				Help: "Total number of window operations",
			},
			[]string{"op"},
		),

		// Service metrics
		ServiceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_service_calls_total",
				Help: "Total number of service calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kernel_service_duration_seconds",
				Help:    "Service call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service", "tool"},
		),
		ServiceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_service_errors_total",
				Help: "Total number of service errors",
			},
			[]string{"service", "tool", "error_type"},
		),

		// WebSocket metrics
		WSConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		// System metrics
		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "kernel_uptime_seconds",
				Help: "Kernel uptime in seconds",
			},
		),
	}

	// Start uptime updater
	go m.updateUptime()

	return m
}

// updateUptime continuously updates the uptime metric
func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))
	m.latencies.add(duration.Seconds())

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordFSOp records a filesystem operation
func (m *Metrics) RecordFSOp(op string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.FSOps.WithLabelValues(op, status).Inc()
	m.FSOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// SetFSNodes sets the filesystem node count
func (m *Metrics) SetFSNodes(count int) {
	m.FSNodes.Set(float64(count))
}

// SetFlushQueueDepth sets the pending persistence queue depth
func (m *Metrics) SetFlushQueueDepth(depth int) {
	m.FlushQueueDepth.Set(float64(depth))
}

// IncFlushBatches counts one flush batch
func (m *Metrics) IncFlushBatches() {
	m.FlushBatches.Inc()
}

// RecordEventPublished counts one bus publish
func (m *Metrics) RecordEventPublished() {
	m.EventsPublished.Inc()
}

// SetBusSubscriptions sets the live subscription count
func (m *Metrics) SetBusSubscriptions(count int) {
	m.BusSubscriptions.Set(float64(count))
}

// RecordTaskSpawn counts one task spawn
func (m *Metrics) RecordTaskSpawn() {
	m.TasksSpawned.Inc()
}

// RecordTaskKill counts one task kill
func (m *Metrics) RecordTaskKill() {
	m.TasksKilled.Inc()
}

// SetTasksActive sets the live task count
func (m *Metrics) SetTasksActive(count int) {
	m.TasksActive.Set(float64(count))
}

// RecordAppLaunch counts one successful launch
func (m *Metrics) RecordAppLaunch() {
	m.AppsLaunched.Inc()
}

// RecordAppTerminate counts one termination
func (m *Metrics) RecordAppTerminate() {
	m.AppsTerminated.Inc()
}

// SetAppsRunning sets the running application count
func (m *Metrics) SetAppsRunning(count int) {
	m.AppsRunning.Set(float64(count))
	m.mu.Lock()
	m.snapshot.RunningApps = int64(count)
	m.mu.Unlock()
}

// SetRegistryApps sets the registered application count
func (m *Metrics) SetRegistryApps(count int) {
	m.RegistryApps.Set(float64(count))
}

// RecordWindowOp counts one window operation
func (m *Metrics) RecordWindowOp(op string) {
	m.WindowOps.WithLabelValues(op).Inc()
}

// SetWindowsOpen sets the open window count
func (m *Metrics) SetWindowsOpen(count int) {
	m.WindowsOpen.Set(float64(count))
}

// RecordServiceCall records a service call
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
}

// RecordServiceError records a service error
func (m *Metrics) RecordServiceError(service, tool, errorType string) {
	m.ServiceErrors.WithLabelValues(service, tool, errorType).Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.ActiveConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.ActiveConnections--
	m.mu.Unlock()
}

// GetSnapshot returns current counters for the JSON API
func (m *Metrics) GetSnapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// GetUptimeSeconds returns seconds since the collector was created
func (m *Metrics) GetUptimeSeconds() float64 {
	return time.Since(m.startTime).Seconds()
}

// RecentLatencies returns up to the last 1024 HTTP latencies in seconds
func (m *Metrics) RecentLatencies() []float64 {
	return m.latencies.values()
}
