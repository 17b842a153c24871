package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/app"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/service"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
)

// Config carries the kernel collaborators the handler set exposes.
type Config struct {
	FS        *vfs.VFS
	Bus       *events.Bus
	Tasks     *task.Manager
	Windows   *window.Manager
	Registry  *registry.Registry
	Installer *registry.Installer
	Runtime   *app.Runtime
	Services  *service.Registry
	Metrics   *monitoring.Metrics
	Logger    *logging.Logger
	Version   string
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	fs        *vfs.VFS
	bus       *events.Bus
	tasks     *task.Manager
	windows   *window.Manager
	registry  *registry.Registry
	installer *registry.Installer
	runtime   *app.Runtime
	services  *service.Registry
	metrics   *monitoring.Metrics
	logger    *logging.Logger
	version   string
}

// NewHandlers creates the handler set.
func NewHandlers(cfg Config) *Handlers {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	version := cfg.Version
	if version == "" {
		version = "0.0.0-dev"
	}
	return &Handlers{
		fs:        cfg.FS,
		bus:       cfg.Bus,
		tasks:     cfg.Tasks,
		windows:   cfg.Windows,
		registry:  cfg.Registry,
		installer: cfg.Installer,
		runtime:   cfg.Runtime,
		services:  cfg.Services,
		metrics:   cfg.Metrics,
		logger:    log.Named("api"),
		version:   version,
	}
}

// Root handles liveness probes.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "macos98 kernel",
		"version": h.version,
	})
}

// Health reports per-subsystem counters.
func (h *Handlers) Health(c *gin.Context) {
	var uptime float64
	if h.metrics != nil {
		uptime = h.metrics.GetUptimeSeconds()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"version":        h.version,
		"uptime_seconds": uptime,
		"fs":             h.fs.GetStats(),
		"tasks":          h.tasks.Stats(),
		"windows":        gin.H{"open": h.windows.Count()},
		"apps":           gin.H{"registered": h.registry.Count(), "running": h.runtime.Count()},
		"services":       h.services.Stats(),
		"bus":            h.bus.Stats(),
	})
}
