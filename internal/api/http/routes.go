package http

import (
	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/api/middleware"
)

// Installs pull manifests and bundles from remote origins, so they get
// one shared budget across all callers rather than a per-IP one.
const (
	installRPS   = 5
	installBurst = 10
)

// Register mounts the REST surface on a router. Middleware, the event
// stream, and the Prometheus endpoint are wired by the server.
func Register(r gin.IRouter, h *Handlers) {
	installThrottle := middleware.Throttle(installRPS, installBurst)

	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	fs := r.Group("/fs")
	{
		fs.GET("/stat/*path", h.StatNode)
		fs.GET("/ls/*path", h.ListDir)
		fs.GET("/read/*path", h.ReadFile)
		fs.PUT("/write/*path", h.WriteFile)
		fs.POST("/mkdir/*path", h.Mkdir)
		fs.DELETE("/rmdir/*path", h.Rmdir)
		fs.DELETE("/rm/*path", h.DeleteFile)
		fs.POST("/mv", h.Rename)
		fs.POST("/cp", h.Copy)
		fs.GET("/glob", h.Glob)
	}

	apps := r.Group("/apps")
	{
		apps.GET("", h.ListApps)
		apps.GET("/:id", h.GetApp)
		apps.DELETE("/:id", h.UninstallApp)
		apps.POST("/:id/launch", h.LaunchApp)
		apps.POST("/open", h.OpenPath)
		apps.POST("/install", installThrottle, h.InstallApp)
		apps.POST("/install/url", installThrottle, h.InstallFromURL)
	}

	tasks := r.Group("/tasks")
	{
		tasks.GET("", h.ListTasks)
		tasks.GET("/:id", h.GetTask)
		tasks.DELETE("/:id", h.KillTask)
		tasks.POST("/:id/activate", h.ActivateTask)
		tasks.POST("/:id/menu", h.MenuAction)
	}

	windows := r.Group("/windows")
	{
		windows.GET("", h.ListWindows)
		windows.GET("/:id", h.GetWindow)
		windows.DELETE("/:id", h.CloseWindow)
		windows.POST("/:id/focus", h.FocusWindow)
		windows.POST("/:id/bounds", h.SetWindowBounds)
		windows.POST("/:id/state", h.SetWindowState)
	}

	r.GET("/services", h.ListServices)
	r.POST("/services/execute", h.ExecuteService)

	r.GET("/logs", h.GetLogs)
	r.POST("/logs", h.IngestLogs)
}
