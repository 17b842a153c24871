package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/app"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/resilience"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// ListApps returns the application catalog.
func (h *Handlers) ListApps(c *gin.Context) {
	manifests := h.registry.Manifests()
	summaries := make([]types.ManifestSummary, 0, len(manifests))
	for _, m := range manifests {
		summaries = append(summaries, m.Summary())
	}

	c.JSON(http.StatusOK, gin.H{
		"apps":  summaries,
		"count": len(summaries),
	})
}

// GetApp returns one catalog entry's full manifest.
func (h *Handlers) GetApp(c *gin.Context) {
	appID := c.Param("id")
	entry, ok := h.registry.Get(appID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not registered: " + appID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"manifest":      entry.Manifest,
		"registered_at": entry.RegisteredAt,
		"running":       len(h.runtime.ForApp(appID)),
	})
}

// LaunchApp starts a new instance of a registered app. The optional
// body may name a file for the instance to open after launch.
func (h *Handlers) LaunchApp(c *gin.Context) {
	appID := c.Param("id")

	var req struct {
		OpenPath string `json:"open_path"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	running, err := h.runtime.Launch(c.Request.Context(), appID, app.LaunchOptions{OpenPath: req.OpenPath})
	if err != nil {
		if errors.Is(err, registry.ErrNotRegistered) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, running)
}

// OpenPath opens a file with whatever app claims its type.
func (h *Handlers) OpenPath(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	running, err := h.runtime.OpenPath(c.Request.Context(), req.Path)
	if err != nil {
		if errors.Is(err, app.ErrNoAssociation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, running)
}

// InstallApp installs an inline bundle: a manifest plus the entry
// script source when the manifest declares one.
func (h *Handlers) InstallApp(c *gin.Context) {
	var req struct {
		Manifest types.Manifest `json:"manifest"`
		Entry    string         `json:"entry"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.installer.Install(c.Request.Context(), registry.Bundle{
		Manifest: req.Manifest,
		Entry:    []byte(req.Entry),
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"app_id":   m.ID,
		"manifest": m,
	})
}

// InstallFromURL fetches a bundle from a remote origin and installs
// it. Fetch failures surface as gateway errors; a tripped install
// circuit answers 503 until the origin recovers.
func (h *Handlers) InstallFromURL(c *gin.Context) {
	var req struct {
		URL string `json:"url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.installer.InstallFromURL(c.Request.Context(), req.URL)
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "install origin unavailable: " + err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"app_id":   m.ID,
		"manifest": m,
	})
}

// UninstallApp terminates every running instance of an app and drops
// it from the catalog. Bundle files stay in the file system.
func (h *Handlers) UninstallApp(c *gin.Context) {
	appID := c.Param("id")

	terminated := h.runtime.TerminateApp(appID)
	if !h.registry.Unregister(appID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "app not registered: " + appID})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"app_id":     appID,
		"terminated": terminated,
	})
}
