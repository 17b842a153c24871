package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
)

// ListWindows returns every open window, back to front.
func (h *Handlers) ListWindows(c *gin.Context) {
	wins := h.windows.List()
	c.JSON(http.StatusOK, gin.H{
		"windows": wins,
		"count":   len(wins),
	})
}

// GetWindow returns one window record.
func (h *Handlers) GetWindow(c *gin.Context) {
	id := c.Param("id")
	win, ok := h.windows.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found: " + id})
		return
	}
	c.JSON(http.StatusOK, win)
}

// FocusWindow raises a window and gives it focus.
func (h *Handlers) FocusWindow(c *gin.Context) {
	id := c.Param("id")
	if !h.windows.Focus(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found: " + id})
		return
	}
	win, _ := h.windows.Get(id)
	c.JSON(http.StatusOK, win)
}

// SetWindowBounds moves and/or resizes a window. Coordinates come in
// pairs; a lone x or width is a bad request. The response carries the
// applied bounds, which may differ from the request after minimum-size
// clamping.
func (h *Handlers) SetWindowBounds(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		X      *int `json:"x"`
		Y      *int `json:"y"`
		Width  *int `json:"width"`
		Height *int `json:"height"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	move := req.X != nil || req.Y != nil
	resize := req.Width != nil || req.Height != nil
	if move && (req.X == nil || req.Y == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "x and y must be set together"})
		return
	}
	if resize && (req.Width == nil || req.Height == nil) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height must be set together"})
		return
	}
	if !move && !resize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no bounds given"})
		return
	}

	if _, ok := h.windows.Get(id); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found: " + id})
		return
	}
	if move {
		h.windows.Move(id, *req.X, *req.Y)
	}
	if resize {
		h.windows.Resize(id, *req.Width, *req.Height)
	}

	win, _ := h.windows.Get(id)
	c.JSON(http.StatusOK, win)
}

// SetWindowState minimizes, maximizes, collapses, or restores a window.
func (h *Handlers) SetWindowState(c *gin.Context) {
	id := c.Param("id")

	var req struct {
		State string `json:"state" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ok bool
	switch window.State(req.State) {
	case window.StateNormal:
		ok = h.windows.Restore(id)
	case window.StateMinimized:
		ok = h.windows.Minimize(id)
	case window.StateMaximized:
		ok = h.windows.Maximize(id)
	case window.StateCollapsed:
		ok = h.windows.Collapse(id)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid state, must be normal, minimized, maximized, or collapsed",
		})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found: " + id})
		return
	}

	win, _ := h.windows.Get(id)
	c.JSON(http.StatusOK, win)
}

// CloseWindow removes a window record.
func (h *Handlers) CloseWindow(c *gin.Context) {
	id := c.Param("id")
	if !h.windows.Close(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "window not found: " + id})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "window_id": id})
}
