package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/app"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
)

// taskView joins a running instance with its task state.
type taskView struct {
	app.Running
	State task.State `json:"state"`
}

func (h *Handlers) taskView(r app.Running) taskView {
	view := taskView{Running: r}
	if t, ok := h.tasks.Get(r.TaskID); ok {
		view.State = t.State
	}
	return view
}

// ListTasks returns every running application instance in launch order.
func (h *Handlers) ListTasks(c *gin.Context) {
	running := h.runtime.List()
	views := make([]taskView, 0, len(running))
	for _, r := range running {
		views = append(views, h.taskView(r))
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": views,
		"stats": h.tasks.Stats(),
	})
}

// GetTask returns one running instance.
func (h *Handlers) GetTask(c *gin.Context) {
	taskID := c.Param("id")
	running, ok := h.runtime.Get(taskID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not running: " + taskID})
		return
	}
	c.JSON(http.StatusOK, h.taskView(running))
}

// KillTask terminates one running instance: lifecycle hook, sandbox
// teardown, windows, task record, the lot.
func (h *Handlers) KillTask(c *gin.Context) {
	taskID := c.Param("id")
	if err := h.runtime.Terminate(taskID); err != nil {
		if errors.Is(err, app.ErrNotRunning) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task_id": taskID})
}

// ActivateTask brings a running instance to the foreground.
func (h *Handlers) ActivateTask(c *gin.Context) {
	taskID := c.Param("id")
	if err := h.runtime.Activate(taskID); err != nil {
		if errors.Is(err, app.ErrNotRunning) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task_id": taskID})
}

// MenuAction delivers a menu selection to a running instance.
func (h *Handlers) MenuAction(c *gin.Context) {
	taskID := c.Param("id")

	var req struct {
		Action string `json:"action" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.runtime.MenuAction(taskID, req.Action); err != nil {
		if errors.Is(err, app.ErrNotRunning) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "task_id": taskID, "action": req.Action})
}
