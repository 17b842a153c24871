package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// ListServices lists registered services, optionally by category.
func (h *Handlers) ListServices(c *gin.Context) {
	var category *types.Category
	if s := c.Query("category"); s != "" {
		cat := types.Category(s)
		category = &cat
	}

	c.JSON(http.StatusOK, gin.H{
		"services": h.services.List(category),
		"stats":    h.services.Stats(),
	})
}

// ExecuteService runs a service tool on behalf of the shell or an app.
func (h *Handlers) ExecuteService(c *gin.Context) {
	var req struct {
		ToolID string                 `json:"tool_id" binding:"required"`
		Params map[string]interface{} `json:"params"`
		AppID  *string                `json:"app_id"`
		TaskID *string                `json:"task_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	serviceID, tool, ok := strings.Cut(req.ToolID, ".")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tool_id must be service.tool"})
		return
	}
	if _, ok := h.services.Get(serviceID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "service not found: " + serviceID})
		return
	}

	var appCtx *types.Context
	if req.AppID != nil || req.TaskID != nil {
		appCtx = &types.Context{AppID: req.AppID, TaskID: req.TaskID}
	}

	timer := monitoring.NewTimer(h.metrics, serviceID, tool)
	result, err := h.services.Execute(c.Request.Context(), req.ToolID, req.Params, appCtx)
	if err != nil {
		timer.Stop("error")
		if h.metrics != nil {
			h.metrics.RecordServiceError(serviceID, tool, "execute")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := "success"
	if !result.Success {
		status = "failure"
		if h.metrics != nil {
			h.metrics.RecordServiceError(serviceID, tool, "tool_failure")
		}
	}
	timer.Stop(status)

	c.JSON(http.StatusOK, result)
}

// shellLogEntry is one log record forwarded by the shell.
type shellLogEntry struct {
	ID      string                 `json:"id"`
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields"`
	Time    string                 `json:"time"`
}

// IngestLogs folds a batch of shell-side logs into the kernel log
// stream so one place holds the whole desktop's history.
func (h *Handlers) IngestLogs(c *gin.Context) {
	var req struct {
		Source  string          `json:"source"`
		Entries []shellLogEntry `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Source != "shell" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown log source"})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries"})
		return
	}

	log := h.logger.Named("shell")
	for _, entry := range req.Entries {
		fields := shellLogFields(entry)
		switch entry.Level {
		case "error":
			log.Error(entry.Message, fields...)
		case "warn":
			log.Warn(entry.Message, fields...)
		case "debug", "verbose":
			log.Debug(entry.Message, fields...)
		default:
			log.Info(entry.Message, fields...)
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "received": len(req.Entries)})
}

// shellLogFields converts a shell entry into structured zap fields.
func shellLogFields(entry shellLogEntry) []zap.Field {
	fields := make([]zap.Field, 0, len(entry.Fields)+2)
	if entry.ID != "" {
		fields = append(fields, zap.String("shell_log_id", entry.ID))
	}
	if entry.Time != "" {
		fields = append(fields, zap.String("shell_time", entry.Time))
	}
	for key, value := range entry.Fields {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}
	return fields
}

// GetLogs reads recent kernel log entries out of the sysinfo ring.
func (h *Handlers) GetLogs(c *gin.Context) {
	if _, ok := h.services.Get("sysinfo"); !ok {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "log buffer unavailable"})
		return
	}

	params := map[string]interface{}{}
	if s := c.Query("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		params["limit"] = float64(limit)
	}
	if level := c.Query("level"); level != "" {
		params["level"] = level
	}

	result, err := h.services.Execute(c.Request.Context(), "sysinfo.logs", params, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
