package sysinfo

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

const logCapacity = 1000

// Config carries the kernel components the provider reports on
type Config struct {
	Version string
	Tasks   *task.Manager
	Windows *window.Manager
	FS      *vfs.VFS
	Bus     *events.Bus
}

// Provider reports desktop state: uptime, version, and live counters
// for tasks, windows, the file system, and the bus. It also keeps a
// small in-memory log ring apps can write to and the shell can read.
type Provider struct {
	cfg       Config
	startTime time.Time
	logs      *logRing
}

// LogEntry is one app-visible log line
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	AppID     string    `json:"app_id,omitempty"`
}

// logRing is a fixed-size circular log buffer
type logRing struct {
	mu      sync.RWMutex
	entries []*LogEntry
	head    int
	size    int
}

func newLogRing(capacity int) *logRing {
	return &logRing{entries: make([]*LogEntry, capacity)}
}

func (r *logRing) add(entry *LogEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.head] = entry
	r.head = (r.head + 1) % len(r.entries)
	if r.size < len(r.entries) {
		r.size++
	}
}

// recent returns up to limit entries, newest first, optionally
// filtered by level
func (r *logRing) recent(limit int, level string) []LogEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if limit > r.size {
		limit = r.size
	}
	out := make([]LogEntry, 0, limit)
	for i := 0; i < r.size && len(out) < limit; i++ {
		idx := (r.head - 1 - i + len(r.entries)) % len(r.entries)
		entry := r.entries[idx]
		if entry == nil {
			continue
		}
		if level == "" || entry.Level == level {
			out = append(out, *entry)
		}
	}
	return out
}

// NewProvider creates a sysinfo provider
func NewProvider(cfg Config) *Provider {
	return &Provider{
		cfg:       cfg,
		startTime: time.Now(),
		logs:      newLogRing(logCapacity),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "sysinfo",
		Name:        "System Info",
		Description: "Desktop state, uptime, and diagnostics",
		Category:    types.CategorySystem,
		Capabilities: []string{
			"info",
			"counters",
			"logging",
		},
		Tools: []types.Tool{
			{
				ID:          "sysinfo.info",
				Name:        "System Info",
				Description: "Version, uptime, and runtime details",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "sysinfo.counters",
				Name:        "Counters",
				Description: "Live task, window, file system, and bus counts",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "sysinfo.time",
				Name:        "Current Time",
				Description: "Current kernel time",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "sysinfo.log",
				Name:        "Log Message",
				Description: "Append a line to the system log ring",
				Parameters: []types.Parameter{
					{Name: "message", Type: "string", Description: "Log message", Required: true},
					{Name: "level", Type: "string", Description: "Log level (info/warn/error)", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "sysinfo.logs",
				Name:        "Get Logs",
				Description: "Read recent log lines, newest first",
				Parameters: []types.Parameter{
					{Name: "limit", Type: "number", Description: "Maximum lines", Required: false},
					{Name: "level", Type: "string", Description: "Filter by level", Required: false},
				},
				Returns: "array",
			},
			{
				ID:          "sysinfo.ping",
				Name:        "Ping",
				Description: "Test service availability",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a sysinfo operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "sysinfo.info":
		return p.info()
	case "sysinfo.counters":
		return p.counters()
	case "sysinfo.time":
		return p.currentTime()
	case "sysinfo.log":
		return p.log(params, appCtx)
	case "sysinfo.logs":
		return p.getLogs(params)
	case "sysinfo.ping":
		return p.ping()
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) info() (*types.Result, error) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return success(map[string]interface{}{
		"version":        p.cfg.Version,
		"go_version":     runtime.Version(),
		"os":             runtime.GOOS,
		"arch":           runtime.GOARCH,
		"cpus":           runtime.NumCPU(),
		"goroutines":     runtime.NumGoroutine(),
		"memory_alloc":   m.Alloc / 1024 / 1024,
		"memory_sys":     m.Sys / 1024 / 1024,
		"uptime_seconds": time.Since(p.startTime).Seconds(),
	})
}

func (p *Provider) counters() (*types.Result, error) {
	data := map[string]interface{}{}
	if p.cfg.Tasks != nil {
		data["tasks"] = p.cfg.Tasks.Stats()
	}
	if p.cfg.Windows != nil {
		data["windows"] = p.cfg.Windows.Count()
	}
	if p.cfg.FS != nil {
		data["fs"] = p.cfg.FS.GetStats()
	}
	if p.cfg.Bus != nil {
		data["bus"] = p.cfg.Bus.Stats()
	}
	return success(data)
}

func (p *Provider) currentTime() (*types.Result, error) {
	now := time.Now()
	return success(map[string]interface{}{
		"timestamp": now.Unix(),
		"unix_ms":   now.UnixMilli(),
		"iso":       now.Format(time.RFC3339),
	})
}

func (p *Provider) log(params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	message, ok := params["message"].(string)
	if !ok || message == "" {
		return failure("message required")
	}
	level := "info"
	if l, ok := params["level"].(string); ok && l != "" {
		level = l
	}

	entry := &LogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
	}
	if appCtx != nil && appCtx.AppID != nil {
		entry.AppID = *appCtx.AppID
	}
	p.logs.add(entry)

	return success(map[string]interface{}{"logged": true})
}

func (p *Provider) getLogs(params map[string]interface{}) (*types.Result, error) {
	limit := 100
	if l, ok := params["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}
	level := ""
	if l, ok := params["level"].(string); ok {
		level = l
	}

	logs := p.logs.recent(limit, level)
	return success(map[string]interface{}{
		"logs":  logs,
		"count": len(logs),
	})
}

func (p *Provider) ping() (*types.Result, error) {
	return success(map[string]interface{}{
		"pong":      true,
		"timestamp": time.Now().Unix(),
	})
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
