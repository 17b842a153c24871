package sysinfo

import (
	"context"
	"testing"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// TestInfo tests version and uptime reporting
func TestInfo(t *testing.T) {
	p := NewProvider(Config{Version: "0.9.8"})

	result, err := p.Execute(context.Background(), "sysinfo.info", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("info: success=%v err=%v", result.Success, err)
	}
	if result.Data["version"] != "0.9.8" {
		t.Errorf("version = %v, want 0.9.8", result.Data["version"])
	}
	if _, ok := result.Data["uptime_seconds"].(float64); !ok {
		t.Errorf("uptime_seconds = %T, want float64", result.Data["uptime_seconds"])
	}
}

// TestCounters tests live component counts
func TestCounters(t *testing.T) {
	tasks := task.NewManager()
	tasks.Spawn("notes")
	tasks.Spawn("paint")
	windows := window.NewManager()
	windows.Open("notes", window.Options{Title: "Untitled"})

	p := NewProvider(Config{
		Tasks:   tasks,
		Windows: windows,
		Bus:     events.New(),
	})

	result, err := p.Execute(context.Background(), "sysinfo.counters", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("counters: success=%v err=%v", result.Success, err)
	}
	if stats := result.Data["tasks"].(task.Stats); stats.Total != 2 {
		t.Errorf("task total = %d, want 2", stats.Total)
	}
	if count := result.Data["windows"]; count != 1 {
		t.Errorf("windows = %v, want 1", count)
	}
	if _, ok := result.Data["fs"]; ok {
		t.Error("fs counter present without a file system")
	}
}

// TestLogRing tests append, retrieval order, and level filtering
func TestLogRing(t *testing.T) {
	p := NewProvider(Config{})
	ctx := context.Background()
	appID := "notes"

	for _, line := range []struct{ level, msg string }{
		{"info", "started"},
		{"error", "disk full"},
		{"info", "recovered"},
	} {
		result, err := p.Execute(ctx, "sysinfo.log", map[string]interface{}{
			"message": line.msg,
			"level":   line.level,
		}, &types.Context{AppID: &appID})
		if err != nil || !result.Success {
			t.Fatalf("log %q: %v", line.msg, err)
		}
	}

	result, err := p.Execute(ctx, "sysinfo.logs", map[string]interface{}{"limit": float64(2)}, nil)
	if err != nil || !result.Success {
		t.Fatalf("logs: %v", err)
	}
	logs := result.Data["logs"].([]LogEntry)
	if len(logs) != 2 || logs[0].Message != "recovered" || logs[1].Message != "disk full" {
		t.Errorf("logs = %+v, want newest first", logs)
	}
	if logs[0].AppID != "notes" {
		t.Errorf("app_id = %q, want notes", logs[0].AppID)
	}

	result, _ = p.Execute(ctx, "sysinfo.logs", map[string]interface{}{"level": "error"}, nil)
	logs = result.Data["logs"].([]LogEntry)
	if len(logs) != 1 || logs[0].Message != "disk full" {
		t.Errorf("error logs = %+v", logs)
	}
}

// TestLogRingWraps tests the ring overwrites oldest entries
func TestLogRingWraps(t *testing.T) {
	ring := newLogRing(3)
	for _, msg := range []string{"a", "b", "c", "d"} {
		ring.add(&LogEntry{Level: "info", Message: msg})
	}

	logs := ring.recent(10, "")
	if len(logs) != 3 || logs[0].Message != "d" || logs[2].Message != "b" {
		t.Errorf("logs = %+v, want [d c b]", logs)
	}
}

// TestLogRequiresMessage tests parameter validation
func TestLogRequiresMessage(t *testing.T) {
	p := NewProvider(Config{})

	result, _ := p.Execute(context.Background(), "sysinfo.log", map[string]interface{}{}, nil)
	if result.Success {
		t.Error("log without message succeeded")
	}
}

// TestPing tests availability probing
func TestPing(t *testing.T) {
	p := NewProvider(Config{})

	result, err := p.Execute(context.Background(), "sysinfo.ping", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("ping: %v", err)
	}
	if result.Data["pong"] != true {
		t.Errorf("pong = %v", result.Data["pong"])
	}
}

// TestUnknownTool tests the failure path
func TestUnknownTool(t *testing.T) {
	p := NewProvider(Config{})

	result, _ := p.Execute(context.Background(), "sysinfo.reboot", nil, nil)
	if result.Success {
		t.Error("unknown tool succeeded")
	}
	if result.Error == nil {
		t.Error("unknown tool carries no error message")
	}
}
