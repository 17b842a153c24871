package clipboard

import (
	"context"
	"testing"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// TestCopyPaste tests the basic slot behavior
func TestCopyPaste(t *testing.T) {
	p := NewProvider(events.New())
	ctx := context.Background()

	result, err := p.Execute(ctx, "clipboard.paste", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("paste empty: success=%v err=%v", result.Success, err)
	}
	if result.Data["empty"] != true {
		t.Errorf("empty = %v, want true", result.Data["empty"])
	}

	appID := "notes"
	result, err = p.Execute(ctx, "clipboard.copy", map[string]interface{}{
		"data": "hello",
	}, &types.Context{AppID: &appID})
	if err != nil || !result.Success {
		t.Fatalf("copy: success=%v err=%v", result.Success, err)
	}

	result, err = p.Execute(ctx, "clipboard.paste", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("paste: success=%v err=%v", result.Success, err)
	}
	entry := result.Data["entry"].(Entry)
	if entry.Data != "hello" || entry.Format != "text" || entry.AppID != "notes" {
		t.Errorf("entry = %+v", entry)
	}
}

// TestHistoryOrder tests newest-first history with a limit
func TestHistoryOrder(t *testing.T) {
	p := NewProvider(events.New())
	ctx := context.Background()

	for _, data := range []string{"one", "two", "three"} {
		if result, err := p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": data}, nil); err != nil || !result.Success {
			t.Fatalf("copy %s: %v", data, err)
		}
	}

	result, err := p.Execute(ctx, "clipboard.history", map[string]interface{}{"limit": float64(2)}, nil)
	if err != nil || !result.Success {
		t.Fatalf("history: success=%v err=%v", result.Success, err)
	}
	entries := result.Data["entries"].([]Entry)
	if len(entries) != 2 || entries[0].Data != "three" || entries[1].Data != "two" {
		t.Errorf("entries = %+v, want [three two]", entries)
	}
}

// TestHistoryCap tests that history stays bounded
func TestHistoryCap(t *testing.T) {
	p := NewProvider(events.New())
	p.limit = 3
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "x"}, nil)
	}

	result, _ := p.Execute(ctx, "clipboard.history", nil, nil)
	if count := result.Data["count"]; count != 3 {
		t.Errorf("count = %v, want 3", count)
	}
}

// TestGetEntry tests lookup by ID
func TestGetEntry(t *testing.T) {
	p := NewProvider(events.New())
	ctx := context.Background()

	result, _ := p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "keep"}, nil)
	id := result.Data["entry_id"].(uint64)

	result, err := p.Execute(ctx, "clipboard.get_entry", map[string]interface{}{"entry_id": float64(id)}, nil)
	if err != nil || !result.Success {
		t.Fatalf("get_entry: success=%v err=%v", result.Success, err)
	}
	if entry := result.Data["entry"].(Entry); entry.Data != "keep" {
		t.Errorf("entry = %+v", entry)
	}

	result, _ = p.Execute(ctx, "clipboard.get_entry", map[string]interface{}{"entry_id": float64(9999)}, nil)
	if result.Success {
		t.Error("get_entry found a nonexistent ID")
	}
}

// TestClear tests that clear empties slot and history
func TestClear(t *testing.T) {
	p := NewProvider(events.New())
	ctx := context.Background()

	p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "gone"}, nil)
	if result, err := p.Execute(ctx, "clipboard.clear", nil, nil); err != nil || !result.Success {
		t.Fatalf("clear: %v", err)
	}

	result, _ := p.Execute(ctx, "clipboard.paste", nil, nil)
	if result.Data["empty"] != true {
		t.Error("paste after clear not empty")
	}
	result, _ = p.Execute(ctx, "clipboard.history", nil, nil)
	if count := result.Data["count"]; count != 0 {
		t.Errorf("history after clear = %v, want 0", count)
	}
}

// TestChangeEvents tests that copy and clear publish on the bus
func TestChangeEvents(t *testing.T) {
	bus := events.New()
	var actions []string
	bus.Subscribe(types.EventClipboardChanged, func(e events.Event) {
		payload := e.Payload.(map[string]interface{})
		actions = append(actions, payload["action"].(string))
	})

	p := NewProvider(bus)
	ctx := context.Background()
	p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "x"}, nil)
	p.Execute(ctx, "clipboard.clear", nil, nil)

	if len(actions) != 2 || actions[0] != "copy" || actions[1] != "clear" {
		t.Errorf("actions = %v, want [copy clear]", actions)
	}
}

// TestRejectsEmptyData tests parameter validation
func TestRejectsEmptyData(t *testing.T) {
	p := NewProvider(events.New())

	result, _ := p.Execute(context.Background(), "clipboard.copy", map[string]interface{}{}, nil)
	if result.Success {
		t.Error("copy without data succeeded")
	}
}

// TestStats tests the counters
func TestStats(t *testing.T) {
	p := NewProvider(events.New())
	ctx := context.Background()

	p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "a"}, nil)
	p.Execute(ctx, "clipboard.copy", map[string]interface{}{"data": "b"}, nil)

	result, err := p.Execute(ctx, "clipboard.stats", nil, nil)
	if err != nil || !result.Success {
		t.Fatalf("stats: %v", err)
	}
	if result.Data["entries"] != 2 || result.Data["has_current"] != true {
		t.Errorf("stats = %v", result.Data)
	}
	if result.Data["total_saved"] != uint64(2) {
		t.Errorf("total_saved = %v, want 2", result.Data["total_saved"])
	}
}
