package service

import (
	"context"
	"testing"

	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

type mockProvider struct {
	id       string
	category types.Category
}

func (m *mockProvider) Definition() types.Service {
	return types.Service{
		ID:           m.id,
		Name:         "Mock Service",
		Description:  "A mock service for testing",
		Category:     m.category,
		Capabilities: []string{"read", "write"},
		Tools: []types.Tool{
			{
				ID:          m.id + ".test",
				Name:        "Test Tool",
				Description: "A test tool",
				Returns:     "string",
			},
		},
	}
}

func (m *mockProvider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	return &types.Result{
		Success: true,
		Data:    map[string]interface{}{"tool": toolID},
	}, nil
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	p := &mockProvider{id: "test", category: types.CategoryStorage}

	if err := r.Register(p); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if _, ok := r.Get("test"); !ok {
		t.Error("Service should be registered")
	}
}

func TestRegisterEmptyID(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&mockProvider{id: ""}); err == nil {
		t.Error("Empty service ID should be rejected")
	}
}

func TestUnregister(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test", category: types.CategoryStorage})
	r.Unregister("test")

	if _, ok := r.Get("test"); ok {
		t.Error("Service should be unregistered")
	}
}

func TestList(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "store", category: types.CategoryStorage})
	r.Register(&mockProvider{id: "clip", category: types.CategoryClipboard})

	services := r.List(nil)
	if len(services) != 2 {
		t.Errorf("Expected 2 services, got %d", len(services))
	}

	cat := types.CategoryStorage
	filtered := r.List(&cat)
	if len(filtered) != 1 {
		t.Errorf("Expected 1 storage service, got %d", len(filtered))
	}
	if filtered[0].ID != "store" {
		t.Errorf("Expected store service, got %s", filtered[0].ID)
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "test", category: types.CategoryStorage})

	result, err := r.Execute(context.Background(), "test.tool", nil, nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Error("Execute should succeed")
	}
	if result.Data["tool"] != "test.tool" {
		t.Errorf("Tool ID should pass through, got %v", result.Data["tool"])
	}
}

func TestExecuteUnknownService(t *testing.T) {
	r := NewRegistry()

	result, err := r.Execute(context.Background(), "ghost.tool", nil, nil)
	if err == nil {
		t.Error("Unknown service should error")
	}
	if result.Success {
		t.Error("Result should not be successful")
	}
}

func TestExecuteMalformedToolID(t *testing.T) {
	r := NewRegistry()

	_, err := r.Execute(context.Background(), "no-dot", nil, nil)
	if err == nil {
		t.Error("Malformed tool ID should error")
	}
}

func TestStats(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockProvider{id: "a", category: types.CategoryStorage})
	r.Register(&mockProvider{id: "b", category: types.CategorySystem})

	stats := r.Stats()
	if stats["total_services"] != 2 {
		t.Errorf("Expected 2 services, got %v", stats["total_services"])
	}
	if stats["total_tools"] != 2 {
		t.Errorf("Expected 2 tools, got %v", stats["total_tools"])
	}
}
