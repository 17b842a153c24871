package clipboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

const defaultHistoryLimit = 50

// Entry is one clipboard item
type Entry struct {
	ID       uint64    `json:"id"`
	Data     string    `json:"data"`
	Format   string    `json:"format"`
	AppID    string    `json:"app_id,omitempty"`
	CopiedAt time.Time `json:"copied_at"`
}

// Provider implements the desktop session's clipboard: one current
// slot plus a bounded most-recent-first history. Every copy and clear
// publishes clipboard.changed on the bus.
type Provider struct {
	bus   *events.Bus
	limit int

	mu      sync.Mutex
	nextID  uint64
	current *Entry
	history []Entry
}

// NewProvider creates a clipboard provider
func NewProvider(bus *events.Bus) *Provider {
	return &Provider{
		bus:   bus,
		limit: defaultHistoryLimit,
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "clipboard",
		Name:        "Clipboard",
		Description: "Session clipboard with history",
		Category:    types.CategoryClipboard,
		Capabilities: []string{
			"copy",
			"paste",
			"history",
			"change_events",
		},
		Tools: []types.Tool{
			{
				ID:          "clipboard.copy",
				Name:        "Copy",
				Description: "Place data on the clipboard",
				Parameters: []types.Parameter{
					{Name: "data", Type: "string", Description: "Data to copy", Required: true},
					{Name: "format", Type: "string", Description: "Data format (default text)", Required: false},
				},
				Returns: "object",
			},
			{
				ID:          "clipboard.paste",
				Name:        "Paste",
				Description: "Read the current clipboard entry",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "clipboard.history",
				Name:        "History",
				Description: "List recent entries, newest first",
				Parameters: []types.Parameter{
					{Name: "limit", Type: "number", Description: "Maximum entries", Required: false},
				},
				Returns: "array",
			},
			{
				ID:          "clipboard.get_entry",
				Name:        "Get Entry",
				Description: "Fetch one history entry by ID",
				Parameters: []types.Parameter{
					{Name: "entry_id", Type: "number", Description: "Entry ID", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "clipboard.clear",
				Name:        "Clear",
				Description: "Empty the clipboard and its history",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
			{
				ID:          "clipboard.stats",
				Name:        "Stats",
				Description: "Clipboard usage counters",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a clipboard operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	switch toolID {
	case "clipboard.copy":
		return p.copy(params, appCtx)
	case "clipboard.paste":
		return p.paste()
	case "clipboard.history":
		return p.listHistory(params)
	case "clipboard.get_entry":
		return p.getEntry(params)
	case "clipboard.clear":
		return p.clear()
	case "clipboard.stats":
		return p.stats()
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) copy(params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	data, ok := params["data"].(string)
	if !ok || data == "" {
		return failure("data parameter required")
	}
	format := "text"
	if f, ok := params["format"].(string); ok && f != "" {
		format = f
	}

	p.mu.Lock()
	p.nextID++
	entry := Entry{
		ID:       p.nextID,
		Data:     data,
		Format:   format,
		CopiedAt: time.Now(),
	}
	if appCtx != nil && appCtx.AppID != nil {
		entry.AppID = *appCtx.AppID
	}
	p.current = &entry
	p.history = append([]Entry{entry}, p.history...)
	if len(p.history) > p.limit {
		p.history = p.history[:p.limit]
	}
	p.mu.Unlock()

	p.notify("copy", &entry)
	return success(map[string]interface{}{
		"copied":   true,
		"entry_id": entry.ID,
		"format":   entry.Format,
	})
}

func (p *Provider) paste() (*types.Result, error) {
	p.mu.Lock()
	current := p.current
	p.mu.Unlock()

	if current == nil {
		return success(map[string]interface{}{"empty": true})
	}
	return success(map[string]interface{}{
		"empty": false,
		"entry": *current,
	})
}

func (p *Provider) listHistory(params map[string]interface{}) (*types.Result, error) {
	limit := p.limit
	if l, ok := params["limit"].(float64); ok && l > 0 && int(l) < limit {
		limit = int(l)
	}

	p.mu.Lock()
	n := len(p.history)
	if n > limit {
		n = limit
	}
	entries := make([]Entry, n)
	copy(entries, p.history[:n])
	p.mu.Unlock()

	return success(map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (p *Provider) getEntry(params map[string]interface{}) (*types.Result, error) {
	id, ok := params["entry_id"].(float64)
	if !ok {
		return failure("entry_id parameter required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.history {
		if e.ID == uint64(id) {
			return success(map[string]interface{}{"entry": e})
		}
	}
	return failure(fmt.Sprintf("entry not found: %d", uint64(id)))
}

func (p *Provider) clear() (*types.Result, error) {
	p.mu.Lock()
	p.current = nil
	p.history = nil
	p.mu.Unlock()

	p.notify("clear", nil)
	return success(map[string]interface{}{"cleared": true})
}

func (p *Provider) stats() (*types.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return success(map[string]interface{}{
		"entries":     len(p.history),
		"total_saved": p.nextID,
		"has_current": p.current != nil,
	})
}

func (p *Provider) notify(action string, entry *Entry) {
	if p.bus == nil {
		return
	}
	payload := map[string]interface{}{"action": action}
	if entry != nil {
		payload["entry_id"] = entry.ID
		payload["format"] = entry.Format
		payload["app_id"] = entry.AppID
	}
	p.bus.Publish(types.EventClipboardChanged, payload)
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
