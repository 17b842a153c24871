package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/paths"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

const maxKeyLen = 128

// Provider persists per-app key/value pairs as JSON files under the
// app's data directory in the virtual file system.
type Provider struct {
	fs     *vfs.VFS
	logger *logging.Logger
}

// NewProvider creates a storage provider backed by fs
func NewProvider(fs *vfs.VFS, logger *logging.Logger) *Provider {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Provider{
		fs:     fs,
		logger: logger.Named("storage"),
	}
}

// Definition returns service metadata
func (p *Provider) Definition() types.Service {
	return types.Service{
		ID:          "storage",
		Name:        "App Storage",
		Description: "Per-app key/value persistence",
		Category:    types.CategoryStorage,
		Capabilities: []string{
			"key_value",
			"persistence",
			"per_app_isolation",
		},
		Tools: []types.Tool{
			{
				ID:          "storage.set",
				Name:        "Set Value",
				Description: "Store a value under a key",
				Parameters: []types.Parameter{
					{Name: "key", Type: "string", Description: "Storage key", Required: true},
					{Name: "value", Type: "object", Description: "Value to store", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "storage.get",
				Name:        "Get Value",
				Description: "Retrieve a stored value; missing keys yield null",
				Parameters: []types.Parameter{
					{Name: "key", Type: "string", Description: "Storage key", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "storage.remove",
				Name:        "Remove Value",
				Description: "Delete a key",
				Parameters: []types.Parameter{
					{Name: "key", Type: "string", Description: "Storage key", Required: true},
				},
				Returns: "object",
			},
			{
				ID:          "storage.list",
				Name:        "List Keys",
				Description: "List the app's stored keys",
				Parameters:  []types.Parameter{},
				Returns:     "array",
			},
			{
				ID:          "storage.clear",
				Name:        "Clear Storage",
				Description: "Delete every key the app has stored",
				Parameters:  []types.Parameter{},
				Returns:     "object",
			},
		},
	}
}

// Execute runs a storage operation
func (p *Provider) Execute(ctx context.Context, toolID string, params map[string]interface{}, appCtx *types.Context) (*types.Result, error) {
	appID, ok := callerApp(appCtx)
	if !ok {
		return failure("app context required")
	}

	switch toolID {
	case "storage.set":
		return p.set(ctx, appID, params)
	case "storage.get":
		return p.get(ctx, appID, params)
	case "storage.remove":
		return p.remove(ctx, appID, params)
	case "storage.list":
		return p.list(ctx, appID)
	case "storage.clear":
		return p.clear(ctx, appID)
	default:
		return failure(fmt.Sprintf("unknown tool: %s", toolID))
	}
}

func (p *Provider) set(ctx context.Context, appID string, params map[string]interface{}) (*types.Result, error) {
	key, ok := keyParam(params)
	if !ok {
		return failure("valid key parameter required")
	}
	value, ok := params["value"]
	if !ok {
		return failure("value parameter required")
	}

	data, err := sonic.Marshal(value)
	if err != nil {
		return failure(fmt.Sprintf("value not serializable: %v", err))
	}

	dir := paths.AppPath(appID).DataDir()
	if err := p.fs.Mkdir(ctx, dir); err != nil {
		return failure(fmt.Sprintf("prepare data dir: %v", err))
	}
	if _, err := p.fs.WriteFile(ctx, keyPath(appID, key), data); err != nil {
		p.logger.Error("write failed",
			zap.String("app_id", appID),
			zap.String("key", key),
			zap.Error(err))
		return failure(fmt.Sprintf("write failed: %v", err))
	}

	return success(map[string]interface{}{"stored": true, "key": key})
}

func (p *Provider) get(ctx context.Context, appID string, params map[string]interface{}) (*types.Result, error) {
	key, ok := keyParam(params)
	if !ok {
		return failure("valid key parameter required")
	}

	data, err := p.fs.ReadFile(ctx, keyPath(appID, key))
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return success(map[string]interface{}{"key": key, "value": nil, "exists": false})
		}
		return failure(fmt.Sprintf("read failed: %v", err))
	}

	var value interface{}
	if err := sonic.Unmarshal(data, &value); err != nil {
		return failure(fmt.Sprintf("stored value corrupt: %v", err))
	}

	return success(map[string]interface{}{"key": key, "value": value, "exists": true})
}

func (p *Provider) remove(ctx context.Context, appID string, params map[string]interface{}) (*types.Result, error) {
	key, ok := keyParam(params)
	if !ok {
		return failure("valid key parameter required")
	}

	if err := p.fs.DeleteFile(ctx, keyPath(appID, key)); err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return success(map[string]interface{}{"key": key, "removed": false})
		}
		return failure(fmt.Sprintf("remove failed: %v", err))
	}

	return success(map[string]interface{}{"key": key, "removed": true})
}

func (p *Provider) list(ctx context.Context, appID string) (*types.Result, error) {
	nodes, err := p.fs.ReadDir(ctx, paths.AppPath(appID).DataDir())
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return success(map[string]interface{}{"keys": []string{}, "count": 0})
		}
		return failure(fmt.Sprintf("list failed: %v", err))
	}

	keys := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if name, ok := strings.CutSuffix(n.Name, ".json"); ok && !n.IsDir() {
			keys = append(keys, name)
		}
	}

	return success(map[string]interface{}{"keys": keys, "count": len(keys)})
}

func (p *Provider) clear(ctx context.Context, appID string) (*types.Result, error) {
	dir := paths.AppPath(appID).DataDir()
	nodes, err := p.fs.ReadDir(ctx, dir)
	if err != nil {
		if errors.Is(err, vfs.ErrNotExist) {
			return success(map[string]interface{}{"cleared": 0})
		}
		return failure(fmt.Sprintf("clear failed: %v", err))
	}

	cleared := 0
	for _, n := range nodes {
		if n.IsDir() {
			continue
		}
		if err := p.fs.DeleteFile(ctx, n.Path); err != nil {
			p.logger.Warn("clear stopped early",
				zap.String("app_id", appID),
				zap.String("path", n.Path),
				zap.Error(err))
			return failure(fmt.Sprintf("clear failed at %s: %v", n.Name, err))
		}
		cleared++
	}

	return success(map[string]interface{}{"cleared": cleared})
}

func keyPath(appID, key string) string {
	return paths.Join(paths.AppPath(appID).DataDir(), key+".json")
}

func keyParam(params map[string]interface{}) (string, bool) {
	key, ok := params["key"].(string)
	if !ok || !validKey(key) {
		return "", false
	}
	return key, true
}

// validKey keeps keys usable as single path segments
func validKey(key string) bool {
	if key == "" || len(key) > maxKeyLen {
		return false
	}
	if key == "." || key == ".." {
		return false
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

func callerApp(appCtx *types.Context) (string, bool) {
	if appCtx == nil || appCtx.AppID == nil || *appCtx.AppID == "" {
		return "", false
	}
	return *appCtx.AppID, true
}

func success(data map[string]interface{}) (*types.Result, error) {
	return &types.Result{Success: true, Data: data}, nil
}

func failure(message string) (*types.Result, error) {
	msg := message
	return &types.Result{Success: false, Error: &msg}, nil
}
