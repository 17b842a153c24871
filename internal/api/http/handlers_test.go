package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/app"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/service"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/clipboard"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/storage"
	"github.com/64andrewwalker/macos98-sub001/internal/providers/sysinfo"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// recorderApp is a minimal app instance that records lifecycle calls.
type recorderApp struct {
	mu      sync.Mutex
	actions []string
	files   []string
}

func (a *recorderApp) OnMenuAction(action string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func (a *recorderApp) OpenFile(_ context.Context, path string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files = append(a.files, path)
	return nil
}

type apiFixture struct {
	fs       *vfs.VFS
	bus      *events.Bus
	tasks    *task.Manager
	windows  *window.Manager
	registry *registry.Registry
	runtime  *app.Runtime
	services *service.Registry
	handlers *Handlers
	router   *gin.Engine
}

// newAPI builds the handler set over an in-memory kernel with one
// registered app ("notepad", a txt editor) and the stock services.
func newAPI(t *testing.T) *apiFixture {
	t.Helper()

	db, err := store.OpenMemory("desktop", vfs.SchemaVersion, vfs.Schema)
	require.NoError(t, err)
	fs, err := vfs.New(context.Background(), vfs.Config{DB: db})
	require.NoError(t, err)
	t.Cleanup(fs.Close)

	bus := events.New()
	tasks := task.NewManager()
	windows := window.NewManager()
	reg := registry.New(bus, nil)

	services := service.NewRegistry()
	require.NoError(t, services.Register(storage.NewProvider(fs, nil)))
	require.NoError(t, services.Register(clipboard.NewProvider(bus)))
	require.NoError(t, services.Register(sysinfo.NewProvider(sysinfo.Config{
		Version: "test",
		Tasks:   tasks,
		Windows: windows,
		FS:      fs,
		Bus:     bus,
	})))

	runtime := app.New(app.Config{
		Registry: reg,
		Tasks:    tasks,
		Windows:  windows,
		Bus:      bus,
		FS:       fs,
		Services: services,
	})

	require.NoError(t, reg.Register(types.Manifest{
		ID:      "notepad",
		Name:    "Notepad",
		Version: "1.0.0",
		Associations: []types.FileAssociation{
			{Extensions: []string{"txt"}, Role: types.RoleEditor},
		},
	}, func(sb *sandbox.Context) (registry.Instance, error) {
		return &recorderApp{}, nil
	}))

	installer := registry.NewInstaller(reg, fs, func(m types.Manifest) (registry.Factory, error) {
		return func(sb *sandbox.Context) (registry.Instance, error) {
			return &recorderApp{}, nil
		}, nil
	}, nil)

	h := NewHandlers(Config{
		FS:        fs,
		Bus:       bus,
		Tasks:     tasks,
		Windows:   windows,
		Registry:  reg,
		Installer: installer,
		Runtime:   runtime,
		Services:  services,
		Version:   "test",
	})

	router := gin.New()
	Register(router, h)
	router.GET("/metrics/json", h.MetricsJSON)

	fx := &apiFixture{
		fs:       fs,
		bus:      bus,
		tasks:    tasks,
		windows:  windows,
		registry: reg,
		runtime:  runtime,
		services: services,
		handlers: h,
		router:   router,
	}
	t.Cleanup(runtime.Shutdown)
	return fx
}

// do runs one request through the router. A nil body sends no payload;
// []byte goes raw; anything else is marshaled as JSON.
func (fx *apiFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

// launch starts the notepad fixture app and returns its task ID.
func (fx *apiFixture) launch(t *testing.T) string {
	t.Helper()
	w := fx.do(t, http.MethodPost, "/apps/notepad/launch", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var running app.Running
	decode(t, w, &running)
	require.NotEmpty(t, running.TaskID)
	return running.TaskID
}

func TestRoot(t *testing.T) {
	fx := newAPI(t)

	w := fx.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decode(t, w, &body)
	assert.Equal(t, "online", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestHealth(t *testing.T) {
	fx := newAPI(t)
	fx.launch(t)

	w := fx.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body, "fs")
	assert.Contains(t, body, "tasks")
	assert.Contains(t, body, "services")

	apps := body["apps"].(map[string]interface{})
	assert.Equal(t, float64(1), apps["registered"])
	assert.Equal(t, float64(1), apps["running"])
}

func TestIngestLogs(t *testing.T) {
	fx := newAPI(t)

	t.Run("accepts a batch", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/logs", map[string]interface{}{
			"source": "shell",
			"entries": []map[string]interface{}{
				{"level": "info", "message": "desktop ready", "fields": map[string]interface{}{"windows": 0}},
				{"level": "error", "message": "icon cache miss"},
			},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var body map[string]interface{}
		decode(t, w, &body)
		assert.Equal(t, float64(2), body["received"])
	})

	t.Run("rejects unknown sources", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/logs", map[string]interface{}{
			"source":  "toaster",
			"entries": []map[string]interface{}{{"level": "info", "message": "pop"}},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects empty batches", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/logs", map[string]interface{}{"source": "shell"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGetLogs(t *testing.T) {
	fx := newAPI(t)

	// Write through the service so the ring has something to return.
	appID := "notepad"
	_, err := fx.services.Execute(context.Background(), "sysinfo.log",
		map[string]interface{}{"level": "info", "message": "saved"},
		&types.Context{AppID: &appID})
	require.NoError(t, err)

	w := fx.do(t, http.MethodGet, "/logs?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result types.Result
	decode(t, w, &result)
	assert.True(t, result.Success)

	t.Run("bad limit", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/logs?limit=ten", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMetricsJSONDisabled(t *testing.T) {
	fx := newAPI(t)

	// The fixture runs without a collector.
	w := fx.do(t, http.MethodGet, "/metrics/json", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
