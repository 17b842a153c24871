package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/store"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type streamFixture struct {
	bus     *events.Bus
	windows *window.Manager
	fs      *vfs.VFS
	server  *httptest.Server
}

func newStream(t *testing.T) *streamFixture {
	t.Helper()

	db, err := store.OpenMemory("desktop", vfs.SchemaVersion, vfs.Schema)
	require.NoError(t, err)
	fs, err := vfs.New(context.Background(), vfs.Config{DB: db})
	require.NoError(t, err)
	t.Cleanup(fs.Close)

	fx := &streamFixture{
		bus:     events.New(),
		windows: window.NewManager(),
		fs:      fs,
	}

	handler := NewHandler(Config{Bus: fx.bus, Windows: fx.windows, FS: fx.fs})
	router := gin.New()
	router.GET("/stream", handler.HandleConnection)

	fx.server = httptest.NewServer(router)
	t.Cleanup(fx.server.Close)
	return fx
}

// dial connects to the stream and consumes the welcome frame.
func (fx *streamFixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(fx.server.URL, "http") + "/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	welcome := readFrame(t, conn)
	require.Equal(t, "system", welcome["type"])
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame map[string]interface{}
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestStreamForwardsBusEvents(t *testing.T) {
	fx := newStream(t)
	conn := fx.dial(t)

	fx.bus.Publish(types.EventAppLaunched, types.AppEvent{AppID: "notepad", TaskID: "task-1"})

	frame := readFrame(t, conn)
	assert.Equal(t, "event", frame["type"])
	assert.Equal(t, "app.launched", frame["topic"])

	payload := frame["payload"].(map[string]interface{})
	assert.Equal(t, "notepad", payload["app_id"])
	assert.Equal(t, "task-1", payload["task_id"])
}

func TestStreamForwardsWindowChanges(t *testing.T) {
	fx := newStream(t)
	conn := fx.dial(t)

	win := fx.windows.Open("notepad", window.Options{Title: "Untitled"})

	opened := readFrame(t, conn)
	assert.Equal(t, "window", opened["type"])
	assert.Equal(t, "opened", opened["kind"])

	focused := readFrame(t, conn)
	assert.Equal(t, "focused", focused["kind"])
	got := focused["window"].(map[string]interface{})
	assert.Equal(t, win.ID, got["id"])
}

func TestStreamForwardsFSEvents(t *testing.T) {
	fx := newStream(t)
	conn := fx.dial(t)
	ctx := context.Background()

	_, err := fx.fs.WriteFile(ctx, "/notes.txt", []byte("hi"))
	require.NoError(t, err)

	frame := readFrame(t, conn)
	assert.Equal(t, "fs", frame["type"])
	assert.Equal(t, "create", frame["kind"])
	assert.Equal(t, "/notes.txt", frame["path"])

	require.NoError(t, fx.fs.Rename(ctx, "/notes.txt", "/renamed.txt"))

	frame = readFrame(t, conn)
	assert.Equal(t, "rename", frame["kind"])
	assert.Equal(t, "/renamed.txt", frame["path"])
	assert.Equal(t, "/notes.txt", frame["old_path"])
}

func TestStreamPing(t *testing.T) {
	fx := newStream(t)
	conn := fx.dial(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	frame := readFrame(t, conn)
	assert.Equal(t, "pong", frame["type"])

	t.Run("unknown message type", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "jazz"}))
		frame := readFrame(t, conn)
		assert.Equal(t, "error", frame["type"])
	})
}

func TestStreamCleansUpOnDisconnect(t *testing.T) {
	fx := newStream(t)

	baseline := fx.bus.Stats().Subscriptions
	conn := fx.dial(t)
	require.Greater(t, fx.bus.Stats().Subscriptions, baseline)
	require.Equal(t, 1, fx.fs.WatcherCount())

	conn.Close()

	require.Eventually(t, func() bool {
		return fx.bus.Stats().Subscriptions == baseline && fx.fs.WatcherCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
