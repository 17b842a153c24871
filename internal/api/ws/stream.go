package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// streamTopics are the bus topics every client receives
var streamTopics = []string{
	types.EventAppRegistered,
	types.EventAppUnregistered,
	types.EventAppLaunched,
	types.EventAppActivated,
	types.EventAppTerminated,
	types.EventClipboardChanged,
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the shell connects from its own dev origin
	},
}

// Config carries the event sources the stream forwards.
type Config struct {
	Bus     *events.Bus
	Windows *window.Manager
	FS      *vfs.VFS
	Metrics *monitoring.Metrics
	Logger  *logging.Logger
}

// Handler upgrades shell connections and streams kernel events.
type Handler struct {
	bus     *events.Bus
	windows *window.Manager
	fs      *vfs.VFS
	metrics *monitoring.Metrics
	logger  *logging.Logger
}

// NewHandler creates a stream handler.
func NewHandler(cfg Config) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		bus:     cfg.Bus,
		windows: cfg.Windows,
		fs:      cfg.FS,
		metrics: cfg.Metrics,
		logger:  log.Named("stream"),
	}
}

// client is one connected shell. The quit channel stops the write pump;
// the send channel is never closed because publishers may still hold a
// reference while the connection tears down.
type client struct {
	conn *websocket.Conn
	send chan map[string]interface{}
	quit chan struct{}
	once sync.Once
}

// enqueue hands a frame to the write pump without blocking: event
// handlers run synchronously on the publisher's goroutine.
func (c *client) enqueue(frame map[string]interface{}) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// shutdown stops the write pump. Idempotent, safe from any goroutine.
func (c *client) shutdown() {
	c.once.Do(func() { close(c.quit) })
}

// HandleConnection upgrades the request and streams events until the
// client disconnects.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}
	h.logger.Info("shell connected", zap.String("remote", conn.RemoteAddr().String()))

	cl := &client{
		conn: conn,
		send: make(chan map[string]interface{}, sendBuffer),
		quit: make(chan struct{}),
	}
	pumpDone := make(chan struct{})
	go h.writePump(cl, pumpDone)

	cl.enqueue(map[string]interface{}{
		"type":      "system",
		"message":   "connected to macos98 kernel",
		"timestamp": time.Now().Unix(),
	})

	cancel := h.subscribe(cl)
	h.readLoop(cl)

	cancel()
	cl.shutdown()
	<-pumpDone
	h.logger.Info("shell disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

// subscribe wires the client into the bus, the window manager, and the
// file system. The returned func removes every registration.
func (h *Handler) subscribe(cl *client) func() {
	cancels := make([]func(), 0, len(streamTopics)+2)

	for _, topic := range streamTopics {
		cancels = append(cancels, h.bus.Subscribe(topic, func(e events.Event) {
			h.forward(cl, map[string]interface{}{
				"type":      "event",
				"topic":     e.Topic,
				"payload":   e.Payload,
				"timestamp": e.Time.Unix(),
			})
		}))
	}

	cancels = append(cancels, h.windows.OnChange(func(change window.Change) {
		h.forward(cl, map[string]interface{}{
			"type":      "window",
			"kind":      string(change.Kind),
			"window":    change.Window,
			"timestamp": time.Now().Unix(),
		})
	}))

	watchCancel, err := h.fs.Watch("/", func(e vfs.Event) {
		frame := map[string]interface{}{
			"type":      "fs",
			"kind":      string(e.Kind),
			"path":      e.Path,
			"node":      e.Node,
			"timestamp": time.Now().Unix(),
		}
		if e.OldPath != "" {
			frame["old_path"] = e.OldPath
		}
		h.forward(cl, frame)
	})
	if err == nil {
		cancels = append(cancels, watchCancel)
	}

	return func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

// forward enqueues a frame, disconnecting clients that stopped reading.
func (h *Handler) forward(cl *client, frame map[string]interface{}) {
	if cl.enqueue(frame) {
		return
	}
	h.logger.Warn("stream buffer full, dropping client",
		zap.String("remote", cl.conn.RemoteAddr().String()))
	cl.shutdown()
	cl.conn.Close()
}

// readLoop consumes client messages until the connection drops. The
// only inbound messages are keepalive pings.
func (h *Handler) readLoop(cl *client) {
	cl.conn.SetReadLimit(4096)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg struct {
			Type string `json:"type"`
		}
		if err := cl.conn.ReadJSON(&msg); err != nil {
			return
		}
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}

		switch msg.Type {
		case "ping":
			cl.enqueue(map[string]interface{}{"type": "pong", "timestamp": time.Now().Unix()})
		default:
			cl.enqueue(map[string]interface{}{
				"type":      "error",
				"message":   "unknown message type",
				"timestamp": time.Now().Unix(),
			})
		}
	}
}

// writePump owns all writes to the connection.
func (h *Handler) writePump(cl *client, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()

	for {
		select {
		case frame := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteJSON(frame); err != nil {
				cl.shutdown()
				cl.conn.Close()
				return
			}
			if h.metrics != nil {
				kind, _ := frame["type"].(string)
				h.metrics.RecordWSMessage("out", kind)
			}
		case <-ticker.C:
			if err := cl.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				cl.shutdown()
				cl.conn.Close()
				return
			}
		case <-cl.quit:
			cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
