package sandbox

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/service"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

// Config carries the kernel facilities a Context mediates access to
type Config struct {
	AppID    string
	TaskID   string
	Perms    types.Permissions
	Window   *types.WindowHint
	Bus      *events.Bus
	FS       *vfs.VFS
	Windows  *window.Manager
	Services *service.Registry
	Logger   *logging.Logger
}

// Context is the capability object handed to a running application.
// All methods are safe for concurrent use.
type Context struct {
	appID    string
	taskID   string
	perms    types.Permissions
	hint     *types.WindowHint
	bus      *events.Bus
	fs       *vfs.VFS
	windows  *window.Manager
	services *service.Registry
	logger   *logging.Logger

	mu        sync.Mutex
	disposed  bool
	timers    map[string]*time.Timer
	intervals map[string]chan struct{}
	subs      map[string]func()
	watches   map[string]func()
	windowIDs map[string]struct{}
	cleanups  []func() error
}

// New creates a Context for the given app. A nil logger falls back to a
// no-op logger.
func New(cfg Config) *Context {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Context{
		appID:     cfg.AppID,
		taskID:    cfg.TaskID,
		perms:     cfg.Perms,
		hint:      cfg.Window,
		bus:       cfg.Bus,
		fs:        cfg.FS,
		windows:   cfg.Windows,
		services:  cfg.Services,
		logger:    log.Named("sandbox").With(zap.String("app_id", cfg.AppID)),
		timers:    make(map[string]*time.Timer),
		intervals: make(map[string]chan struct{}),
		subs:      make(map[string]func()),
		watches:   make(map[string]func()),
		windowIDs: make(map[string]struct{}),
	}
}

// AppID returns the owning application's ID
func (c *Context) AppID() string { return c.appID }

// TaskID returns the task this context belongs to
func (c *Context) TaskID() string { return c.taskID }

// Permissions returns the manifest grants the context enforces
func (c *Context) Permissions() types.Permissions { return c.perms }

// Disposed reports whether Dispose has run
func (c *Context) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

func (c *Context) live() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	return nil
}

// Subscribe registers a bus handler tied to this context's lifetime.
// The returned ID cancels it via Unsubscribe; Dispose cancels it too.
func (c *Context) Subscribe(topic string, fn events.Handler) (string, error) {
	return c.subscribe(topic, fn, false)
}

// SubscribeOnce is Subscribe for a single delivery
func (c *Context) SubscribeOnce(topic string, fn events.Handler) (string, error) {
	return c.subscribe(topic, fn, true)
}

func (c *Context) subscribe(topic string, fn events.Handler, once bool) (string, error) {
	if err := c.live(); err != nil {
		return "", err
	}
	wrapped := func(e events.Event) { c.safely("handler", func() { fn(e) }) }
	var unsub func()
	if once {
		unsub = c.bus.SubscribeOnce(topic, wrapped)
	} else {
		unsub = c.bus.Subscribe(topic, wrapped)
	}
	sid := id.NewSubscriptionID().String()
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		unsub()
		return "", ErrDisposed
	}
	c.subs[sid] = unsub
	c.mu.Unlock()
	return sid, nil
}

// Unsubscribe cancels a subscription. Unknown IDs are a no-op.
func (c *Context) Unsubscribe(subID string) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return ErrDisposed
	}
	unsub, ok := c.subs[subID]
	delete(c.subs, subID)
	c.mu.Unlock()
	if ok {
		unsub()
	}
	return nil
}

// Publish emits an event on the global bus
func (c *Context) Publish(topic string, payload any) error {
	if err := c.live(); err != nil {
		return err
	}
	c.bus.Publish(topic, payload)
	return nil
}

// CallService invokes "service.tool" if the manifest allow-lists the
// service. The app's identity travels with the call.
func (c *Context) CallService(ctx context.Context, toolID string, params map[string]interface{}) (*types.Result, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	serviceID := toolID
	if i := strings.Index(toolID, "."); i >= 0 {
		serviceID = toolID[:i]
	}
	if !c.perms.AllowsService(serviceID) {
		return nil, &PermissionError{AppID: c.appID, Resource: serviceID, Action: "service"}
	}
	appCtx := &types.Context{AppID: &c.appID, TaskID: &c.taskID}
	return c.services.Execute(ctx, toolID, params, appCtx)
}

// OpenWindow opens a window owned by this app. The manifest window
// hint fills in size and resizability when the caller leaves them
// unset.
func (c *Context) OpenWindow(opts window.Options) (window.Window, error) {
	if err := c.live(); err != nil {
		return window.Window{}, err
	}
	c.applyWindowHint(&opts)
	w := c.windows.Open(c.appID, opts)
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		c.windows.Close(w.ID)
		return window.Window{}, ErrDisposed
	}
	c.windowIDs[w.ID] = struct{}{}
	c.mu.Unlock()
	return w, nil
}

func (c *Context) applyWindowHint(opts *window.Options) {
	h := c.hint
	if h == nil {
		return
	}
	if opts.Bounds == nil && opts.Size == nil && h.Width > 0 && h.Height > 0 {
		opts.Size = &window.Size{Width: h.Width, Height: h.Height}
	}
	if opts.Resizable == nil && h.Resizable != nil {
		opts.Resizable = h.Resizable
	}
}

// CloseWindow closes one of this app's windows. Closing a window owned
// by another app fails with a PermissionError.
func (c *Context) CloseWindow(windowID string) error {
	if err := c.ownsWindow(windowID); err != nil {
		return err
	}
	c.windows.Close(windowID)
	c.mu.Lock()
	delete(c.windowIDs, windowID)
	c.mu.Unlock()
	return nil
}

// FocusWindow focuses one of this app's windows
func (c *Context) FocusWindow(windowID string) error {
	if err := c.ownsWindow(windowID); err != nil {
		return err
	}
	c.windows.Focus(windowID)
	return nil
}

// Windows lists this app's windows
func (c *Context) Windows() ([]window.Window, error) {
	if err := c.live(); err != nil {
		return nil, err
	}
	return c.windows.ForApp(c.appID), nil
}

func (c *Context) ownsWindow(windowID string) error {
	if err := c.live(); err != nil {
		return err
	}
	if w, ok := c.windows.Get(windowID); ok && w.AppID != c.appID {
		return &PermissionError{AppID: c.appID, Resource: windowID, Action: "window"}
	}
	return nil
}

// OnDispose registers a cleanup callback run during Dispose. Callbacks
// run in registration order; a failing or panicking callback never
// prevents the rest from running.
func (c *Context) OnDispose(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	c.cleanups = append(c.cleanups, fn)
	return nil
}

// Dispose releases everything the app acquired through the context:
// timers and intervals stop, subscriptions and watches drop, owned
// windows close, cleanup callbacks run. Safe to call more than once.
func (c *Context) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	timers := c.timers
	intervals := c.intervals
	subs := c.subs
	watches := c.watches
	windowIDs := c.windowIDs
	cleanups := c.cleanups
	c.timers, c.intervals, c.subs, c.watches, c.windowIDs, c.cleanups = nil, nil, nil, nil, nil, nil
	c.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, stop := range intervals {
		close(stop)
	}
	for _, unsub := range subs {
		unsub()
	}
	for _, cancel := range watches {
		cancel()
	}
	closed := 0
	for wid := range windowIDs {
		if c.windows.Close(wid) {
			closed++
		}
	}
	for _, fn := range cleanups {
		c.runCleanup(fn)
	}

	c.logger.Info("context disposed",
		zap.Int("timers", len(timers)),
		zap.Int("intervals", len(intervals)),
		zap.Int("subscriptions", len(subs)),
		zap.Int("watches", len(watches)),
		zap.Int("windows_closed", closed))
}

func (c *Context) runCleanup(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cleanup callback panicked", zap.Any("panic", r))
		}
	}()
	if err := fn(); err != nil {
		c.logger.Warn("cleanup callback failed", zap.Error(err))
	}
}

// safely runs an app-supplied callback, containing panics
func (c *Context) safely(kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("callback panicked",
				zap.String("kind", kind),
				zap.Any("panic", r))
		}
	}()
	fn()
}
