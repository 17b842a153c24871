package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/registry"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/service"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/task"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/types"
)

var (
	// ErrNotRunning is returned for task IDs without a live running app
	ErrNotRunning = errors.New("app: task not running")
	// ErrNoAssociation is returned when no registered app opens a path
	ErrNoAssociation = errors.New("app: no association for path")
)

// Running describes one live application instance
type Running struct {
	AppID      string         `json:"app_id"`
	TaskID     string         `json:"task_id"`
	Manifest   types.Manifest `json:"manifest"`
	Foreground bool           `json:"foreground"`
	LaunchedAt time.Time      `json:"launched_at"`
}

// runningApp is the internal record behind a Running snapshot
type runningApp struct {
	manifest    types.Manifest
	taskID      string
	sb          *sandbox.Context
	instance    registry.Instance
	launchedAt  time.Time
	terminating bool
}

// LaunchOptions tunes a launch
type LaunchOptions struct {
	// OpenPath asks the new instance to open a file right after launch.
	// Failures are logged, never abort the launch.
	OpenPath string
}

// Config carries the Runtime's collaborators
type Config struct {
	Registry *registry.Registry
	Tasks    *task.Manager
	Windows  *window.Manager
	Bus      *events.Bus
	FS       *vfs.VFS
	Services *service.Registry
	Logger   *logging.Logger
	Metrics  *monitoring.Metrics
}

// Runtime launches, activates, and terminates applications. Safe for
// concurrent use; lifecycle hooks always run outside the Runtime's
// lock so app code may call back into the kernel.
type Runtime struct {
	reg      *registry.Registry
	tasks    *task.Manager
	windows  *window.Manager
	bus      *events.Bus
	fs       *vfs.VFS
	services *service.Registry
	logger   *logging.Logger
	metrics  *monitoring.Metrics

	mu         sync.Mutex
	running    map[string]*runningApp // by task ID
	order      []string               // task IDs in launch order
	foreground string                 // task ID, "" when no app is foreground
}

// New creates a Runtime
func New(cfg Config) *Runtime {
	log := cfg.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Runtime{
		reg:      cfg.Registry,
		tasks:    cfg.Tasks,
		windows:  cfg.Windows,
		bus:      cfg.Bus,
		fs:       cfg.FS,
		services: cfg.Services,
		logger:   log.Named("app"),
		metrics:  cfg.Metrics,
		running:  make(map[string]*runningApp),
	}
}

// Launch starts a registered app: spawn task, build context, run the
// factory and OnLaunch, then open the optional file, bring the app to
// the foreground, and publish app.launched. Factory or OnLaunch
// failure rolls everything back and returns the cause.
func (r *Runtime) Launch(ctx context.Context, appID string, opts LaunchOptions) (Running, error) {
	entry, ok := r.reg.Get(appID)
	if !ok {
		return Running{}, fmt.Errorf("%w: %s", registry.ErrNotRegistered, appID)
	}

	t := r.tasks.Spawn(appID)
	sb := sandbox.New(sandbox.Config{
		AppID:    appID,
		TaskID:   t.ID,
		Perms:    entry.Manifest.Permissions,
		Window:   entry.Manifest.Window,
		Bus:      r.bus,
		FS:       r.fs,
		Windows:  r.windows,
		Services: r.services,
		Logger:   r.logger,
	})

	rollback := func(cause error) (Running, error) {
		sb.Dispose()
		r.tasks.Kill(t.ID)
		r.logger.Warn("launch rolled back",
			zap.String("app_id", appID),
			zap.String("task_id", t.ID),
			zap.Error(cause))
		return Running{}, cause
	}

	instance, err := r.build(entry.Factory, sb)
	if err != nil {
		return rollback(fmt.Errorf("app: factory for %s: %w", appID, err))
	}
	if l, ok := instance.(registry.Launcher); ok {
		if err := r.runLaunchHook(ctx, l); err != nil {
			return rollback(fmt.Errorf("app: %s onLaunch: %w", appID, err))
		}
	}

	ra := &runningApp{
		manifest:   entry.Manifest,
		taskID:     t.ID,
		sb:         sb,
		instance:   instance,
		launchedAt: time.Now(),
	}
	r.mu.Lock()
	r.running[t.ID] = ra
	r.order = append(r.order, t.ID)
	count := len(r.running)
	r.mu.Unlock()

	r.tasks.Resume(t.ID)
	if r.metrics != nil {
		r.metrics.RecordAppLaunch()
		r.metrics.SetAppsRunning(count)
	}
	r.logger.Info("app launched",
		zap.String("app_id", appID),
		zap.String("task_id", t.ID))

	if opts.OpenPath != "" {
		if opener, ok := instance.(registry.FileOpener); ok {
			if err := opener.OpenFile(ctx, opts.OpenPath); err != nil {
				r.logger.Warn("openFile after launch failed",
					zap.String("app_id", appID),
					zap.String("path", opts.OpenPath),
					zap.Error(err))
			}
		}
	}

	if err := r.Activate(t.ID); err != nil {
		// Can only happen if the app terminated itself during launch
		r.logger.Warn("activation after launch failed",
			zap.String("task_id", t.ID), zap.Error(err))
	}
	if r.bus != nil {
		r.bus.Publish(types.EventAppLaunched, types.AppEvent{AppID: appID, TaskID: t.ID})
	}
	return r.snapshot(ra), nil
}

// build runs the factory with panic containment
func (r *Runtime) build(f registry.Factory, sb *sandbox.Context) (instance registry.Instance, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("factory panicked: %v", p)
		}
	}()
	return f(sb)
}

// runLaunchHook runs OnLaunch with panic containment. Unlike the other
// hooks, its failure propagates: the launch aborts.
func (r *Runtime) runLaunchHook(ctx context.Context, l registry.Launcher) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("onLaunch panicked: %v", p)
		}
	}()
	return l.OnLaunch(ctx)
}

// Terminate stops a running app: OnTerminate (logged, not propagated),
// context disposal, task kill, record removal, and foreground hand-off
// to the most recently launched remaining app.
func (r *Runtime) Terminate(taskID string) error {
	r.mu.Lock()
	ra, ok := r.running[taskID]
	if !ok || ra.terminating {
		r.mu.Unlock()
		return ErrNotRunning
	}
	ra.terminating = true
	wasForeground := r.foreground == taskID
	if wasForeground {
		r.foreground = ""
	}
	r.mu.Unlock()

	if t, ok := ra.instance.(registry.Terminator); ok {
		r.isolate("onTerminate", ra.manifest.ID, t.OnTerminate)
	}
	ra.sb.Dispose()
	r.tasks.Kill(taskID)

	r.mu.Lock()
	delete(r.running, taskID)
	for i, id := range r.order {
		if id == taskID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	var next string
	if wasForeground && len(r.order) > 0 {
		next = r.order[len(r.order)-1]
	}
	count := len(r.running)
	r.mu.Unlock()

	if r.metrics != nil {
		r.metrics.RecordAppTerminate()
		r.metrics.SetAppsRunning(count)
	}
	r.logger.Info("app terminated",
		zap.String("app_id", ra.manifest.ID),
		zap.String("task_id", taskID))
	if r.bus != nil {
		r.bus.Publish(types.EventAppTerminated, types.AppEvent{AppID: ra.manifest.ID, TaskID: taskID})
	}

	if next != "" {
		if err := r.Activate(next); err != nil {
			r.logger.Warn("foreground hand-off failed",
				zap.String("task_id", next), zap.Error(err))
		}
	}
	return nil
}

// TerminateApp terminates every running instance of an app. Returns
// how many instances were stopped.
func (r *Runtime) TerminateApp(appID string) int {
	r.mu.Lock()
	var ids []string
	for id, ra := range r.running {
		if ra.manifest.ID == appID && !ra.terminating {
			ids = append(ids, id)
		}
	}
	r.mu.Unlock()

	n := 0
	for _, id := range ids {
		if r.Terminate(id) == nil {
			n++
		}
	}
	return n
}

// Activate brings a running app to the foreground. The previous
// foreground instance gets OnDeactivate, the new one OnActivate; both
// are error-isolated. Publishes app.activated.
func (r *Runtime) Activate(taskID string) error {
	r.mu.Lock()
	target, ok := r.running[taskID]
	if !ok || target.terminating {
		r.mu.Unlock()
		return ErrNotRunning
	}
	if r.foreground == taskID {
		r.mu.Unlock()
		return nil
	}
	prev := r.running[r.foreground]
	r.foreground = taskID
	r.mu.Unlock()

	if prev != nil {
		if d, ok := prev.instance.(registry.Deactivator); ok {
			r.isolate("onDeactivate", prev.manifest.ID, d.OnDeactivate)
		}
	}
	if a, ok := target.instance.(registry.Activator); ok {
		r.isolate("onActivate", target.manifest.ID, a.OnActivate)
	}
	if r.bus != nil {
		r.bus.Publish(types.EventAppActivated, types.AppEvent{AppID: target.manifest.ID, TaskID: taskID})
	}
	return nil
}

// MenuAction dispatches a menu action to a running app. Unknown
// actions are the instance's concern; apps without a MenuHandler
// ignore actions silently.
func (r *Runtime) MenuAction(taskID, action string) error {
	r.mu.Lock()
	ra, ok := r.running[taskID]
	if !ok || ra.terminating {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.mu.Unlock()

	if h, ok := ra.instance.(registry.MenuHandler); ok {
		return h.OnMenuAction(action)
	}
	return nil
}

// OpenPath opens a file with its associated app: an already-running
// instance is activated and asked to open the file; otherwise the app
// is launched with the file as its open argument.
func (r *Runtime) OpenPath(ctx context.Context, p string) (Running, error) {
	entry, ok := r.reg.ForPath(p)
	if !ok {
		return Running{}, fmt.Errorf("%w: %s", ErrNoAssociation, p)
	}
	appID := entry.Manifest.ID

	r.mu.Lock()
	var ra *runningApp
	for i := len(r.order) - 1; i >= 0; i-- {
		if cand := r.running[r.order[i]]; cand != nil && cand.manifest.ID == appID && !cand.terminating {
			ra = cand
			break
		}
	}
	r.mu.Unlock()

	if ra == nil {
		return r.Launch(ctx, appID, LaunchOptions{OpenPath: p})
	}

	if err := r.Activate(ra.taskID); err != nil {
		return Running{}, err
	}
	if opener, ok := ra.instance.(registry.FileOpener); ok {
		if err := opener.OpenFile(ctx, p); err != nil {
			return Running{}, fmt.Errorf("app: %s openFile: %w", appID, err)
		}
	}
	return r.snapshot(ra), nil
}

// Get returns the running app for a task ID
func (r *Runtime) Get(taskID string) (Running, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ra, ok := r.running[taskID]
	if !ok || ra.terminating {
		return Running{}, false
	}
	return r.snapshotLocked(ra), true
}

// List returns all running apps in launch order
func (r *Runtime) List() []Running {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Running, 0, len(r.running))
	for _, id := range r.order {
		if ra := r.running[id]; ra != nil && !ra.terminating {
			out = append(out, r.snapshotLocked(ra))
		}
	}
	return out
}

// ForApp returns the running instances of one app in launch order
func (r *Runtime) ForApp(appID string) []Running {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Running
	for _, id := range r.order {
		if ra := r.running[id]; ra != nil && ra.manifest.ID == appID && !ra.terminating {
			out = append(out, r.snapshotLocked(ra))
		}
	}
	return out
}

// Foreground returns the current foreground app
func (r *Runtime) Foreground() (Running, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ra, ok := r.running[r.foreground]
	if !ok || ra.terminating {
		return Running{}, false
	}
	return r.snapshotLocked(ra), true
}

// Count returns the number of running apps
func (r *Runtime) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ra := range r.running {
		if !ra.terminating {
			n++
		}
	}
	return n
}

// Shutdown terminates every running app, most recent first
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	r.mu.Unlock()

	for i := len(ids) - 1; i >= 0; i-- {
		if err := r.Terminate(ids[i]); err != nil && !errors.Is(err, ErrNotRunning) {
			r.logger.Warn("shutdown terminate failed",
				zap.String("task_id", ids[i]), zap.Error(err))
		}
	}
}

func (r *Runtime) snapshot(ra *runningApp) Running {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked(ra)
}

func (r *Runtime) snapshotLocked(ra *runningApp) Running {
	return Running{
		AppID:      ra.manifest.ID,
		TaskID:     ra.taskID,
		Manifest:   ra.manifest,
		Foreground: r.foreground == ra.taskID,
		LaunchedAt: ra.launchedAt,
	}
}

// isolate runs a lifecycle hook whose failure must never block the
// surrounding sequence
func (r *Runtime) isolate(hook, appID string, fn func() error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("lifecycle hook panicked",
				zap.String("hook", hook),
				zap.String("app_id", appID),
				zap.Any("panic", p))
		}
	}()
	if err := fn(); err != nil {
		r.logger.Warn("lifecycle hook failed",
			zap.String("hook", hook),
			zap.String("app_id", appID),
			zap.Error(err))
	}
}
