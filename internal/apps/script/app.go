package script

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/sandbox"
	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/logging"
)

// Exported hook functions a script may define
const (
	hookLaunch     = "onLaunch"
	hookActivate   = "onActivate"
	hookDeactivate = "onDeactivate"
	hookTerminate  = "onTerminate"
	hookMenuAction = "onMenuAction"
	hookOpenFile   = "openFile"
)

var hookNames = []string{
	hookLaunch, hookActivate, hookDeactivate,
	hookTerminate, hookMenuAction, hookOpenFile,
}

// App is one running script instance. The VM belongs to a single
// goroutine; hooks and kernel callbacks enter it through the job
// queue, never directly.
type App struct {
	sb     *sandbox.Context
	vm     *goja.Runtime
	cfg    Config
	logger *logging.Logger

	mu      sync.Mutex
	pending []func()
	wake    chan struct{}
	quit    chan struct{}
	once    sync.Once

	// hooks is touched only on the VM goroutine
	hooks map[string]goja.Callable
}

// newApp runs the compiled entry in a fresh VM and binds its exported
// hooks. Failures stop the VM goroutine before returning.
func newApp(sb *sandbox.Context, prog *goja.Program, cfg Config, logger *logging.Logger) (*App, error) {
	a := &App{
		sb:     sb,
		vm:     goja.New(),
		cfg:    cfg,
		logger: logger.With(zap.String("app_id", sb.AppID())),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		hooks:  make(map[string]goja.Callable),
	}
	a.vm.SetMaxCallStackSize(cfg.MaxCallStack)
	a.vm.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))

	go a.loop()

	err := a.do(context.Background(), func() error {
		a.installGlobals()
		if _, err := a.vm.RunProgram(prog); err != nil {
			return err
		}
		a.bindHooks()
		return nil
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("script: run entry: %w", err)
	}
	if err := sb.OnDispose(func() error { a.close(); return nil }); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

// OnLaunch runs the script's onLaunch export, if any
func (a *App) OnLaunch(ctx context.Context) error {
	return a.call(ctx, hookLaunch)
}

// OnActivate runs the script's onActivate export, if any
func (a *App) OnActivate() error {
	return a.call(context.Background(), hookActivate)
}

// OnDeactivate runs the script's onDeactivate export, if any
func (a *App) OnDeactivate() error {
	return a.call(context.Background(), hookDeactivate)
}

// OnTerminate runs the script's onTerminate export, if any
func (a *App) OnTerminate() error {
	return a.call(context.Background(), hookTerminate)
}

// OnMenuAction forwards a menu action to the script
func (a *App) OnMenuAction(action string) error {
	return a.call(context.Background(), hookMenuAction, action)
}

// OpenFile forwards a file-open request to the script
func (a *App) OpenFile(ctx context.Context, path string) error {
	return a.call(ctx, hookOpenFile, path)
}

func (a *App) call(ctx context.Context, name string, args ...any) error {
	err := a.do(ctx, func() error {
		fn, ok := a.hooks[name]
		if !ok {
			return nil
		}
		vals := make([]goja.Value, len(args))
		for i, arg := range args {
			vals[i] = a.vm.ToValue(arg)
		}
		_, err := fn(goja.Undefined(), vals...)
		return err
	})
	if err != nil {
		return fmt.Errorf("script: %s: %w", name, err)
	}
	return nil
}

func (a *App) bindHooks() {
	for _, name := range hookNames {
		if fn, ok := goja.AssertFunction(a.vm.Get(name)); ok {
			a.hooks[name] = fn
		}
	}
}

// do runs fn on the VM goroutine and waits for its result. Must not be
// called from the VM goroutine itself.
func (a *App) do(ctx context.Context, fn func() error) error {
	res := make(chan error, 1)
	a.push(func() { res <- a.enter(ctx, fn) })
	select {
	case err := <-res:
		return err
	case <-a.quit:
		return errStopped
	}
}

// post schedules a kernel-originated callback on the VM goroutine
// without waiting. Failures are logged, never propagated.
func (a *App) post(kind string, fn func() error) {
	a.push(func() {
		if err := a.enter(context.Background(), fn); err != nil {
			a.logger.Warn("script callback failed",
				zap.String("kind", kind),
				zap.Error(err))
		}
	})
}

// push appends a job and wakes the loop. Never blocks, so a job may
// push follow-up jobs from inside the VM.
func (a *App) push(job func()) {
	a.mu.Lock()
	a.pending = append(a.pending, job)
	a.mu.Unlock()
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

func (a *App) loop() {
	for {
		a.mu.Lock()
		jobs := a.pending
		a.pending = nil
		a.mu.Unlock()
		for _, job := range jobs {
			job()
		}
		select {
		case <-a.wake:
		case <-a.quit:
			return
		}
	}
}

// enter executes fn with the timeout and cancellation interrupts armed
func (a *App) enter(ctx context.Context, fn func() error) error {
	finished := make(chan struct{})
	go func() {
		timer := time.NewTimer(a.cfg.Timeout)
		defer timer.Stop()
		select {
		case <-timer.C:
			a.vm.Interrupt(errTimeout)
		case <-ctx.Done():
			a.vm.Interrupt(ctx.Err())
		case <-a.quit:
			a.vm.Interrupt(errStopped)
		case <-finished:
		}
	}()
	err := fn()
	close(finished)
	a.vm.ClearInterrupt()
	return err
}

// close stops the VM goroutine and interrupts any script mid-run.
// Registered as the context's dispose cleanup; idempotent.
func (a *App) close() {
	a.once.Do(func() {
		close(a.quit)
		a.vm.Interrupt(errStopped)
	})
}
