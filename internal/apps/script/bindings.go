package script

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/events"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/vfs"
	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
)

// installGlobals wires the VM's global scope: Node-isms are scrubbed,
// console goes to the kernel logger, and the os object exposes the
// capability context. Runs on the VM goroutine before the entry.
func (a *App) installGlobals() {
	a.vm.Set("require", goja.Undefined())
	a.vm.Set("process", goja.Undefined())
	a.vm.Set("module", goja.Undefined())
	a.vm.Set("exports", goja.Undefined())

	a.installConsole()
	a.installOS()
}

func (a *App) installConsole() {
	console := a.vm.NewObject()
	console.Set("log", a.consoleFunc(a.logger.Info))
	console.Set("info", a.consoleFunc(a.logger.Info))
	console.Set("warn", a.consoleFunc(a.logger.Warn))
	console.Set("error", a.consoleFunc(a.logger.Error))
	console.Set("debug", a.consoleFunc(a.logger.Debug))
	a.vm.Set("console", console)
}

func (a *App) consoleFunc(emit func(string, ...zap.Field)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		emit(strings.Join(parts, " "))
		return goja.Undefined()
	}
}

func (a *App) installOS() {
	os := a.vm.NewObject()
	os.Set("appId", a.sb.AppID())
	os.Set("taskId", a.sb.TaskID())
	os.Set("log", a.consoleFunc(a.logger.Info))

	os.Set("setTimeout", a.jsSetTimeout)
	os.Set("setInterval", a.jsSetInterval)
	os.Set("requestFrame", a.jsRequestFrame)
	os.Set("requestIdle", a.jsRequestIdle)
	os.Set("cancel", a.unary(func(id string) (any, error) {
		return nil, a.sb.Cancel(id)
	}))

	os.Set("publish", a.jsPublish)
	os.Set("subscribe", a.jsSubscribe)
	os.Set("subscribeOnce", a.jsSubscribeOnce)
	os.Set("unsubscribe", a.unary(func(id string) (any, error) {
		return nil, a.sb.Unsubscribe(id)
	}))

	os.Set("fs", a.fsObject())
	os.Set("windows", a.windowsObject())
	os.Set("call", a.jsCallService)

	a.vm.Set("os", os)
}

func (a *App) fsObject() *goja.Object {
	fs := a.vm.NewObject()
	fs.Set("readText", a.unary(func(p string) (any, error) {
		return a.sb.ReadTextFile(context.Background(), p)
	}))
	fs.Set("writeText", a.binary(func(p, text string) (any, error) {
		return a.sb.WriteTextFile(context.Background(), p, text)
	}))
	fs.Set("list", a.unary(func(p string) (any, error) {
		return a.sb.ReadDir(context.Background(), p)
	}))
	fs.Set("mkdir", a.unary(func(p string) (any, error) {
		return nil, a.sb.Mkdir(context.Background(), p)
	}))
	fs.Set("rmdir", a.unary(func(p string) (any, error) {
		return nil, a.sb.Rmdir(context.Background(), p)
	}))
	fs.Set("remove", a.unary(func(p string) (any, error) {
		return nil, a.sb.DeleteFile(context.Background(), p)
	}))
	fs.Set("stat", a.unary(func(p string) (any, error) {
		return a.sb.Stat(context.Background(), p)
	}))
	fs.Set("exists", a.unary(func(p string) (any, error) {
		return a.sb.Exists(context.Background(), p)
	}))
	fs.Set("rename", a.binary(func(oldPath, newPath string) (any, error) {
		return nil, a.sb.Rename(context.Background(), oldPath, newPath)
	}))
	fs.Set("copy", a.binary(func(src, dst string) (any, error) {
		return a.sb.Copy(context.Background(), src, dst)
	}))
	fs.Set("glob", a.unary(func(pattern string) (any, error) {
		return a.sb.Glob(context.Background(), pattern)
	}))
	fs.Set("watch", a.jsWatch)
	fs.Set("unwatch", a.unary(func(id string) (any, error) {
		return nil, a.sb.Unwatch(id)
	}))
	return fs
}

func (a *App) windowsObject() *goja.Object {
	w := a.vm.NewObject()
	w.Set("open", a.jsOpenWindow)
	w.Set("close", a.unary(func(id string) (any, error) {
		return nil, a.sb.CloseWindow(id)
	}))
	w.Set("focus", a.unary(func(id string) (any, error) {
		return nil, a.sb.FocusWindow(id)
	}))
	w.Set("list", func(call goja.FunctionCall) goja.Value {
		wins, err := a.sb.Windows()
		if err != nil {
			a.throw(err)
		}
		return a.vm.ToValue(wins)
	})
	return w
}

func (a *App) jsSetTimeout(call goja.FunctionCall) goja.Value {
	fn := a.callback(call, 0)
	d := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	id, err := a.sb.SetTimeout(d, a.scheduled("setTimeout", fn))
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

func (a *App) jsSetInterval(call goja.FunctionCall) goja.Value {
	fn := a.callback(call, 0)
	d := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond
	id, err := a.sb.SetInterval(d, a.scheduled("setInterval", fn))
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

func (a *App) jsRequestFrame(call goja.FunctionCall) goja.Value {
	fn := a.callback(call, 0)
	id, err := a.sb.RequestFrame(a.scheduled("requestFrame", fn))
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

func (a *App) jsRequestIdle(call goja.FunctionCall) goja.Value {
	fn := a.callback(call, 0)
	id, err := a.sb.RequestIdle(a.scheduled("requestIdle", fn))
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

// scheduled adapts a JS callback into the Go func the context's timers
// run. The kernel fires it on its own goroutine; it posts the actual
// invocation back onto the VM queue.
func (a *App) scheduled(kind string, fn goja.Callable) func() {
	return func() {
		a.post(kind, func() error {
			_, err := fn(goja.Undefined())
			return err
		})
	}
}

func (a *App) jsPublish(call goja.FunctionCall) goja.Value {
	topic := call.Argument(0).String()
	payload := call.Argument(1).Export()
	if err := a.sb.Publish(topic, payload); err != nil {
		a.throw(err)
	}
	return goja.Undefined()
}

func (a *App) jsSubscribe(call goja.FunctionCall) goja.Value {
	return a.subscribeJS(call, false)
}

func (a *App) jsSubscribeOnce(call goja.FunctionCall) goja.Value {
	return a.subscribeJS(call, true)
}

func (a *App) subscribeJS(call goja.FunctionCall, once bool) goja.Value {
	topic := call.Argument(0).String()
	fn := a.callback(call, 1)
	handler := func(e events.Event) {
		a.post("subscription", func() error {
			_, err := fn(goja.Undefined(), a.vm.ToValue(e))
			return err
		})
	}
	var (
		id  string
		err error
	)
	if once {
		id, err = a.sb.SubscribeOnce(topic, handler)
	} else {
		id, err = a.sb.Subscribe(topic, handler)
	}
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

func (a *App) jsWatch(call goja.FunctionCall) goja.Value {
	p := call.Argument(0).String()
	fn := a.callback(call, 1)
	id, err := a.sb.Watch(p, func(e vfs.Event) {
		a.post("watch", func() error {
			_, err := fn(goja.Undefined(), a.vm.ToValue(e))
			return err
		})
	})
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(id)
}

func (a *App) jsOpenWindow(call goja.FunctionCall) goja.Value {
	var opts window.Options
	if arg := call.Argument(0); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
		var raw struct {
			Title     string `json:"title"`
			X         *int   `json:"x"`
			Y         *int   `json:"y"`
			Width     *int   `json:"width"`
			Height    *int   `json:"height"`
			Resizable *bool  `json:"resizable"`
		}
		if err := a.vm.ExportTo(arg, &raw); err != nil {
			a.throw(fmt.Errorf("script: window options: %w", err))
		}
		opts.Title = raw.Title
		opts.Resizable = raw.Resizable
		switch {
		case raw.X != nil && raw.Y != nil && raw.Width != nil && raw.Height != nil:
			opts.Bounds = &window.Bounds{X: *raw.X, Y: *raw.Y, Width: *raw.Width, Height: *raw.Height}
		case raw.Width != nil && raw.Height != nil:
			opts.Size = &window.Size{Width: *raw.Width, Height: *raw.Height}
		}
	}
	win, err := a.sb.OpenWindow(opts)
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(win)
}

func (a *App) jsCallService(call goja.FunctionCall) goja.Value {
	tool := call.Argument(0).String()
	var params map[string]interface{}
	if arg := call.Argument(1); !goja.IsUndefined(arg) && !goja.IsNull(arg) {
		if err := a.vm.ExportTo(arg, &params); err != nil {
			a.throw(fmt.Errorf("script: service params: %w", err))
		}
	}
	res, err := a.sb.CallService(context.Background(), tool, params)
	if err != nil {
		a.throw(err)
	}
	return a.vm.ToValue(res)
}

// callback extracts argument i as a function or throws a TypeError
func (a *App) callback(call goja.FunctionCall, i int) goja.Callable {
	fn, ok := goja.AssertFunction(call.Argument(i))
	if !ok {
		panic(a.vm.NewTypeError("argument %d must be a function", i))
	}
	return fn
}

// unary bridges a one-string-argument kernel call into JS
func (a *App) unary(fn func(string) (any, error)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		out, err := fn(call.Argument(0).String())
		if err != nil {
			a.throw(err)
		}
		if out == nil {
			return goja.Undefined()
		}
		return a.vm.ToValue(out)
	}
}

// binary bridges a two-string-argument kernel call into JS
func (a *App) binary(fn func(string, string) (any, error)) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		out, err := fn(call.Argument(0).String(), call.Argument(1).String())
		if err != nil {
			a.throw(err)
		}
		if out == nil {
			return goja.Undefined()
		}
		return a.vm.ToValue(out)
	}
}

// throw surfaces a kernel error as a JS exception
func (a *App) throw(err error) {
	panic(a.vm.NewGoError(err))
}
