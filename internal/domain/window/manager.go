package window

import (
	"sync"
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
)

// State represents window presentation state
type State string

const (
	StateNormal    State = "normal"
	StateMinimized State = "minimized"
	StateMaximized State = "maximized"
	StateCollapsed State = "collapsed"
)

// Cascade placement for windows opened without explicit bounds.
const (
	defaultWidth  = 600
	defaultHeight = 440
	cascadeOrigin = 44
	cascadeStep   = 26
	cascadeWrap   = 8
)

// Bounds is a window's position and size on the desktop
type Bounds struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Size is a width/height pair
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Window represents an open window
type Window struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	Title     string    `json:"title"`
	Bounds    Bounds    `json:"bounds"`
	State     State     `json:"state"`
	Focused   bool      `json:"focused"`
	Resizable bool      `json:"resizable"`
	MinSize   *Size     `json:"min_size,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Options controls window creation. A nil Bounds selects cascading
// placement; Size then overrides the default dimensions.
type Options struct {
	Title     string
	Bounds    *Bounds
	Size      *Size
	Resizable *bool
	MinSize   *Size
}

// ChangeKind identifies what a window mutation did
type ChangeKind string

const (
	ChangeOpened       ChangeKind = "opened"
	ChangeClosed       ChangeKind = "closed"
	ChangeFocused      ChangeKind = "focused"
	ChangeBlurred      ChangeKind = "blurred"
	ChangeMoved        ChangeKind = "moved"
	ChangeResized      ChangeKind = "resized"
	ChangeStateChanged ChangeKind = "stateChanged"
)

// Change describes one window mutation. Window is a snapshot taken
// after the mutation (for ChangeClosed, the final record).
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Window Window     `json:"window"`
}

// Listener observes window changes
type Listener func(Change)

type listenerReg struct {
	fn      Listener
	removed bool
}

// Manager owns all window records for one desktop session
type Manager struct {
	mu        sync.RWMutex
	windows   map[string]*Window
	order     []string // back to front; the last element is the front
	cascade   int
	listeners []*listenerReg
	metrics   *monitoring.Metrics
}

// NewManager creates a window manager
func NewManager() *Manager {
	return &Manager{
		windows: make(map[string]*Window),
	}
}

// WithMetrics attaches a metrics collector
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Open creates a window for the given app and focuses it
func (m *Manager) Open(appID string, opts Options) Window {
	m.mu.Lock()

	w := &Window{
		ID:        id.NewWindowID().String(),
		AppID:     appID,
		Title:     opts.Title,
		State:     StateNormal,
		Resizable: true,
		CreatedAt: time.Now(),
	}
	if opts.Resizable != nil {
		w.Resizable = *opts.Resizable
	}
	if opts.MinSize != nil {
		ms := *opts.MinSize
		w.MinSize = &ms
	}

	if opts.Bounds != nil {
		w.Bounds = *opts.Bounds
	} else {
		offset := cascadeOrigin + (m.cascade%cascadeWrap)*cascadeStep
		m.cascade++
		w.Bounds = Bounds{X: offset, Y: offset, Width: defaultWidth, Height: defaultHeight}
		if opts.Size != nil {
			w.Bounds.Width = opts.Size.Width
			w.Bounds.Height = opts.Size.Height
		}
	}
	m.clampToMin(w)

	changes := make([]Change, 0, 3)
	changes = append(changes, Change{Kind: ChangeOpened, Window: *w})
	if prev := m.focusedLocked(); prev != nil {
		prev.Focused = false
		changes = append(changes, Change{Kind: ChangeBlurred, Window: *prev})
	}
	w.Focused = true
	changes = append(changes, Change{Kind: ChangeFocused, Window: *w})

	m.windows[w.ID] = w
	m.order = append(m.order, w.ID)
	snapshot := *w
	listeners := m.snapshotListeners()
	open := len(m.windows)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp("open")
		m.metrics.SetWindowsOpen(open)
	}
	m.notify(listeners, changes)
	return snapshot
}

// Close removes a window. If it was focused, focus transfers to the
// next-topmost remaining window.
func (m *Manager) Close(windowID string) bool {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok {
		m.mu.Unlock()
		return false
	}

	wasFocused := w.Focused
	delete(m.windows, windowID)
	m.removeFromOrder(windowID)

	changes := []Change{{Kind: ChangeClosed, Window: *w}}
	if wasFocused {
		if next := m.frontLocked(); next != nil {
			next.Focused = true
			changes = append(changes, Change{Kind: ChangeFocused, Window: *next})
		}
	}
	listeners := m.snapshotListeners()
	open := len(m.windows)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp("close")
		m.metrics.SetWindowsOpen(open)
	}
	m.notify(listeners, changes)
	return true
}

// CloseAll closes every window owned by an app and returns the count
func (m *Manager) CloseAll(appID string) int {
	m.mu.RLock()
	ids := make([]string, 0)
	for _, wid := range m.order {
		if m.windows[wid].AppID == appID {
			ids = append(ids, wid)
		}
	}
	m.mu.RUnlock()

	closed := 0
	for _, wid := range ids {
		if m.Close(wid) {
			closed++
		}
	}
	return closed
}

// Focus brings a window to the front and gives it focus
func (m *Manager) Focus(windowID string) bool {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if w.Focused {
		m.mu.Unlock()
		return true
	}

	changes := make([]Change, 0, 2)
	if prev := m.focusedLocked(); prev != nil {
		prev.Focused = false
		changes = append(changes, Change{Kind: ChangeBlurred, Window: *prev})
	}
	m.removeFromOrder(windowID)
	m.order = append(m.order, windowID)
	w.Focused = true
	changes = append(changes, Change{Kind: ChangeFocused, Window: *w})

	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp("focus")
	}
	m.notify(listeners, changes)
	return true
}

// Minimize sets a window to the minimized state
func (m *Manager) Minimize(windowID string) bool {
	return m.setState(windowID, StateMinimized)
}

// Maximize sets a window to the maximized state
func (m *Manager) Maximize(windowID string) bool {
	return m.setState(windowID, StateMaximized)
}

// Collapse shades a window to its title bar
func (m *Manager) Collapse(windowID string) bool {
	return m.setState(windowID, StateCollapsed)
}

// Restore returns a window to the normal state
func (m *Manager) Restore(windowID string) bool {
	return m.setState(windowID, StateNormal)
}

func (m *Manager) setState(windowID string, state State) bool {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	if w.State == state {
		m.mu.Unlock()
		return true
	}
	w.State = state
	snapshot := *w
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp(string(state))
	}
	m.notify(listeners, []Change{{Kind: ChangeStateChanged, Window: snapshot}})
	return true
}

// Move repositions a window
func (m *Manager) Move(windowID string, x, y int) bool {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	w.Bounds.X = x
	w.Bounds.Y = y
	snapshot := *w
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp("move")
	}
	m.notify(listeners, []Change{{Kind: ChangeMoved, Window: snapshot}})
	return true
}

// Resize changes a window's dimensions, clamped to its minimum size.
// Resizing a non-resizable window is a no-op.
func (m *Manager) Resize(windowID string, width, height int) bool {
	m.mu.Lock()
	w, ok := m.windows[windowID]
	if !ok || !w.Resizable {
		m.mu.Unlock()
		return false
	}
	w.Bounds.Width = width
	w.Bounds.Height = height
	m.clampToMin(w)
	snapshot := *w
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordWindowOp("resize")
	}
	m.notify(listeners, []Change{{Kind: ChangeResized, Window: snapshot}})
	return true
}

// Get returns a window by ID
func (m *Manager) Get(windowID string) (Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.windows[windowID]
	if !ok {
		return Window{}, false
	}
	return *w, true
}

// List returns all windows in z-order, back to front
func (m *Manager) List() []Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Window, 0, len(m.order))
	for _, wid := range m.order {
		out = append(out, *m.windows[wid])
	}
	return out
}

// ForApp returns all windows owned by an app in z-order
func (m *Manager) ForApp(appID string) []Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Window, 0)
	for _, wid := range m.order {
		if w := m.windows[wid]; w.AppID == appID {
			out = append(out, *w)
		}
	}
	return out
}

// Focused returns the currently focused window, if any
func (m *Manager) Focused() (Window, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w := m.focusedLocked(); w != nil {
		return *w, true
	}
	return Window{}, false
}

// Count returns the number of open windows
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.windows)
}

// OnChange registers a change listener and returns its removal func.
// Removal is idempotent.
func (m *Manager) OnChange(fn Listener) func() {
	reg := &listenerReg{fn: fn}
	m.mu.Lock()
	m.listeners = append(m.listeners, reg)
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if reg.removed {
			return
		}
		reg.removed = true
		kept := m.listeners[:0]
		for _, r := range m.listeners {
			if !r.removed {
				kept = append(kept, r)
			}
		}
		m.listeners = kept
	}
}

// focusedLocked returns the focused window. Callers hold mu.
func (m *Manager) focusedLocked() *Window {
	for _, w := range m.windows {
		if w.Focused {
			return w
		}
	}
	return nil
}

// frontLocked returns the topmost window. Callers hold mu.
func (m *Manager) frontLocked() *Window {
	if len(m.order) == 0 {
		return nil
	}
	return m.windows[m.order[len(m.order)-1]]
}

// removeFromOrder drops an ID from the z-order. Callers hold mu.
func (m *Manager) removeFromOrder(windowID string) {
	for i, wid := range m.order {
		if wid == windowID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return
		}
	}
}

func (m *Manager) clampToMin(w *Window) {
	if w.MinSize == nil {
		return
	}
	if w.Bounds.Width < w.MinSize.Width {
		w.Bounds.Width = w.MinSize.Width
	}
	if w.Bounds.Height < w.MinSize.Height {
		w.Bounds.Height = w.MinSize.Height
	}
}

// snapshotListeners copies live listeners. Callers hold mu.
func (m *Manager) snapshotListeners() []Listener {
	if len(m.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(m.listeners))
	for _, r := range m.listeners {
		if !r.removed {
			out = append(out, r.fn)
		}
	}
	return out
}

// notify runs outside the manager lock so listeners may call back in
func (m *Manager) notify(listeners []Listener, changes []Change) {
	for _, change := range changes {
		for _, fn := range listeners {
			fn(change)
		}
	}
}
