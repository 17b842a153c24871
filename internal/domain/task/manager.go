package task

import (
	"sync"
	"time"

	"github.com/64andrewwalker/macos98-sub001/internal/infrastructure/monitoring"
	"github.com/64andrewwalker/macos98-sub001/internal/shared/id"
)

// State represents task lifecycle states
type State string

const (
	StateReady      State = "ready"
	StateRunning    State = "running"
	StateSuspended  State = "suspended"
	StateTerminated State = "terminated"
)

// Task represents one running application instance
type Task struct {
	ID        string    `json:"id"`
	AppID     string    `json:"app_id"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Listener observes successful state transitions. The task argument is a
// snapshot; for terminations it is the only remaining view of the task.
type Listener func(task Task, previous State)

// listenerReg tracks one registered listener
type listenerReg struct {
	fn      Listener
	removed bool
}

// Manager owns the task registry
type Manager struct {
	mu        sync.RWMutex
	tasks     map[string]*Task // Protected by mu
	order     []string         // Spawn order, protected by mu
	listeners []*listenerReg   // Protected by mu
	metrics   *monitoring.Metrics
}

// Stats summarizes registry state
type Stats struct {
	Total     int `json:"total"`
	Ready     int `json:"ready"`
	Running   int `json:"running"`
	Suspended int `json:"suspended"`
}

// NewManager creates a new task manager
func NewManager() *Manager {
	return &Manager{
		tasks: make(map[string]*Task),
	}
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Spawn creates a new task in the ready state
func (m *Manager) Spawn(appID string) *Task {
	t := &Task{
		ID:        id.NewTaskID().String(),
		AppID:     appID,
		State:     StateReady,
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.tasks[t.ID] = t
	m.order = append(m.order, t.ID)
	active := len(m.tasks)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordTaskSpawn()
		m.metrics.SetTasksActive(active)
	}

	snapshot := *t
	return &snapshot
}

// Resume moves a ready or suspended task to running.
// Any other starting state is a silent no-op.
func (m *Manager) Resume(taskID string) bool {
	return m.transition(taskID, StateRunning, StateReady, StateSuspended)
}

// Suspend moves a running task to suspended.
// Any other starting state is a silent no-op.
func (m *Manager) Suspend(taskID string) bool {
	return m.transition(taskID, StateSuspended, StateRunning)
}

// transition applies newState when the task's current state is in from.
// Listeners observe the transition after the registry is updated.
func (m *Manager) transition(taskID string, newState State, from ...State) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	allowed := false
	for _, s := range from {
		if t.State == s {
			allowed = true
			break
		}
	}
	if !allowed {
		m.mu.Unlock()
		return false
	}
	previous := t.State
	t.State = newState
	snapshot := *t
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	m.notify(listeners, snapshot, previous)
	return true
}

// Kill terminates a task from any state and removes it from the registry.
// Listeners observe the terminated snapshot; queries made during or after
// the callbacks no longer see the task. Unknown IDs are silent no-ops.
func (m *Manager) Kill(taskID string) bool {
	m.mu.Lock()
	t, ok := m.tasks[taskID]
	if !ok {
		m.mu.Unlock()
		return false
	}
	previous := t.State
	t.State = StateTerminated
	snapshot := *t

	delete(m.tasks, taskID)
	for i, tid := range m.order {
		if tid == taskID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	active := len(m.tasks)
	listeners := m.snapshotListeners()
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.RecordTaskKill()
		m.metrics.SetTasksActive(active)
	}

	m.notify(listeners, snapshot, previous)
	return true
}

// OnStateChange registers a transition listener and returns an
// idempotent removal closure
func (m *Manager) OnStateChange(fn Listener) func() {
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
		live := m.listeners[:0]
		for _, l := range m.listeners {
			if !l.removed {
				live = append(live, l)
			}
		}
		m.listeners = live
	}
}

// snapshotListeners copies the live listener set. Callers hold m.mu.
func (m *Manager) snapshotListeners() []Listener {
	fns := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		if !l.removed {
			fns = append(fns, l.fn)
		}
	}
	return fns
}

// notify runs listeners outside the lock so they may query the registry
func (m *Manager) notify(listeners []Listener, t Task, previous State) {
	for _, fn := range listeners {
		fn(t, previous)
	}
}

// Get returns a task snapshot by ID
func (m *Manager) Get(taskID string) (*Task, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[taskID]
	if !ok {
		return nil, false
	}
	snapshot := *t
	return &snapshot, true
}

// List returns all live tasks in spawn order
func (m *Manager) List() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]*Task, 0, len(m.order))
	for _, tid := range m.order {
		if t, ok := m.tasks[tid]; ok {
			snapshot := *t
			tasks = append(tasks, &snapshot)
		}
	}
	return tasks
}

// Running returns tasks currently in the running state, in spawn order
func (m *Manager) Running() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]*Task, 0, len(m.order))
	for _, tid := range m.order {
		if t, ok := m.tasks[tid]; ok && t.State == StateRunning {
			snapshot := *t
			tasks = append(tasks, &snapshot)
		}
	}
	return tasks
}

// ForApp returns the live tasks belonging to an app, in spawn order
func (m *Manager) ForApp(appID string) []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tasks := make([]*Task, 0)
	for _, tid := range m.order {
		if t, ok := m.tasks[tid]; ok && t.AppID == appID {
			snapshot := *t
			tasks = append(tasks, &snapshot)
		}
	}
	return tasks
}

// Stats returns registry statistics
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Stats{Total: len(m.tasks)}
	for _, t := range m.tasks {
		switch t.State {
		case StateReady:
			s.Ready++
		case StateRunning:
			s.Running++
		case StateSuspended:
			s.Suspended++
		}
	}
	return s
}
