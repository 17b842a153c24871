package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is the test-mode backend: same contract, no disk. A fresh
// handle always starts at version 0 and migrates up on open.
type Memory struct {
	name    string
	version int

	mu     sync.RWMutex
	data   map[string]map[string][]byte
	closed bool
}

// OpenMemory creates an in-memory database and runs the upgrade function
func OpenMemory(name string, version int, upgrade UpgradeFunc) (*Memory, error) {
	if version < 1 {
		return nil, fmt.Errorf("store: version must be >= 1, got %d", version)
	}
	m := &Memory{
		name:    name,
		version: version,
		data:    make(map[string]map[string][]byte),
	}
	if upgrade != nil {
		up := &Upgrade{OldVersion: 0, NewVersion: version, ops: (*memoryUpgrade)(m)}
		if err := upgrade(up); err != nil {
			return nil, fmt.Errorf("store: upgrade 0 -> %d: %w", version, err)
		}
	}
	return m, nil
}

type memoryUpgrade Memory

func (m *memoryUpgrade) createStore(name string) error {
	m.data[name] = make(map[string][]byte)
	return nil
}

func (m *memoryUpgrade) deleteStore(name string) error {
	delete(m.data, name)
	return nil
}

func (m *memoryUpgrade) hasStore(name string) bool {
	_, ok := m.data[name]
	return ok
}

// Name returns the logical database name
func (m *Memory) Name() string { return m.name }

// Version returns the migrated schema version
func (m *Memory) Version() int { return m.version }

// Stores returns the object store names, sorted
func (m *Memory) Stores() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.data))
	for n := range m.data {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (m *Memory) table(store string) (map[string][]byte, error) {
	if m.closed {
		return nil, ErrClosed
	}
	t, ok := m.data[store]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	return t, nil
}

// Get returns the value for key, reporting presence explicitly
func (m *Memory) Get(_ context.Context, store, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(store)
	if err != nil {
		return nil, false, err
	}
	v, ok := t[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

// Put inserts or replaces the value for key
func (m *Memory) Put(_ context.Context, store, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(store)
	if err != nil {
		return err
	}
	t[key] = clone(value)
	return nil
}

// Delete removes the value for key; deleting a missing key is not an error
func (m *Memory) Delete(_ context.Context, store, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, err := m.table(store)
	if err != nil {
		return err
	}
	delete(t, key)
	return nil
}

// Clear removes every record in the object store
func (m *Memory) Clear(_ context.Context, store string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.table(store); err != nil {
		return err
	}
	m.data[store] = make(map[string][]byte)
	return nil
}

// GetAll returns every record in the object store, keys ascending
func (m *Memory) GetAll(_ context.Context, store string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(store)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(t))
	for k, v := range t {
		records = append(records, Record{Key: k, Value: clone(v)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

// Keys returns every key in the object store, ascending
func (m *Memory) Keys(_ context.Context, store string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, err := m.table(store)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Transact runs fn against staged copies of the named stores and installs
// them only when fn succeeds, so a failed transaction observes no changes
func (m *Memory) Transact(_ context.Context, stores []string, mode Mode, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	staged := make(map[string]map[string][]byte, len(stores))
	for _, name := range stores {
		t, err := m.table(name)
		if err != nil {
			return err
		}
		cp := make(map[string][]byte, len(t))
		for k, v := range t {
			cp[k] = v
		}
		staged[name] = cp
	}

	tx := &memoryTx{mode: mode, scope: newScope(stores), staged: staged}
	if err := fn(tx); err != nil {
		return err
	}
	for name, t := range staged {
		m.data[name] = t
	}
	return nil
}

// Close releases the handle; further operations fail with ErrClosed
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

type memoryTx struct {
	mode   Mode
	scope  scope
	staged map[string]map[string][]byte
}

func (t *memoryTx) table(store string) (map[string][]byte, error) {
	if err := t.scope.check(store); err != nil {
		return nil, err
	}
	return t.staged[store], nil
}

func (t *memoryTx) writable() error {
	if t.mode != ReadWrite {
		return ErrReadOnly
	}
	return nil
}

func (t *memoryTx) Get(store, key string) ([]byte, bool, error) {
	tab, err := t.table(store)
	if err != nil {
		return nil, false, err
	}
	v, ok := tab[key]
	if !ok {
		return nil, false, nil
	}
	return clone(v), true, nil
}

func (t *memoryTx) Put(store, key string, value []byte) error {
	tab, err := t.table(store)
	if err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	tab[key] = clone(value)
	return nil
}

func (t *memoryTx) Delete(store, key string) error {
	tab, err := t.table(store)
	if err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	delete(tab, key)
	return nil
}

func (t *memoryTx) Clear(store string) error {
	if _, err := t.table(store); err != nil {
		return err
	}
	if err := t.writable(); err != nil {
		return err
	}
	t.staged[store] = make(map[string][]byte)
	return nil
}

func (t *memoryTx) GetAll(store string) ([]Record, error) {
	tab, err := t.table(store)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(tab))
	for k, v := range tab {
		records = append(records, Record{Key: k, Value: clone(v)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })
	return records, nil
}

func (t *memoryTx) Keys(store string) ([]string, error) {
	tab, err := t.table(store)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(tab))
	for k := range tab {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
