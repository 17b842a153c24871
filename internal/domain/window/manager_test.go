package window

import (
	"testing"
)

func TestOpenFocusesAndCascades(t *testing.T) {
	m := NewManager()

	first := m.Open("finder", Options{Title: "Finder"})
	if !first.Focused {
		t.Error("first window should be focused")
	}
	if first.State != StateNormal {
		t.Errorf("expected normal state, got %s", first.State)
	}
	if first.Bounds.X != 44 || first.Bounds.Y != 44 {
		t.Errorf("expected cascade origin 44,44, got %d,%d", first.Bounds.X, first.Bounds.Y)
	}
	if first.Bounds.Width != 600 || first.Bounds.Height != 440 {
		t.Errorf("unexpected default size %dx%d", first.Bounds.Width, first.Bounds.Height)
	}

	second := m.Open("notes", Options{Title: "Notes"})
	if second.Bounds.X != 70 || second.Bounds.Y != 70 {
		t.Errorf("expected cascade step to 70,70, got %d,%d", second.Bounds.X, second.Bounds.Y)
	}
	if !second.Focused {
		t.Error("newest window should be focused")
	}

	got, ok := m.Get(first.ID)
	if !ok {
		t.Fatal("first window should exist")
	}
	if got.Focused {
		t.Error("first window should have lost focus")
	}
}

func TestCascadeWraps(t *testing.T) {
	m := NewManager()
	var last Window
	for i := 0; i < 9; i++ {
		last = m.Open("finder", Options{})
	}
	// The ninth window wraps back to the cascade origin.
	if last.Bounds.X != 44 || last.Bounds.Y != 44 {
		t.Errorf("expected wrap to 44,44, got %d,%d", last.Bounds.X, last.Bounds.Y)
	}
}

func TestOpenWithExplicitBounds(t *testing.T) {
	m := NewManager()
	w := m.Open("paint", Options{
		Title:  "Paint",
		Bounds: &Bounds{X: 10, Y: 20, Width: 320, Height: 240},
	})
	if w.Bounds.X != 10 || w.Bounds.Y != 20 || w.Bounds.Width != 320 || w.Bounds.Height != 240 {
		t.Errorf("explicit bounds not honored: %+v", w.Bounds)
	}
}

func TestOpenWithSizeHint(t *testing.T) {
	m := NewManager()
	w := m.Open("calc", Options{Size: &Size{Width: 200, Height: 300}})
	if w.Bounds.Width != 200 || w.Bounds.Height != 300 {
		t.Errorf("size hint not honored: %+v", w.Bounds)
	}
	if w.Bounds.X != 44 {
		t.Error("size hint should still cascade position")
	}
}

func TestExactlyOneFocused(t *testing.T) {
	m := NewManager()
	a := m.Open("finder", Options{})
	b := m.Open("notes", Options{})
	c := m.Open("paint", Options{})

	m.Focus(a.ID)

	focused := 0
	for _, w := range m.List() {
		if w.Focused {
			focused++
		}
	}
	if focused != 1 {
		t.Errorf("expected exactly 1 focused window, got %d", focused)
	}

	got, _ := m.Focused()
	if got.ID != a.ID {
		t.Errorf("expected %s focused, got %s", a.ID, got.ID)
	}
	_ = b
	_ = c
}

func TestFocusMovesToFront(t *testing.T) {
	m := NewManager()
	a := m.Open("finder", Options{})
	b := m.Open("notes", Options{})
	c := m.Open("paint", Options{})

	m.Focus(a.ID)

	order := m.List()
	if len(order) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(order))
	}
	if order[2].ID != a.ID {
		t.Errorf("focused window should be front, got %s", order[2].ID)
	}
	if order[0].ID != b.ID || order[1].ID != c.ID {
		t.Error("remaining windows should keep relative order")
	}
}

func TestFocusUnknownWindow(t *testing.T) {
	m := NewManager()
	if m.Focus("win_missing") {
		t.Error("focusing unknown window should return false")
	}
}

func TestCloseFocusedTransfersFocus(t *testing.T) {
	m := NewManager()
	a := m.Open("finder", Options{})
	b := m.Open("notes", Options{})
	c := m.Open("paint", Options{})

	// c is focused and frontmost; closing it should hand focus to b.
	if !m.Close(c.ID) {
		t.Fatal("close should succeed")
	}

	got, ok := m.Focused()
	if !ok {
		t.Fatal("a window should be focused after close")
	}
	if got.ID != b.ID {
		t.Errorf("expected focus on %s, got %s", b.ID, got.ID)
	}
	_ = a
}

func TestCloseUnfocusedKeepsFocus(t *testing.T) {
	m := NewManager()
	a := m.Open("finder", Options{})
	b := m.Open("notes", Options{})

	m.Close(a.ID)

	got, ok := m.Focused()
	if !ok || got.ID != b.ID {
		t.Error("closing an unfocused window should not move focus")
	}
}

func TestCloseLastWindowLeavesNoFocus(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{})
	m.Close(w.ID)

	if _, ok := m.Focused(); ok {
		t.Error("no window should be focused after closing the last one")
	}
	if m.Count() != 0 {
		t.Errorf("expected 0 windows, got %d", m.Count())
	}
}

func TestCloseAll(t *testing.T) {
	m := NewManager()
	m.Open("finder", Options{})
	m.Open("notes", Options{})
	m.Open("finder", Options{})

	if n := m.CloseAll("finder"); n != 2 {
		t.Errorf("expected 2 closed, got %d", n)
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 remaining, got %d", m.Count())
	}
	if len(m.ForApp("finder")) != 0 {
		t.Error("finder should have no windows left")
	}
}

func TestStateTransitions(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{})

	m.Minimize(w.ID)
	got, _ := m.Get(w.ID)
	if got.State != StateMinimized {
		t.Errorf("expected minimized, got %s", got.State)
	}

	m.Maximize(w.ID)
	got, _ = m.Get(w.ID)
	if got.State != StateMaximized {
		t.Errorf("expected maximized, got %s", got.State)
	}

	m.Collapse(w.ID)
	got, _ = m.Get(w.ID)
	if got.State != StateCollapsed {
		t.Errorf("expected collapsed, got %s", got.State)
	}

	m.Restore(w.ID)
	got, _ = m.Get(w.ID)
	if got.State != StateNormal {
		t.Errorf("expected normal, got %s", got.State)
	}
}

func TestResizeClampsToMinSize(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{MinSize: &Size{Width: 300, Height: 200}})

	m.Resize(w.ID, 100, 100)
	got, _ := m.Get(w.ID)
	if got.Bounds.Width != 300 || got.Bounds.Height != 200 {
		t.Errorf("expected clamp to 300x200, got %dx%d", got.Bounds.Width, got.Bounds.Height)
	}
}

func TestResizeNonResizable(t *testing.T) {
	m := NewManager()
	no := false
	w := m.Open("calc", Options{Resizable: &no, Size: &Size{Width: 200, Height: 300}})

	if m.Resize(w.ID, 500, 500) {
		t.Error("resizing a non-resizable window should report false")
	}
	got, _ := m.Get(w.ID)
	if got.Bounds.Width != 200 || got.Bounds.Height != 300 {
		t.Error("non-resizable window bounds should be unchanged")
	}
}

func TestMove(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{})
	m.Move(w.ID, 150, 160)
	got, _ := m.Get(w.ID)
	if got.Bounds.X != 150 || got.Bounds.Y != 160 {
		t.Errorf("expected 150,160, got %d,%d", got.Bounds.X, got.Bounds.Y)
	}
}

func TestChangeEvents(t *testing.T) {
	m := NewManager()
	var kinds []ChangeKind
	m.OnChange(func(c Change) {
		kinds = append(kinds, c.Kind)
	})

	a := m.Open("finder", Options{})
	b := m.Open("notes", Options{})
	m.Focus(a.ID)
	m.Move(a.ID, 1, 2)
	m.Resize(a.ID, 700, 500)
	m.Minimize(a.ID)
	m.Close(a.ID)

	want := []ChangeKind{
		ChangeOpened, ChangeFocused, // first open, nothing to blur
		ChangeOpened, ChangeBlurred, ChangeFocused, // second open
		ChangeBlurred, ChangeFocused, // focus a
		ChangeMoved,
		ChangeResized,
		ChangeStateChanged,
		ChangeClosed, ChangeFocused, // close focused a, b regains focus
	}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d events, got %d: %v", len(want), len(kinds), kinds)
	}
	for i, k := range want {
		if kinds[i] != k {
			t.Errorf("event %d: expected %s, got %s", i, k, kinds[i])
		}
	}
	_ = b
}

func TestRedundantStateChangeEmitsNothing(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{})

	count := 0
	m.OnChange(func(c Change) {
		if c.Kind == ChangeStateChanged {
			count++
		}
	})

	m.Minimize(w.ID)
	m.Minimize(w.ID)
	if count != 1 {
		t.Errorf("expected 1 stateChanged event, got %d", count)
	}
}

func TestListenerRemovalIdempotent(t *testing.T) {
	m := NewManager()
	count := 0
	cancel := m.OnChange(func(Change) { count++ })

	m.Open("finder", Options{})
	cancel()
	cancel()
	m.Open("notes", Options{})

	if count != 2 {
		t.Errorf("expected 2 events before removal, got %d", count)
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	m := NewManager()
	w := m.Open("finder", Options{})

	w.Title = "mutated"
	w.Bounds.X = 9999

	got, _ := m.Get(w.ID)
	if got.Title == "mutated" || got.Bounds.X == 9999 {
		t.Error("returned window should be a copy")
	}
}
