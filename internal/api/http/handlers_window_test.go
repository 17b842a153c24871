package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/64andrewwalker/macos98-sub001/internal/domain/window"
)

func TestListWindows(t *testing.T) {
	fx := newAPI(t)
	back := fx.windows.Open("notepad", window.Options{Title: "Untitled"})
	front := fx.windows.Open("notepad", window.Options{Title: "Untitled 2"})

	w := fx.do(t, http.MethodGet, "/windows", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Windows []window.Window `json:"windows"`
		Count   int             `json:"count"`
	}
	decode(t, w, &body)
	require.Equal(t, 2, body.Count)
	assert.Equal(t, back.ID, body.Windows[0].ID)
	assert.Equal(t, front.ID, body.Windows[1].ID)
	assert.True(t, body.Windows[1].Focused)
}

func TestGetWindow(t *testing.T) {
	fx := newAPI(t)
	win := fx.windows.Open("notepad", window.Options{Title: "Untitled"})

	w := fx.do(t, http.MethodGet, "/windows/"+win.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got window.Window
	decode(t, w, &got)
	assert.Equal(t, "Untitled", got.Title)

	t.Run("unknown window", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/windows/win-nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFocusWindow(t *testing.T) {
	fx := newAPI(t)
	first := fx.windows.Open("notepad", window.Options{})
	fx.windows.Open("notepad", window.Options{})

	w := fx.do(t, http.MethodPost, "/windows/"+first.ID+"/focus", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var got window.Window
	decode(t, w, &got)
	assert.True(t, got.Focused)

	t.Run("unknown window", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/win-nope/focus", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetWindowBounds(t *testing.T) {
	fx := newAPI(t)
	win := fx.windows.Open("notepad", window.Options{
		MinSize: &window.Size{Width: 200, Height: 120},
	})

	t.Run("move and resize", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/bounds", map[string]int{
			"x": 10, "y": 20, "width": 800, "height": 600,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got window.Window
		decode(t, w, &got)
		assert.Equal(t, window.Bounds{X: 10, Y: 20, Width: 800, Height: 600}, got.Bounds)
	})

	t.Run("resize clamps to minimum", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/bounds", map[string]int{
			"width": 50, "height": 50,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var got window.Window
		decode(t, w, &got)
		assert.Equal(t, 200, got.Bounds.Width)
		assert.Equal(t, 120, got.Bounds.Height)
	})

	t.Run("lone coordinate", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/bounds", map[string]int{"x": 5})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/bounds", map[string]int{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown window", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/win-nope/bounds", map[string]int{"x": 1, "y": 2})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSetWindowState(t *testing.T) {
	fx := newAPI(t)
	win := fx.windows.Open("notepad", window.Options{})

	for _, state := range []string{"minimized", "maximized", "collapsed", "normal"} {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/state", map[string]string{"state": state})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var got window.Window
		decode(t, w, &got)
		assert.Equal(t, window.State(state), got.State)
	}

	t.Run("invalid state", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/"+win.ID+"/state", map[string]string{"state": "sideways"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown window", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/windows/win-nope/state", map[string]string{"state": "minimized"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCloseWindow(t *testing.T) {
	fx := newAPI(t)
	win := fx.windows.Open("notepad", window.Options{})

	w := fx.do(t, http.MethodDelete, "/windows/"+win.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, fx.windows.Count())

	t.Run("second close is a 404", func(t *testing.T) {
		w := fx.do(t, http.MethodDelete, "/windows/"+win.ID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
