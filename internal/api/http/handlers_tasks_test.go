package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTasks(t *testing.T) {
	fx := newAPI(t)
	taskID := fx.launch(t)

	w := fx.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Tasks []struct {
			AppID  string `json:"app_id"`
			TaskID string `json:"task_id"`
			State  string `json:"state"`
		} `json:"tasks"`
		Stats map[string]int `json:"stats"`
	}
	decode(t, w, &body)
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, "notepad", body.Tasks[0].AppID)
	assert.Equal(t, taskID, body.Tasks[0].TaskID)
	assert.Equal(t, "running", body.Tasks[0].State)
	assert.Equal(t, 1, body.Stats["total"])
}

func TestGetTask(t *testing.T) {
	fx := newAPI(t)
	taskID := fx.launch(t)

	w := fx.do(t, http.MethodGet, "/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var view struct {
		TaskID string `json:"task_id"`
		State  string `json:"state"`
	}
	decode(t, w, &view)
	assert.Equal(t, taskID, view.TaskID)
	assert.Equal(t, "running", view.State)

	t.Run("unknown task", func(t *testing.T) {
		w := fx.do(t, http.MethodGet, "/tasks/task-nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestKillTask(t *testing.T) {
	fx := newAPI(t)
	taskID := fx.launch(t)

	w := fx.do(t, http.MethodDelete, "/tasks/"+taskID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 0, fx.runtime.Count())

	t.Run("second kill is a 404", func(t *testing.T) {
		w := fx.do(t, http.MethodDelete, "/tasks/"+taskID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestActivateTask(t *testing.T) {
	fx := newAPI(t)
	first := fx.launch(t)
	second := fx.launch(t)

	// The most recent launch holds the foreground.
	running, ok := fx.runtime.Foreground()
	require.True(t, ok)
	require.Equal(t, second, running.TaskID)

	w := fx.do(t, http.MethodPost, "/tasks/"+first+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	running, ok = fx.runtime.Foreground()
	require.True(t, ok)
	assert.Equal(t, first, running.TaskID)
}

func TestMenuAction(t *testing.T) {
	fx := newAPI(t)
	taskID := fx.launch(t)

	w := fx.do(t, http.MethodPost, "/tasks/"+taskID+"/menu", map[string]string{"action": "file.save"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Success bool   `json:"success"`
		Action  string `json:"action"`
	}
	decode(t, w, &body)
	assert.True(t, body.Success)
	assert.Equal(t, "file.save", body.Action)

	t.Run("action required", func(t *testing.T) {
		w := fx.do(t, http.MethodPost, "/tasks/"+taskID+"/menu", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
