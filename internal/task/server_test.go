package task_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/store/storetest"
	"github.com/sprintdeck/sprintdeck/internal/task"
	"github.com/sprintdeck/sprintdeck/internal/task/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

func newTestServer(t *testing.T) (http.Handler, <-chan event.Envelope) {
	t.Helper()
	db := storetest.Open(t)
	bus := event.NewBus()
	id, events := bus.Subscribe(16)
	t.Cleanup(func() { bus.Unsubscribe(id) })

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	task.NewServer(repositoryimpl.NewGormRepository(db), bus).RegisterRoutes(r)
	return r, events
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func requireEvent(t *testing.T, events <-chan event.Envelope, kind event.Kind) event.Envelope {
	t.Helper()
	select {
	case env := <-events:
		require.Equal(t, kind, env.Type)
		return env
	default:
		t.Fatalf("expected %s event, got none", kind)
		return event.Envelope{}
	}
}

func requireNoEvent(t *testing.T, events <-chan event.Envelope) {
	t.Helper()
	select {
	case env := <-events:
		t.Fatalf("unexpected %s event", env.Type)
	default:
	}
}

func createTask(t *testing.T, h http.Handler, events <-chan event.Envelope, body string) model.Task {
	t.Helper()
	rec := doJSON(t, h, http.MethodPost, "/tasks", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	requireEvent(t, events, event.KindTaskCreated)
	return created
}

func TestCreateTaskDefaults(t *testing.T) {
	h, events := newTestServer(t)

	created := createTask(t, h, events, `{"title":"Fix login"}`)
	assert.NotZero(t, created.ID)
	assert.Equal(t, model.TaskStatusBacklog, created.Status)
	assert.Equal(t, model.TaskTypeOther, created.Type)
	assert.Zero(t, created.Progress)
}

func TestCreateTaskValidation(t *testing.T) {
	h, events := newTestServer(t)

	rec := doJSON(t, h, http.MethodPost, "/tasks", `{"status":"doing","progress":150}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code    string `json:"code"`
		Details []struct {
			Field string `json:"field"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "InvalidArgument", body.Code)

	fields := make([]string, len(body.Details))
	for i, d := range body.Details {
		fields[i] = d.Field
	}
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "status")
	assert.Contains(t, fields, "progress")

	requireNoEvent(t, events)
}

func TestUpdateTaskPartial(t *testing.T) {
	h, events := newTestServer(t)
	created := createTask(t, h, events, `{"title":"Write docs","type":"documentation"}`)

	rec := doJSON(t, h, http.MethodPatch, "/tasks/"+strconv.Itoa(created.ID), `{"progress":40}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 40, updated.Progress)
	assert.Equal(t, "Write docs", updated.Title)
	assert.Equal(t, model.TaskTypeDocumentation, updated.Type)

	requireEvent(t, events, event.KindTaskUpdated)
}

func TestUpdateStatusEmitsStatusChange(t *testing.T) {
	h, events := newTestServer(t)
	created := createTask(t, h, events, `{"title":"Ship it","status":"review"}`)

	rec := doJSON(t, h, http.MethodPatch, "/tasks/"+strconv.Itoa(created.ID)+"/status", `{"status":"done"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	env := requireEvent(t, events, event.KindTaskStatusChanged)
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var data struct {
		TaskID    int              `json:"taskId"`
		NewStatus model.TaskStatus `json:"newStatus"`
		Task      *model.Task      `json:"task"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, created.ID, data.TaskID)
	assert.Equal(t, model.TaskStatusDone, data.NewStatus)
	require.NotNil(t, data.Task)
	assert.Equal(t, model.TaskStatusDone, data.Task.Status)
}

func TestUpdateStatusRejectsUnknown(t *testing.T) {
	h, events := newTestServer(t)
	created := createTask(t, h, events, `{"title":"t"}`)

	rec := doJSON(t, h, http.MethodPatch, "/tasks/"+strconv.Itoa(created.ID)+"/status", `{"status":"doing"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	requireNoEvent(t, events)
}

func TestUpdateStatusMissingTask(t *testing.T) {
	h, events := newTestServer(t)

	rec := doJSON(t, h, http.MethodPatch, "/tasks/9999/status", `{"status":"done"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	requireNoEvent(t, events)
}

func TestDeleteTaskCarriesSnapshot(t *testing.T) {
	h, events := newTestServer(t)
	created := createTask(t, h, events, `{"title":"Remove me","status":"inprogress"}`)

	rec := doJSON(t, h, http.MethodDelete, "/tasks/"+strconv.Itoa(created.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	env := requireEvent(t, events, event.KindTaskDeleted)
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var data struct {
		TaskID      int         `json:"taskId"`
		TaskDetails *model.Task `json:"taskDetails"`
	}
	require.NoError(t, json.Unmarshal(raw, &data))
	assert.Equal(t, created.ID, data.TaskID)
	require.NotNil(t, data.TaskDetails)
	assert.Equal(t, "Remove me", data.TaskDetails.Title)
	assert.Equal(t, model.TaskStatusInProgress, data.TaskDetails.Status)

	rec = doJSON(t, h, http.MethodGet, "/tasks/"+strconv.Itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteMissingTaskEmitsNothing(t *testing.T) {
	h, events := newTestServer(t)

	rec := doJSON(t, h, http.MethodDelete, "/tasks/9999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	requireNoEvent(t, events)
}

func TestListTasksBadSprintID(t *testing.T) {
	h, _ := newTestServer(t)

	rec := doJSON(t, h, http.MethodGet, "/tasks?sprintId=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
