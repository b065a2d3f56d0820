package webhook_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	deploymentrepo "github.com/sprintdeck/sprintdeck/internal/deployment/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/store/storetest"
	taskrepo "github.com/sprintdeck/sprintdeck/internal/task/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/webhook"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

func newTestServer(t *testing.T) (http.Handler, *gorm.DB, <-chan event.Envelope) {
	t.Helper()
	db := storetest.Open(t)
	bus := event.NewBus()
	id, events := bus.Subscribe(16)
	t.Cleanup(func() { bus.Unsubscribe(id) })

	r := chi.NewRouter()
	r.Use(cerr.NewJSONResponseChiMiddleware())
	webhook.NewServer(taskrepo.NewGormRepository(db), deploymentrepo.NewGormRepository(db), bus).RegisterRoutes(r)
	return r, db, events
}

func postGithub(t *testing.T, h http.Handler, eventType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", eventType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func drainEvents(events <-chan event.Envelope) []event.Envelope {
	var got []event.Envelope
	for {
		select {
		case env := <-events:
			got = append(got, env)
		default:
			return got
		}
	}
}

func TestGithubMergedPullRequest(t *testing.T) {
	h, db, events := newTestServer(t)

	pr := 42
	task := &model.Task{Title: "feature", Status: model.TaskStatusReview, Type: model.TaskTypeBackend, GithubPrNumber: &pr}
	require.NoError(t, db.Create(task).Error)
	unrelated := &model.Task{Title: "unrelated", Status: model.TaskStatusTodo, Type: model.TaskTypeOther}
	require.NoError(t, db.Create(unrelated).Error)

	body := `{"action":"closed","pull_request":{"number":42,"html_url":"https://github.com/acme/app/pull/42","merged":true}}`
	rec := postGithub(t, h, "pull_request", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	var reloaded model.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.NotNil(t, reloaded.CiStatus)
	assert.Equal(t, "merged", *reloaded.CiStatus)
	require.NotNil(t, reloaded.GithubPrURL)
	assert.Equal(t, "https://github.com/acme/app/pull/42", *reloaded.GithubPrURL)

	got := drainEvents(events)
	require.Len(t, got, 1)
	assert.Equal(t, event.KindTaskUpdated, got[0].Type)

	// Redelivery lands on the same state and still succeeds.
	rec = postGithub(t, h, "pull_request", body)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	assert.Equal(t, "merged", *reloaded.CiStatus)
}

func TestGithubOpenedSetsPending(t *testing.T) {
	h, db, events := newTestServer(t)

	pr := 7
	task := &model.Task{Title: "wip", Status: model.TaskStatusInProgress, Type: model.TaskTypeFrontend, GithubPrNumber: &pr}
	require.NoError(t, db.Create(task).Error)

	rec := postGithub(t, h, "pull_request",
		`{"action":"opened","pull_request":{"number":7,"html_url":"https://github.com/acme/app/pull/7","merged":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var reloaded model.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.NotNil(t, reloaded.CiStatus)
	assert.Equal(t, "pending", *reloaded.CiStatus)
	assert.Len(t, drainEvents(events), 1)
}

func TestGithubSynchronizeRefreshesURLOnly(t *testing.T) {
	h, db, events := newTestServer(t)

	pr := 7
	merged := "merged"
	task := &model.Task{Title: "wip", Status: model.TaskStatusInProgress, Type: model.TaskTypeFrontend, GithubPrNumber: &pr, CiStatus: &merged}
	require.NoError(t, db.Create(task).Error)

	rec := postGithub(t, h, "pull_request",
		`{"action":"synchronize","pull_request":{"number":7,"html_url":"https://github.com/acme/app/pull/7","merged":false}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	// The PR URL is rewritten on every matched delivery; ciStatus only moves
	// for opened/reopened/closed.
	var reloaded model.Task
	require.NoError(t, db.First(&reloaded, task.ID).Error)
	require.NotNil(t, reloaded.GithubPrURL)
	assert.Equal(t, "https://github.com/acme/app/pull/7", *reloaded.GithubPrURL)
	require.NotNil(t, reloaded.CiStatus)
	assert.Equal(t, "merged", *reloaded.CiStatus)

	got := drainEvents(events)
	require.Len(t, got, 1)
	assert.Equal(t, event.KindTaskUpdated, got[0].Type)
}

func TestGithubIgnoresOtherEventTypes(t *testing.T) {
	h, _, events := newTestServer(t)

	rec := postGithub(t, h, "push", `{"ref":"refs/heads/main"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Empty(t, drainEvents(events))
}

func TestGithubNoMatchingTasks(t *testing.T) {
	h, _, events := newTestServer(t)

	rec := postGithub(t, h, "pull_request",
		`{"action":"closed","pull_request":{"number":99,"html_url":"https://github.com/acme/app/pull/99","merged":true}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	assert.Empty(t, drainEvents(events))
}

func TestGithubMissingPRNumber(t *testing.T) {
	h, _, _ := newTestServer(t)

	rec := postGithub(t, h, "pull_request", `{"action":"opened","pull_request":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeploymentWebhook(t *testing.T) {
	h, db, events := newTestServer(t)

	task := &model.Task{Title: "deploy", Status: model.TaskStatusDone, Type: model.TaskTypeBackend}
	require.NoError(t, db.Create(task).Error)
	d := &model.Deployment{TaskID: task.ID, Status: model.DeploymentStatusRunning}
	require.NoError(t, db.Create(d).Error)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/deployment",
		strings.NewReader(`{"deploymentId":`+jsonInt(d.ID)+`,"status":"success"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Deployment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.DeploymentStatusSuccess, updated.Status)
	assert.NotNil(t, updated.CompletedAt)

	got := drainEvents(events)
	require.Len(t, got, 1)
	assert.Equal(t, event.KindDeploymentStatusUpdated, got[0].Type)
}

func TestDeploymentWebhookUnknownDeployment(t *testing.T) {
	h, _, events := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/deployment",
		strings.NewReader(`{"deploymentId":9999,"status":"success"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, drainEvents(events))
}

func jsonInt(id int) string {
	b, _ := json.Marshal(id)
	return string(b)
}
