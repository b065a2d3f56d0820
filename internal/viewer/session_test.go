package viewer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sprintdeck/sprintdeck/internal/event"
)

func envelope(t *testing.T, kind event.Kind, data string) event.IncomingEnvelope {
	t.Helper()
	env := event.IncomingEnvelope{Type: kind, Timestamp: 1756684800000}
	if data != "" {
		env.Data = json.RawMessage(data)
	}
	return env
}

func newSession(c *Cache) *Session {
	return &Session{cache: c}
}

func TestApplyConnected(t *testing.T) {
	s := newSession(NewCache())
	require.False(t, s.Connected())

	s.Apply(envelope(t, event.KindConnected, ""))
	assert.True(t, s.Connected())
}

func TestApplyTaskCreatedInvalidatesList(t *testing.T) {
	c := NewCache()
	c.Set(TasksKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindTaskCreated, `{"id":5,"title":"new"}`))
	assert.False(t, c.Valid(TasksKey))
}

func TestApplyTaskUpdatedWritesDetailSlot(t *testing.T) {
	c := NewCache()
	c.Set(TasksKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindTaskUpdated, `{"id":5,"title":"renamed"}`))

	got, ok := c.Get(TaskKey(5))
	require.True(t, ok)
	assert.JSONEq(t, `{"id":5,"title":"renamed"}`, string(got.(json.RawMessage)))
	assert.False(t, c.Valid(TasksKey))
}

func TestApplyTaskStatusChangedUnwrapsTask(t *testing.T) {
	c := NewCache()
	s := newSession(c)

	s.Apply(envelope(t, event.KindTaskStatusChanged,
		`{"taskId":5,"newStatus":"done","task":{"id":5,"status":"done"}}`))

	got, ok := c.Get(TaskKey(5))
	require.True(t, ok)
	assert.JSONEq(t, `{"id":5,"status":"done"}`, string(got.(json.RawMessage)))
	assert.False(t, c.Valid(TasksKey))
}

func TestApplyTaskDeletedEvicts(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(5), "cached")
	c.Set(TasksKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindTaskDeleted, `{"taskId":5,"taskDetails":{"id":5}}`))

	_, ok := c.Get(TaskKey(5))
	assert.False(t, ok)
	assert.False(t, c.Valid(TasksKey))
}

func TestApplySprintUpdatedActive(t *testing.T) {
	c := NewCache()
	c.Set(SprintsKey, "stale")
	c.Set(ActiveSprintKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindSprintUpdated, `{"id":3,"isActive":true,"name":"S"}`))

	got, ok := c.Get(SprintKey(3))
	require.True(t, ok)
	assert.JSONEq(t, `{"id":3,"isActive":true,"name":"S"}`, string(got.(json.RawMessage)))
	assert.False(t, c.Valid(SprintsKey))
	assert.False(t, c.Valid(ActiveSprintKey))
}

func TestApplySprintUpdatedInactiveKeepsActiveKey(t *testing.T) {
	c := NewCache()
	c.Set(ActiveSprintKey, "active")
	s := newSession(c)

	s.Apply(envelope(t, event.KindSprintUpdated, `{"id":3,"isActive":false}`))
	assert.True(t, c.Valid(ActiveSprintKey))
}

func TestApplyHackathonToggleUsesEmbeddedSprint(t *testing.T) {
	c := NewCache()
	c.Set(SprintsKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindSprintHackathonModeToggled,
		`{"sprintId":3,"hackathonMode":true,"sprint":{"id":3,"isActive":true,"hackathonMode":true}}`))

	got, ok := c.Get(SprintKey(3))
	require.True(t, ok)
	assert.JSONEq(t, `{"id":3,"isActive":true,"hackathonMode":true}`, string(got.(json.RawMessage)))
	assert.False(t, c.Valid(SprintsKey))
	assert.False(t, c.Valid(ActiveSprintKey))
}

func TestApplyDeploymentEventsInvalidateParentTask(t *testing.T) {
	c := NewCache()
	c.Set(TaskKey(5), "cached")
	s := newSession(c)

	s.Apply(envelope(t, event.KindDeploymentCreated,
		`{"deployment":{"id":1,"taskId":5},"task":{"id":5}}`))
	assert.False(t, c.Valid(TaskKey(5)))

	c.Set(TaskKey(5), "cached again")
	s.Apply(envelope(t, event.KindDeploymentStatusUpdated, `{"id":1,"taskId":5,"status":"success"}`))
	assert.False(t, c.Valid(TaskKey(5)))
}

func TestApplyMalformedDataFallsBackToInvalidate(t *testing.T) {
	c := NewCache()
	c.Set(TasksKey, "stale")
	s := newSession(c)

	s.Apply(envelope(t, event.KindTaskUpdated, `"not an object"`))
	assert.False(t, c.Valid(TasksKey))
}

func TestApplyUnknownKindIsIgnored(t *testing.T) {
	c := NewCache()
	c.Set(TasksKey, "fresh")
	s := newSession(c)

	s.Apply(envelope(t, event.Kind("totally_new"), `{}`))
	assert.True(t, c.Valid(TasksKey))
}
