package event

import (
	"encoding/json"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type Kind string

const (
	KindConnected                  Kind = "connected"
	KindPong                       Kind = "pong"
	KindTaskCreated                Kind = "task_created"
	KindTaskUpdated                Kind = "task_updated"
	KindTaskStatusChanged          Kind = "task_status_changed"
	KindTaskDeleted                Kind = "task_deleted"
	KindSprintCreated              Kind = "sprint_created"
	KindSprintUpdated              Kind = "sprint_updated"
	KindSprintHackathonModeToggled Kind = "sprint_hackathon_mode_toggled"
	KindDeploymentCreated          Kind = "deployment_created"
	KindDeploymentStatusUpdated    Kind = "deployment_status_updated"
)

// Payload is the tagged union over the broadcastable event kinds. Each kind
// carries its own strongly-typed payload; Data returns the wire value placed
// in the envelope's data field.
type Payload interface {
	EventKind() Kind
	Data() any
}

type TaskCreated struct {
	Task *model.Task
}

func (e TaskCreated) EventKind() Kind { return KindTaskCreated }
func (e TaskCreated) Data() any       { return e.Task }

type TaskUpdated struct {
	Task *model.Task
}

func (e TaskUpdated) EventKind() Kind { return KindTaskUpdated }
func (e TaskUpdated) Data() any       { return e.Task }

type TaskStatusChanged struct {
	TaskID    int
	NewStatus model.TaskStatus
	Task      *model.Task
}

func (e TaskStatusChanged) EventKind() Kind { return KindTaskStatusChanged }

func (e TaskStatusChanged) Data() any {
	return struct {
		TaskID    int              `json:"taskId"`
		NewStatus model.TaskStatus `json:"newStatus"`
		Task      *model.Task      `json:"task"`
	}{e.TaskID, e.NewStatus, e.Task}
}

// TaskDeleted carries a snapshot of the task as it existed immediately
// before deletion.
type TaskDeleted struct {
	TaskID      int
	TaskDetails *model.Task
}

func (e TaskDeleted) EventKind() Kind { return KindTaskDeleted }

func (e TaskDeleted) Data() any {
	return struct {
		TaskID      int         `json:"taskId"`
		TaskDetails *model.Task `json:"taskDetails"`
	}{e.TaskID, e.TaskDetails}
}

type SprintCreated struct {
	Sprint *model.Sprint
}

func (e SprintCreated) EventKind() Kind { return KindSprintCreated }
func (e SprintCreated) Data() any       { return e.Sprint }

type SprintUpdated struct {
	Sprint *model.Sprint
}

func (e SprintUpdated) EventKind() Kind { return KindSprintUpdated }
func (e SprintUpdated) Data() any       { return e.Sprint }

type SprintHackathonModeToggled struct {
	SprintID      int
	HackathonMode bool
	Sprint        *model.Sprint
}

func (e SprintHackathonModeToggled) EventKind() Kind { return KindSprintHackathonModeToggled }

func (e SprintHackathonModeToggled) Data() any {
	return struct {
		SprintID      int           `json:"sprintId"`
		HackathonMode bool          `json:"hackathonMode"`
		Sprint        *model.Sprint `json:"sprint"`
	}{e.SprintID, e.HackathonMode, e.Sprint}
}

type DeploymentCreated struct {
	Deployment *model.Deployment
	Task       *model.Task
}

func (e DeploymentCreated) EventKind() Kind { return KindDeploymentCreated }

func (e DeploymentCreated) Data() any {
	return struct {
		Deployment *model.Deployment `json:"deployment"`
		Task       *model.Task       `json:"task"`
	}{e.Deployment, e.Task}
}

type DeploymentStatusUpdated struct {
	Deployment *model.Deployment
}

func (e DeploymentStatusUpdated) EventKind() Kind { return KindDeploymentStatusUpdated }
func (e DeploymentStatusUpdated) Data() any       { return e.Deployment }

// Envelope is the server-to-client wire frame. Timestamp is epoch
// milliseconds assigned at broadcast time.
type Envelope struct {
	Type      Kind  `json:"type"`
	Data      any   `json:"data,omitempty"`
	Timestamp int64 `json:"timestamp"`
}

// IncomingEnvelope is the receiving-side counterpart of Envelope: the data
// field stays raw until the type tag selects how to decode it.
type IncomingEnvelope struct {
	Type      Kind            `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}
