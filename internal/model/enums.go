package model

// TaskStatus values are ordered by workflow progression, not alphabetically.
type TaskStatus string

const (
	TaskStatusBacklog    TaskStatus = "backlog"
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "inprogress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists the statuses in workflow order.
var TaskStatuses = []TaskStatus{
	TaskStatusBacklog,
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
}

func (s TaskStatus) Valid() bool {
	for _, known := range TaskStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// WorkflowOrder returns the position of the status in the workflow, used for
// stable board ordering. Unknown statuses sort last.
func (s TaskStatus) WorkflowOrder() int {
	for i, known := range TaskStatuses {
		if s == known {
			return i
		}
	}
	return len(TaskStatuses)
}

type TaskType string

const (
	TaskTypeFrontend      TaskType = "frontend"
	TaskTypeBackend       TaskType = "backend"
	TaskTypeIntegration   TaskType = "integration"
	TaskTypeResearch      TaskType = "research"
	TaskTypeBugfix        TaskType = "bugfix"
	TaskTypeDesign        TaskType = "design"
	TaskTypeDocumentation TaskType = "documentation"
	TaskTypeTesting       TaskType = "testing"
	TaskTypeOther         TaskType = "other"
)

var TaskTypes = []TaskType{
	TaskTypeFrontend,
	TaskTypeBackend,
	TaskTypeIntegration,
	TaskTypeResearch,
	TaskTypeBugfix,
	TaskTypeDesign,
	TaskTypeDocumentation,
	TaskTypeTesting,
	TaskTypeOther,
}

func (t TaskType) Valid() bool {
	for _, known := range TaskTypes {
		if t == known {
			return true
		}
	}
	return false
}

type DeploymentStatus string

const (
	DeploymentStatusPending  DeploymentStatus = "pending"
	DeploymentStatusRunning  DeploymentStatus = "running"
	DeploymentStatusSuccess  DeploymentStatus = "success"
	DeploymentStatusFailed   DeploymentStatus = "failed"
	DeploymentStatusCanceled DeploymentStatus = "canceled"
	DeploymentStatusSkipped  DeploymentStatus = "skipped"
)

var DeploymentStatuses = []DeploymentStatus{
	DeploymentStatusPending,
	DeploymentStatusRunning,
	DeploymentStatusSuccess,
	DeploymentStatusFailed,
	DeploymentStatusCanceled,
	DeploymentStatusSkipped,
}

func (s DeploymentStatus) Valid() bool {
	for _, known := range DeploymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether the status completes a deployment. Entering a
// terminal status stamps CompletedAt; every other status leaves it null.
func (s DeploymentStatus) Terminal() bool {
	switch s {
	case DeploymentStatusSuccess, DeploymentStatusFailed, DeploymentStatusCanceled:
		return true
	}
	return false
}
