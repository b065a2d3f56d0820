package deployment

import (
	"context"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type Repository interface {
	Get(ctx context.Context, id int) (*model.Deployment, error)
	// ListByTaskID returns a task's deployments, newest first.
	ListByTaskID(ctx context.Context, taskID int) ([]model.Deployment, error)
	// Create inserts the deployment. CompletedAt is derived from the status,
	// never taken from the caller.
	Create(ctx context.Context, d *model.Deployment) error
	// UpdateStatus sets the status and derives CompletedAt from it.
	UpdateStatus(ctx context.Context, id int, status model.DeploymentStatus) (*model.Deployment, error)
}
