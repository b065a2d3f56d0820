package task

import (
	"context"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type Repository interface {
	// List returns tasks in workflow order, each with assignee and
	// deployments. A non-nil sprintID filters to that sprint.
	List(ctx context.Context, sprintID *int) ([]model.Task, error)
	Get(ctx context.Context, id int) (*model.Task, error)
	// ListByPrNumber returns every task linked to the given GitHub PR.
	ListByPrNumber(ctx context.Context, prNumber int) ([]model.Task, error)
	Create(ctx context.Context, t *model.Task) error
	Update(ctx context.Context, t *model.Task) error
	// Delete removes the task and all of its deployments.
	Delete(ctx context.Context, id int) error
}
