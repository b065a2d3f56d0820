package sprint

import (
	"context"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type Repository interface {
	// List returns all sprints, newest start date first.
	List(ctx context.Context) ([]model.Sprint, error)
	Get(ctx context.Context, id int) (*model.Sprint, error)
	// GetActive returns the active sprint with its tasks, each task carrying
	// assignee and deployments, all read from one consistent snapshot.
	GetActive(ctx context.Context) (*model.Sprint, error)
	// Create inserts the sprint. An active sprint deactivates every other
	// sprint within the same transaction.
	Create(ctx context.Context, s *model.Sprint) error
	// Update saves the sprint. Activation deactivates every other sprint
	// within the same transaction.
	Update(ctx context.Context, s *model.Sprint) error
	SetHackathonMode(ctx context.Context, id int, on bool) (*model.Sprint, error)
}
