package user

import (
	"context"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type Repository interface {
	List(ctx context.Context) ([]model.User, error)
	Get(ctx context.Context, id int) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByGithubID(ctx context.Context, githubID string) (*model.User, error)
	Create(ctx context.Context, u *model.User) error
	// Delete removes the user. Tasks assigned to the user survive with the
	// assignee reference cleared.
	Delete(ctx context.Context, id int) error
}
