package repositoryimpl

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/store/storetest"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

func seedTask(t *testing.T, db *gorm.DB) *model.Task {
	t.Helper()
	task := &model.Task{Title: "deploy target", Status: model.TaskStatusInProgress, Type: model.TaskTypeBackend}
	require.NoError(t, db.Create(task).Error)
	return task
}

func TestCreateDerivesCompletedAt(t *testing.T) {
	ctx := context.Background()
	db := storetest.Open(t)
	repo := NewGormRepository(db)
	task := seedTask(t, db)

	for _, status := range model.DeploymentStatuses {
		d := &model.Deployment{TaskID: task.ID, Status: status}
		require.NoError(t, repo.Create(ctx, d))

		reloaded, err := repo.Get(ctx, d.ID)
		require.NoError(t, err)
		if status.Terminal() {
			assert.NotNil(t, reloaded.CompletedAt, "status %s", status)
		} else {
			assert.Nil(t, reloaded.CompletedAt, "status %s", status)
		}
	}
}

func TestCreateMissingTask(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRepository(storetest.Open(t))

	err := repo.Create(ctx, &model.Deployment{TaskID: 9999, Status: model.DeploymentStatusPending})
	assert.True(t, cerr.IsCode(err, cerr.FailedPrecondition))
}

func TestUpdateStatusStampsAndClearsCompletedAt(t *testing.T) {
	ctx := context.Background()
	db := storetest.Open(t)
	repo := NewGormRepository(db)
	task := seedTask(t, db)

	d := &model.Deployment{TaskID: task.ID, Status: model.DeploymentStatusPending}
	require.NoError(t, repo.Create(ctx, d))

	updated, err := repo.UpdateStatus(ctx, d.ID, model.DeploymentStatusSuccess)
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)

	// A retry that leaves the terminal state clears the stamp again.
	updated, err = repo.UpdateStatus(ctx, d.ID, model.DeploymentStatusRunning)
	require.NoError(t, err)
	assert.Nil(t, updated.CompletedAt)

	reloaded, err := repo.Get(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DeploymentStatusRunning, reloaded.Status)
	assert.Nil(t, reloaded.CompletedAt)
}

func TestUpdateStatusMissingDeployment(t *testing.T) {
	ctx := context.Background()
	repo := NewGormRepository(storetest.Open(t))

	_, err := repo.UpdateStatus(ctx, 9999, model.DeploymentStatusSuccess)
	assert.True(t, cerr.IsCode(err, cerr.NotFound))
}

func TestListByTaskIDOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := storetest.Open(t)
	repo := NewGormRepository(db)
	task := seedTask(t, db)
	other := seedTask(t, db)

	first := &model.Deployment{TaskID: task.ID, Status: model.DeploymentStatusSuccess}
	require.NoError(t, repo.Create(ctx, first))
	second := &model.Deployment{TaskID: task.ID, Status: model.DeploymentStatusPending}
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, &model.Deployment{TaskID: other.ID, Status: model.DeploymentStatusPending}))

	deployments, err := repo.ListByTaskID(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, deployments, 2)
	assert.False(t, deployments[0].CreatedAt.Before(deployments[1].CreatedAt))
}
