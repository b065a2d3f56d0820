package repositoryimpl

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

func (r *GormRepository) Get(ctx context.Context, id int) (*model.Deployment, error) {
	var d model.Deployment
	if err := r.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, cerr.WrapDBReadError("deployment", err)
	}
	return &d, nil
}

func (r *GormRepository) ListByTaskID(ctx context.Context, taskID int) ([]model.Deployment, error) {
	var deployments []model.Deployment
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Find(&deployments).Error; err != nil {
		return nil, cerr.WrapDBReadError("deployments", err)
	}
	return deployments, nil
}

func (r *GormRepository) Create(ctx context.Context, d *model.Deployment) error {
	d.CompletedAt = completedAtFor(d.Status)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The parent task must exist; a dangling deployment is a constraint
		// violation, not a not-found.
		var count int64
		if err := tx.Model(&model.Task{}).Where("id = ?", d.TaskID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrForeignKeyViolated
		}
		return tx.Create(d).Error
	})
	if err != nil {
		return cerr.WrapDBWriteError("deployment", err)
	}
	return nil
}

func (r *GormRepository) UpdateStatus(ctx context.Context, id int, status model.DeploymentStatus) (*model.Deployment, error) {
	var d model.Deployment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&d, id).Error; err != nil {
			return err
		}
		d.Status = status
		d.CompletedAt = completedAtFor(status)
		return tx.Model(&model.Deployment{ID: d.ID}).Updates(map[string]any{
			"status":       d.Status,
			"completed_at": d.CompletedAt,
		}).Error
	})
	if err != nil {
		return nil, cerr.WrapDBWriteError("deployment", err)
	}
	return &d, nil
}

func completedAtFor(status model.DeploymentStatus) *time.Time {
	if !status.Terminal() {
		return nil
	}
	now := time.Now()
	return &now
}
