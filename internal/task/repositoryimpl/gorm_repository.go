package repositoryimpl

import (
	"context"

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

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Assignee").
		Preload("Deployments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		})
}

func (r *GormRepository) List(ctx context.Context, sprintID *int) ([]model.Task, error) {
	q := withRelations(r.db.WithContext(ctx))
	if sprintID != nil {
		q = q.Where("sprint_id = ?", *sprintID)
	}
	var tasks []model.Task
	if err := q.Order(workflowOrder).Find(&tasks).Error; err != nil {
		return nil, cerr.WrapDBReadError("tasks", err)
	}
	return tasks, nil
}

func (r *GormRepository) Get(ctx context.Context, id int) (*model.Task, error) {
	var t model.Task
	if err := withRelations(r.db.WithContext(ctx)).First(&t, id).Error; err != nil {
		return nil, cerr.WrapDBReadError("task", err)
	}
	return &t, nil
}

func (r *GormRepository) ListByPrNumber(ctx context.Context, prNumber int) ([]model.Task, error) {
	var tasks []model.Task
	if err := withRelations(r.db.WithContext(ctx)).
		Where("github_pr_number = ?", prNumber).
		Order("id").
		Find(&tasks).Error; err != nil {
		return nil, cerr.WrapDBReadError("tasks", err)
	}
	return tasks, nil
}

func (r *GormRepository) Create(ctx context.Context, t *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("Assignee", "Deployments").Create(t).Error; err != nil {
		return cerr.WrapDBWriteError("task", err)
	}
	return nil
}

func (r *GormRepository) Update(ctx context.Context, t *model.Task) error {
	// Map form writes cleared pointers and false booleans too, which the
	// struct form would skip as zero values.
	err := r.db.WithContext(ctx).
		Model(&model.Task{ID: t.ID}).
		Updates(map[string]any{
			"title":            t.Title,
			"description":      t.Description,
			"status":           t.Status,
			"type":             t.Type,
			"due_date":         t.DueDate,
			"github_pr_url":    t.GithubPrURL,
			"github_pr_number": t.GithubPrNumber,
			"ci_status":        t.CiStatus,
			"progress":         t.Progress,
			"assignee_id":      t.AssigneeID,
			"sprint_id":        t.SprintID,
		}).Error
	if err != nil {
		return cerr.WrapDBWriteError("task", err)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t model.Task
		if err := tx.First(&t, id).Error; err != nil {
			return err
		}
		// Deployments cascade with their task. The schema also declares ON
		// DELETE CASCADE; deleting inside the transaction keeps the behavior
		// independent of pragma state.
		if err := tx.Where("task_id = ?", id).Delete(&model.Deployment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Task{}, id).Error
	})
	if err != nil {
		return cerr.WrapDBDeleteError("task", err)
	}
	return nil
}

// workflowOrder sorts tasks by board column progression instead of the
// alphabetical order a bare ORDER BY status would give.
const workflowOrder = `CASE status
	WHEN 'backlog' THEN 0
	WHEN 'todo' THEN 1
	WHEN 'inprogress' THEN 2
	WHEN 'review' THEN 3
	WHEN 'done' THEN 4
	ELSE 5 END, id`
