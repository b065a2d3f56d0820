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

func (r *GormRepository) List(ctx context.Context) ([]model.Sprint, error) {
	var sprints []model.Sprint
	if err := r.db.WithContext(ctx).Order("start_date DESC").Find(&sprints).Error; err != nil {
		return nil, cerr.WrapDBReadError("sprints", err)
	}
	return sprints, nil
}

func (r *GormRepository) Get(ctx context.Context, id int) (*model.Sprint, error) {
	var s model.Sprint
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, cerr.WrapDBReadError("sprint", err)
	}
	return &s, nil
}

func (r *GormRepository) GetActive(ctx context.Context) (*model.Sprint, error) {
	var s model.Sprint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("is_active = ?", true).First(&s).Error; err != nil {
			return err
		}
		return tx.
			Preload("Assignee").
			Preload("Deployments", func(db *gorm.DB) *gorm.DB {
				return db.Order("created_at DESC")
			}).
			Where("sprint_id = ?", s.ID).
			Order(taskWorkflowOrder).
			Find(&s.Tasks).Error
	})
	if err != nil {
		return nil, cerr.WrapDBReadError("active sprint", err)
	}
	return &s, nil
}

func (r *GormRepository) Create(ctx context.Context, s *model.Sprint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.IsActive {
			if err := deactivateOthers(tx, 0); err != nil {
				return err
			}
		}
		return tx.Create(s).Error
	})
	if err != nil {
		return cerr.WrapDBWriteError("sprint", err)
	}
	return nil
}

func (r *GormRepository) Update(ctx context.Context, s *model.Sprint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.IsActive {
			if err := deactivateOthers(tx, s.ID); err != nil {
				return err
			}
		}
		// Select("*") writes false booleans and cleared pointers too, which
		// a plain Updates call would skip as zero values.
		return tx.Model(&model.Sprint{ID: s.ID}).Select("*").Omit("id").Updates(s).Error
	})
	if err != nil {
		return cerr.WrapDBWriteError("sprint", err)
	}
	return nil
}

func (r *GormRepository) SetHackathonMode(ctx context.Context, id int, on bool) (*model.Sprint, error) {
	var s model.Sprint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&s).Update("hackathon_mode", on).Error; err != nil {
			return err
		}
		s.HackathonMode = on
		return nil
	})
	if err != nil {
		return nil, cerr.WrapDBWriteError("sprint", err)
	}
	return &s, nil
}

// deactivateOthers clears is_active on every sprint except the given one.
// Runs inside the caller's transaction so two racing activations serialize
// and only one sprint ends up active.
func deactivateOthers(tx *gorm.DB, exceptID int) error {
	q := tx.Model(&model.Sprint{}).Where("is_active = ?", true)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	return q.Update("is_active", false).Error
}

// taskWorkflowOrder sorts tasks by board column progression instead of the
// alphabetical order a bare ORDER BY status would give.
const taskWorkflowOrder = `CASE status
	WHEN 'backlog' THEN 0
	WHEN 'todo' THEN 1
	WHEN 'inprogress' THEN 2
	WHEN 'review' THEN 3
	WHEN 'done' THEN 4
	ELSE 5 END, id`
