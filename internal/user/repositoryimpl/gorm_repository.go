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

func (r *GormRepository) List(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Order("name").Find(&users).Error; err != nil {
		return nil, cerr.WrapDBReadError("users", err)
	}
	return users, nil
}

func (r *GormRepository) Get(ctx context.Context, id int) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, cerr.WrapDBReadError("user", err)
	}
	return &u, nil
}

func (r *GormRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, cerr.WrapDBReadError("user", err)
	}
	return &u, nil
}

func (r *GormRepository) GetByGithubID(ctx context.Context, githubID string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("github_id = ?", githubID).First(&u).Error; err != nil {
		return nil, cerr.WrapDBReadError("user", err)
	}
	return &u, nil
}

func (r *GormRepository) Create(ctx context.Context, u *model.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return cerr.WrapDBWriteError("user", err)
	}
	return nil
}

func (r *GormRepository) Delete(ctx context.Context, id int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u model.User
		if err := tx.First(&u, id).Error; err != nil {
			return err
		}
		// Assigned tasks keep living with the reference cleared. The schema
		// declares ON DELETE SET NULL as well; clearing inside the
		// transaction keeps the behavior independent of pragma state.
		if err := tx.Model(&model.Task{}).Where("assignee_id = ?", id).Update("assignee_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&model.User{}, id).Error
	})
	if err != nil {
		return cerr.WrapDBDeleteError("user", err)
	}
	return nil
}
