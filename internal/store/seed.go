package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/sprintdeck/sprintdeck/internal/model"
)

type seedFile struct {
	Users   []model.User   `yaml:"users"`
	Sprints []model.Sprint `yaml:"sprints"`
	Tasks   []model.Task   `yaml:"tasks"`
}

// Seed loads a YAML fixture into an empty database. A non-empty database is
// left untouched so a restart never duplicates fixture rows.
func Seed(db *gorm.DB, path string) error {
	var count int64
	if err := db.Model(&model.Sprint{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count sprints: %w", err)
	}
	if count > 0 {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for i := range seed.Users {
			if err := tx.Create(&seed.Users[i]).Error; err != nil {
				return fmt.Errorf("seed user %q: %w", seed.Users[i].Username, err)
			}
		}
		for i := range seed.Sprints {
			if err := tx.Create(&seed.Sprints[i]).Error; err != nil {
				return fmt.Errorf("seed sprint %q: %w", seed.Sprints[i].Name, err)
			}
		}
		for i := range seed.Tasks {
			if err := tx.Create(&seed.Tasks[i]).Error; err != nil {
				return fmt.Errorf("seed task %q: %w", seed.Tasks[i].Title, err)
			}
		}
		return nil
	})
}
