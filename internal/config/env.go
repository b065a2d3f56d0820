package config

import (
	"fmt"
	"log/slog"

	"github.com/kelseyhightower/envconfig"
)

type BaseEnv struct {
	Env      string `envconfig:"ENV" default:"local"`
	HTTPHost string `envconfig:"HTTP_HOST" default:""`
	HTTPPort string `envconfig:"HTTP_PORT" default:"3200"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"debug"`
	APIKey   string `envconfig:"API_KEY" required:"true"`
}

type StoreEnv struct {
	// SQLite DSN, e.g. ".sprintdeck/sprintdeck.db" or "file::memory:?cache=shared".
	DSN string `envconfig:"DB_DSN" default:".sprintdeck/sprintdeck.db"`
	// Optional YAML fixture loaded at boot when the database is empty.
	SeedFile string `envconfig:"SEED_FILE"`
}

type Env struct {
	BaseEnv
	StoreEnv
}

const namespace = "SPRINTDECK"

func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process(namespace, &env); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}
	return &env, nil
}

func (e *BaseEnv) SlogLevel() slog.Level {
	if e == nil {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(e.LogLevel)); err != nil {
		return slog.LevelDebug
	}
	return level
}
