package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprintdeck/sprintdeck/internal/config"
	"github.com/sprintdeck/sprintdeck/internal/deployment"
	deploymentrepo "github.com/sprintdeck/sprintdeck/internal/deployment/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/sprint"
	sprintrepo "github.com/sprintdeck/sprintdeck/internal/sprint/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/store"
	"github.com/sprintdeck/sprintdeck/internal/stream"
	"github.com/sprintdeck/sprintdeck/internal/task"
	taskrepo "github.com/sprintdeck/sprintdeck/internal/task/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/user"
	userrepo "github.com/sprintdeck/sprintdeck/internal/user/repositoryimpl"
	"github.com/sprintdeck/sprintdeck/internal/webhook"
	"github.com/sprintdeck/sprintdeck/pkg/clog"

	server "github.com/sprintdeck/sprintdeck/internal"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		slog.Error("failed to load env", "error", err)
		os.Exit(1)
	}

	// Setup logger
	level := env.SlogLevel()
	var handler slog.Handler
	if env.Env == "local" {
		handler = clog.NewTextHandler(os.Stderr, clog.WithLevel(level))
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(clog.NewAttributesHandler(handler)))

	// Setup store
	db, err := store.Open(env.DSN)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	if env.SeedFile != "" {
		if err := store.Seed(db, env.SeedFile); err != nil {
			slog.Error("failed to seed database", "error", err)
			os.Exit(1)
		}
	}

	// The fanout bus is owned here and handed to the mutation handlers and
	// the push transport by reference.
	bus := event.NewBus()

	// Setup repositories
	sprintRepo := sprintrepo.NewGormRepository(db)
	taskRepo := taskrepo.NewGormRepository(db)
	deploymentRepo := deploymentrepo.NewGormRepository(db)
	userRepo := userrepo.NewGormRepository(db)

	// Setup servers
	sprintServer := sprint.NewServer(sprintRepo, bus)
	taskServer := task.NewServer(taskRepo, bus)
	deploymentServer := deployment.NewServer(deploymentRepo, taskRepo, bus)
	userServer := user.NewServer(userRepo)
	webhookServer := webhook.NewServer(taskRepo, deploymentRepo, bus)
	streamServer := stream.NewServer(bus)

	srv := server.NewServer(
		env,
		sprintServer,
		taskServer,
		deploymentServer,
		userServer,
		webhookServer,
		streamServer,
	)

	// Graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	go func() {
		if err := srv.ListenAndServe(ctx); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// Give active connections time to finish after the base context is
	// cancelled.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
