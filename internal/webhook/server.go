package webhook

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sprintdeck/sprintdeck/internal/deployment"
	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/task"
	"github.com/sprintdeck/sprintdeck/internal/validate"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

// Server ingests events from external CI and GitHub. Unrecognized event
// types and non-matching PR numbers are a no-op success, not an error.
type Server struct {
	taskRepo       task.Repository
	deploymentRepo deployment.Repository
	bus            *event.Bus
}

func NewServer(taskRepo task.Repository, deploymentRepo deployment.Repository, bus *event.Bus) *Server {
	return &Server{taskRepo: taskRepo, deploymentRepo: deploymentRepo, bus: bus}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/webhooks/deployment", s.handleDeployment)
	r.Post("/webhooks/github", s.handleGithub)
}

type deploymentStatusRequest struct {
	DeploymentID int                    `json:"deploymentId" validate:"required"`
	Status       model.DeploymentStatus `json:"status" validate:"required,oneof=pending running success failed canceled skipped"`
}

func (s *Server) handleDeployment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req deploymentStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "deploymentId and status are required", err)
		return
	}
	if err := validate.Struct("deploymentId and status are required", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	d, err := s.deploymentRepo.UpdateStatus(ctx, req.DeploymentID, req.Status)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Broadcast(event.DeploymentStatusUpdated{Deployment: d})
	cerr.SetJSONResponse(ctx, d)
}

// githubPullRequestPayload covers the fields of a pull_request event this
// system reads; everything else in the delivery is ignored.
type githubPullRequestPayload struct {
	Action      string `json:"action"`
	PullRequest struct {
		Number  int    `json:"number"`
		HTMLURL string `json:"html_url"`
		Merged  bool   `json:"merged"`
	} `json:"pull_request"`
}

func (s *Server) handleGithub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Header.Get("X-GitHub-Event") != "pull_request" {
		cerr.SetJSONResponse(ctx, map[string]bool{"success": true})
		return
	}

	var payload githubPullRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid webhook payload", err)
		return
	}
	if payload.PullRequest.Number == 0 {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "pull request number is required", nil)
		return
	}

	// Actions like synchronize carry no status transition; the PR URL is
	// refreshed on every delivery regardless.
	ciStatus, hasStatus := deriveCiStatus(payload.Action, payload.PullRequest.Merged)

	tasks, err := s.taskRepo.ListByPrNumber(ctx, payload.PullRequest.Number)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	for i := range tasks {
		t := &tasks[i]
		t.GithubPrURL = &payload.PullRequest.HTMLURL
		if hasStatus {
			t.CiStatus = &ciStatus
		}
		if err := s.taskRepo.Update(ctx, t); err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		updated, err := s.taskRepo.Get(ctx, t.ID)
		if err != nil {
			cerr.SetJSONError(ctx, err)
			return
		}
		s.bus.Broadcast(event.TaskUpdated{Task: updated})
	}
	if len(tasks) > 0 {
		slog.InfoContext(ctx, "applied pull request event",
			"action", payload.Action,
			"pr_number", payload.PullRequest.Number,
			"tasks", len(tasks),
		)
	}

	cerr.SetJSONResponse(ctx, map[string]bool{"success": true})
}

// deriveCiStatus maps a PR lifecycle action onto the task's ciStatus badge.
func deriveCiStatus(action string, merged bool) (string, bool) {
	switch action {
	case "opened", "reopened":
		return "pending", true
	case "closed":
		if merged {
			return "merged", true
		}
		return "closed", true
	default:
		return "", false
	}
}
