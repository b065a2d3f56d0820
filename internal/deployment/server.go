package deployment

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/task"
	"github.com/sprintdeck/sprintdeck/internal/validate"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

type Server struct {
	repo     Repository
	taskRepo task.Repository
	bus      *event.Bus
}

func NewServer(repo Repository, taskRepo task.Repository, bus *event.Bus) *Server {
	return &Server{repo: repo, taskRepo: taskRepo, bus: bus}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Post("/deployments", s.handleCreate)
}

type createRequest struct {
	TaskID int                    `json:"taskId" validate:"required"`
	Status model.DeploymentStatus `json:"status" validate:"required,oneof=pending running success failed canceled skipped"`
	URL    *string                `json:"url"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "taskId and status are required", err)
		return
	}
	if err := validate.Struct("taskId and status are required", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	d := &model.Deployment{
		TaskID: req.TaskID,
		Status: req.Status,
		URL:    req.URL,
	}
	if err := s.repo.Create(ctx, d); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// The event carries the parent task so viewers can refetch it with the
	// fresh deployment attached.
	parent, err := s.taskRepo.Get(ctx, d.TaskID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.Broadcast(event.DeploymentCreated{Deployment: d, Task: parent})
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, d)
}
