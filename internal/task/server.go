package task

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sprintdeck/sprintdeck/internal/event"
	"github.com/sprintdeck/sprintdeck/internal/model"
	"github.com/sprintdeck/sprintdeck/internal/validate"
	"github.com/sprintdeck/sprintdeck/pkg/cerr"
)

type Server struct {
	repo Repository
	bus  *event.Bus
}

func NewServer(repo Repository, bus *event.Bus) *Server {
	return &Server{repo: repo, bus: bus}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/tasks", s.handleList)
	r.Get("/tasks/{id}", s.handleGet)
	r.Post("/tasks", s.handleCreate)
	r.Patch("/tasks/{id}", s.handleUpdate)
	r.Patch("/tasks/{id}/status", s.handleUpdateStatus)
	r.Delete("/tasks/{id}", s.handleDelete)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var sprintID *int
	if raw := r.URL.Query().Get("sprintId"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid sprintId", err)
			return
		}
		sprintID = &id
	}
	tasks, err := s.repo.List(ctx, sprintID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, tasks)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := taskID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, t)
}

type createRequest struct {
	Title          string            `json:"title" validate:"required"`
	Description    *string           `json:"description"`
	Status         *model.TaskStatus `json:"status" validate:"omitempty,oneof=backlog todo inprogress review done"`
	Type           *model.TaskType   `json:"type" validate:"omitempty,oneof=frontend backend integration research bugfix design documentation testing other"`
	DueDate        *time.Time        `json:"dueDate"`
	GithubPrURL    *string           `json:"githubPrUrl"`
	GithubPrNumber *int              `json:"githubPrNumber"`
	CiStatus       *string           `json:"ciStatus"`
	Progress       *int              `json:"progress" validate:"omitempty,min=0,max=100"`
	AssigneeID     *int              `json:"assigneeId"`
	SprintID       *int              `json:"sprintId"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid task data", err)
		return
	}
	if err := validate.Struct("invalid task data", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t := &model.Task{
		Title:          req.Title,
		Description:    req.Description,
		Status:         model.TaskStatusBacklog,
		Type:           model.TaskTypeOther,
		DueDate:        req.DueDate,
		GithubPrURL:    req.GithubPrURL,
		GithubPrNumber: req.GithubPrNumber,
		CiStatus:       req.CiStatus,
		AssigneeID:     req.AssigneeID,
		SprintID:       req.SprintID,
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.Progress != nil {
		t.Progress = *req.Progress
	}
	if err := s.repo.Create(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	created, err := s.repo.Get(ctx, t.ID)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.Broadcast(event.TaskCreated{Task: created})
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, created)
}

type updateRequest struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	Status         *model.TaskStatus `json:"status" validate:"omitempty,oneof=backlog todo inprogress review done"`
	Type           *model.TaskType   `json:"type" validate:"omitempty,oneof=frontend backend integration research bugfix design documentation testing other"`
	DueDate        *time.Time        `json:"dueDate"`
	GithubPrURL    *string           `json:"githubPrUrl"`
	GithubPrNumber *int              `json:"githubPrNumber"`
	CiStatus       *string           `json:"ciStatus"`
	Progress       *int              `json:"progress" validate:"omitempty,min=0,max=100"`
	AssigneeID     *int              `json:"assigneeId"`
	SprintID       *int              `json:"sprintId"`
}

func (req *updateRequest) apply(t *model.Task) {
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = req.Description
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.DueDate != nil {
		t.DueDate = req.DueDate
	}
	if req.GithubPrURL != nil {
		t.GithubPrURL = req.GithubPrURL
	}
	if req.GithubPrNumber != nil {
		t.GithubPrNumber = req.GithubPrNumber
	}
	if req.CiStatus != nil {
		t.CiStatus = req.CiStatus
	}
	if req.Progress != nil {
		t.Progress = *req.Progress
	}
	if req.AssigneeID != nil {
		t.AssigneeID = req.AssigneeID
	}
	if req.SprintID != nil {
		t.SprintID = req.SprintID
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := taskID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid task data", err)
		return
	}
	if err := validate.Struct("invalid task data", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	req.apply(t)
	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.Broadcast(event.TaskUpdated{Task: updated})
	cerr.SetJSONResponse(ctx, updated)
}

type updateStatusRequest struct {
	Status model.TaskStatus `json:"status" validate:"required,oneof=backlog todo inprogress review done"`
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := taskID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid status value", err)
		return
	}
	if err := validate.Struct("invalid status value", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	t, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	t.Status = req.Status
	if err := s.repo.Update(ctx, t); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	s.bus.Broadcast(event.TaskStatusChanged{
		TaskID:    updated.ID,
		NewStatus: updated.Status,
		Task:      updated,
	})
	cerr.SetJSONResponse(ctx, updated)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := taskID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	// Snapshot before deletion; the event carries the task as it last
	// existed so viewers can render a meaningful removal.
	snapshot, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Broadcast(event.TaskDeleted{TaskID: id, TaskDetails: snapshot})
	cerr.SetJSONResponse(ctx, map[string]bool{"success": true})
}

func taskID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, cerr.NewError(cerr.InvalidArgument, "invalid task id", err)
	}
	return id, nil
}
