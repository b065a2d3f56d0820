package sprint

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

// Server owns the sprint mutation path: validate, commit, then notify. The
// bus is only invoked after the store commit succeeded.
type Server struct {
	repo Repository
	bus  *event.Bus
}

func NewServer(repo Repository, bus *event.Bus) *Server {
	return &Server{repo: repo, bus: bus}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Get("/sprints", s.handleList)
	r.Get("/sprints/active", s.handleGetActive)
	r.Get("/sprints/{id}", s.handleGet)
	r.Post("/sprints", s.handleCreate)
	r.Patch("/sprints/{id}", s.handleUpdate)
	r.Post("/sprints/{id}/toggle-hackathon", s.handleToggleHackathon)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sprints, err := s.repo.List(ctx)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sprints)
}

func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sprint, err := s.repo.GetActive(ctx)
	if err != nil {
		if cerr.IsCode(err, cerr.NotFound) {
			cerr.SetNewJSONError(ctx, cerr.NotFound, "no active sprint", nil)
			return
		}
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sprint)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := sprintID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	sprint, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	cerr.SetJSONResponse(ctx, sprint)
}

type createRequest struct {
	Name          string    `json:"name" validate:"required"`
	Description   *string   `json:"description"`
	StartDate     time.Time `json:"startDate" validate:"required"`
	EndDate       time.Time `json:"endDate" validate:"required,gtfield=StartDate"`
	IsActive      bool      `json:"isActive"`
	HackathonMode bool      `json:"hackathonMode"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid sprint data", err)
		return
	}
	if err := validate.Struct("invalid sprint data", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sprint := &model.Sprint{
		Name:          req.Name,
		Description:   req.Description,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		IsActive:      req.IsActive,
		HackathonMode: req.HackathonMode,
	}
	if err := s.repo.Create(ctx, sprint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Broadcast(event.SprintCreated{Sprint: sprint})
	cerr.SetJSONResponseWithStatus(ctx, http.StatusCreated, sprint)
}

type updateRequest struct {
	Name          *string    `json:"name"`
	Description   *string    `json:"description"`
	StartDate     *time.Time `json:"startDate"`
	EndDate       *time.Time `json:"endDate"`
	IsActive      *bool      `json:"isActive"`
	HackathonMode *bool      `json:"hackathonMode"`
}

func (req *updateRequest) apply(sprint *model.Sprint) {
	if req.Name != nil {
		sprint.Name = *req.Name
	}
	if req.Description != nil {
		sprint.Description = req.Description
	}
	if req.StartDate != nil {
		sprint.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		sprint.EndDate = *req.EndDate
	}
	if req.IsActive != nil {
		sprint.IsActive = *req.IsActive
	}
	if req.HackathonMode != nil {
		sprint.HackathonMode = *req.HackathonMode
	}
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := sprintID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "invalid sprint data", err)
		return
	}
	if req.StartDate != nil && req.EndDate != nil && !req.EndDate.After(*req.StartDate) {
		cerr.SetJSONError(ctx, cerr.NewValidationError("invalid sprint data", []cerr.Violation{
			{Field: "endDate", Message: "must be after startDate"},
		}))
		return
	}

	sprint, err := s.repo.Get(ctx, id)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	req.apply(sprint)
	if err := s.repo.Update(ctx, sprint); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Broadcast(event.SprintUpdated{Sprint: sprint})
	cerr.SetJSONResponse(ctx, sprint)
}

type toggleHackathonRequest struct {
	HackathonMode *bool `json:"hackathonMode" validate:"required"`
}

func (s *Server) handleToggleHackathon(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := sprintID(r)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}
	var req toggleHackathonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		cerr.SetNewJSONError(ctx, cerr.InvalidArgument, "hackathonMode must be a boolean", err)
		return
	}
	if err := validate.Struct("hackathonMode must be a boolean", &req); err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	sprint, err := s.repo.SetHackathonMode(ctx, id, *req.HackathonMode)
	if err != nil {
		cerr.SetJSONError(ctx, err)
		return
	}

	s.bus.Broadcast(event.SprintHackathonModeToggled{
		SprintID:      sprint.ID,
		HackathonMode: sprint.HackathonMode,
		Sprint:        sprint,
	})
	cerr.SetJSONResponse(ctx, sprint)
}

func sprintID(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		return 0, cerr.NewError(cerr.InvalidArgument, "invalid sprint id", err)
	}
	return id, nil
}
