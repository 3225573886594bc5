package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"btoflow/internal/platform/metrics"
	"btoflow/internal/platform/middleware"
	"btoflow/internal/project/models"
	projectservice "btoflow/internal/project/service"
	"btoflow/internal/transport/http/shared"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

// Service defines the interface for directory operations.
type Service interface {
	CreateProject(ctx context.Context, manager id.PersonID, req projectservice.CreateProjectRequest) (*models.Project, error)
	EditProject(ctx context.Context, manager id.PersonID, name string, req projectservice.EditProjectRequest) (*models.Project, error)
	ToggleVisibility(ctx context.Context, manager id.PersonID, name string, visible bool) (*models.Project, error)
	DeleteProject(ctx context.Context, manager id.PersonID, name string) error
	Get(ctx context.Context, name string) (*models.Project, error)
	ListVisible(ctx context.Context, viewer id.PersonID) ([]*models.Project, error)
	ListAll(ctx context.Context) ([]*models.Project, error)
	ListByManager(ctx context.Context, manager id.PersonID) ([]*models.Project, error)
}

// Handler handles project directory endpoints.
type Handler struct {
	logger       *slog.Logger
	projects     Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	revocations  middleware.TokenRevocationChecker
}

// New creates a new project Handler.
func New(
	projects Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	revocations middleware.TokenRevocationChecker) *Handler {
	return &Handler{
		logger:       logger,
		projects:     projects,
		metrics:      m,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register registers the project routes with the chi router. The shared
// middleware chain is applied by the root router; only auth gating is local.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		pr.Get("/projects", h.handleList)
		pr.Get("/projects/{name}", h.handleGet)

		pr.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireRole(h.logger, id.RoleManager))
			mr.Post("/projects", h.handleCreate)
			mr.Put("/projects/{name}", h.handleEdit)
			mr.Delete("/projects/{name}", h.handleDelete)
			mr.Post("/projects/{name}/visibility", h.handleVisibility)
			mr.Get("/manager/projects", h.handleListMine)
		})
	})
}

// projectPayload is the wire shape for create and edit. Dates use the local
// records format, dd/mm/yyyy.
type projectPayload struct {
	Name         string         `json:"name"`
	Neighborhood string         `json:"neighborhood"`
	OpenDate     string         `json:"open_date"`
	CloseDate    string         `json:"close_date"`
	MaxOfficers  int            `json:"max_officers"`
	Units        map[string]int `json:"units"`
}

const dateLayout = "02/01/2006"

func (p projectPayload) toCreateRequest() (projectservice.CreateProjectRequest, error) {
	var out projectservice.CreateProjectRequest
	open, err := time.Parse(dateLayout, p.OpenDate)
	if err != nil {
		return out, dErrors.New(dErrors.CodeValidation, "invalid open date")
	}
	close, err := time.Parse(dateLayout, p.CloseDate)
	if err != nil {
		return out, dErrors.New(dErrors.CodeValidation, "invalid close date")
	}
	units := make(map[id.FlatType]int, len(p.Units))
	for raw, count := range p.Units {
		flat, err := id.ParseFlatType(raw)
		if err != nil {
			return out, err
		}
		units[flat] = count
	}
	out = projectservice.CreateProjectRequest{
		Name:         p.Name,
		Neighborhood: p.Neighborhood,
		OpenDate:     open,
		CloseDate:    close,
		MaxOfficers:  p.MaxOfficers,
		Units:        units,
	}
	return out, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req, err := payload.toCreateRequest()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	project, err := h.projects.CreateProject(ctx, requestcontext.Actor(ctx), req)
	if err != nil {
		h.logger.WarnContext(ctx, "create project failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, project)
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload projectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	req, err := payload.toCreateRequest()
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	project, err := h.projects.EditProject(ctx, requestcontext.Actor(ctx),
		chi.URLParam(r, "name"), projectservice.EditProjectRequest(req))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, project)
}

type visibilityRequest struct {
	Visible bool `json:"visible"`
}

func (h *Handler) handleVisibility(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	project, err := h.projects.ToggleVisibility(ctx, requestcontext.Actor(ctx),
		chi.URLParam(r, "name"), req.Visible)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, project)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.projects.DeleteProject(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "name")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	project, err := h.projects.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, project)
}

// handleList returns what the caller may see: managers browse the whole
// directory, everyone else the projects open to them.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		projects []*models.Project
		err      error
	)
	if requestcontext.ActorRole(ctx) == id.RoleManager {
		projects, err = h.projects.ListAll(ctx)
	} else {
		projects, err = h.projects.ListVisible(ctx, requestcontext.Actor(ctx))
	}
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	shared.WriteJSON(w, http.StatusOK, projects)
}

func (h *Handler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projects, err := h.projects.ListByManager(ctx, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	shared.WriteJSON(w, http.StatusOK, projects)
}
