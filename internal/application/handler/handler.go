package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"btoflow/internal/application/models"
	"btoflow/internal/platform/metrics"
	"btoflow/internal/platform/middleware"
	"btoflow/internal/transport/http/shared"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

// Service defines the interface for application lifecycle operations.
type Service interface {
	Apply(ctx context.Context, applicant id.PersonID, projectName string, flat id.FlatType) (*models.Application, error)
	Approve(ctx context.Context, manager id.PersonID, appID id.ApplicationID) (*models.Application, error)
	Reject(ctx context.Context, manager id.PersonID, appID id.ApplicationID) (*models.Application, error)
	Book(ctx context.Context, officer id.PersonID, appID id.ApplicationID) (*models.Application, error)
	RequestWithdrawal(ctx context.Context, applicant id.PersonID, appID id.ApplicationID) (*models.Application, error)
	ProcessWithdrawal(ctx context.Context, manager id.PersonID, appID id.ApplicationID, approve bool) (*models.Application, error)
	Get(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	Active(ctx context.Context, applicant id.PersonID) (*models.Application, error)
	ListByApplicant(ctx context.Context, applicant id.PersonID) ([]*models.Application, error)
	ListByProject(ctx context.Context, projectName string) ([]*models.Application, error)
	ListBooked(ctx context.Context, projectName string, flat id.FlatType) ([]*models.Application, error)
}

// Handler handles application lifecycle endpoints.
type Handler struct {
	logger       *slog.Logger
	applications Service
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	revocations  middleware.TokenRevocationChecker
}

// New creates a new application Handler.
func New(
	applications Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	revocations middleware.TokenRevocationChecker) *Handler {
	return &Handler{
		logger:       logger,
		applications: applications,
		metrics:      m,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register registers the application routes with the chi router. The shared
// middleware chain is applied by the root router; only auth gating is local.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		authed.Group(func(ar chi.Router) {
			ar.Use(middleware.RequireRole(h.logger, id.RoleApplicant, id.RoleOfficer))
			ar.Post("/applications", h.handleApply)
			ar.Get("/applications/active", h.handleActive)
			ar.Get("/applications", h.handleHistory)
			ar.Post("/applications/{id}/withdraw", h.handleRequestWithdrawal)
		})

		authed.Get("/applications/{id}", h.handleGet)

		authed.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireRole(h.logger, id.RoleManager))
			mr.Post("/applications/{id}/approve", h.handleApprove)
			mr.Post("/applications/{id}/reject", h.handleReject)
			mr.Post("/applications/{id}/withdrawal", h.handleProcessWithdrawal)
		})

		authed.Group(func(or chi.Router) {
			or.Use(middleware.RequireRole(h.logger, id.RoleOfficer))
			or.Post("/applications/{id}/book", h.handleBook)
		})

		authed.Group(func(pr chi.Router) {
			pr.Use(middleware.RequireRole(h.logger, id.RoleOfficer, id.RoleManager))
			pr.Get("/projects/{name}/applications", h.handleListByProject)
			pr.Get("/projects/{name}/bookings", h.handleListBooked)
		})
	})
}

type applyRequest struct {
	ProjectName string `json:"project_name"`
	FlatType    string `json:"flat_type"`
}

func (h *Handler) handleApply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req applyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	flat, err := id.ParseFlatType(req.FlatType)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	app, err := h.applications.Apply(ctx, requestcontext.Actor(ctx), req.ProjectName, flat)
	if err != nil {
		h.logger.WarnContext(ctx, "apply failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	app, err := h.applications.Active(ctx, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.applications.ListByApplicant(ctx, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	shared.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	app, err := h.applications.Get(r.Context(), appID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.applications.Approve)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.applications.Reject)
}

func (h *Handler) handleBook(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.applications.Book)
}

func (h *Handler) handleRequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.applications.RequestWithdrawal)
}

// decide factors the shared shape of the one-argument transitions.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	op func(context.Context, id.PersonID, id.ApplicationID) (*models.Application, error)) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	app, err := op(ctx, requestcontext.Actor(ctx), appID)
	if err != nil {
		h.logger.WarnContext(ctx, "application transition failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

type withdrawalDecision struct {
	Approve bool `json:"approve"`
}

func (h *Handler) handleProcessWithdrawal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req withdrawalDecision
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	app, err := h.applications.ProcessWithdrawal(ctx, requestcontext.Actor(ctx), appID, req.Approve)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) handleListByProject(w http.ResponseWriter, r *http.Request) {
	apps, err := h.applications.ListByProject(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	shared.WriteJSON(w, http.StatusOK, apps)
}

func (h *Handler) handleListBooked(w http.ResponseWriter, r *http.Request) {
	var flat id.FlatType
	if raw := r.URL.Query().Get("flat_type"); raw != "" {
		parsed, err := id.ParseFlatType(raw)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		flat = parsed
	}
	apps, err := h.applications.ListBooked(r.Context(), chi.URLParam(r, "name"), flat)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if apps == nil {
		apps = []*models.Application{}
	}
	shared.WriteJSON(w, http.StatusOK, apps)
}
