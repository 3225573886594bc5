package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"btoflow/internal/platform/metrics"
	"btoflow/internal/platform/middleware"
	"btoflow/internal/registration/models"
	"btoflow/internal/transport/http/shared"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

// Service defines the interface for registration lifecycle operations.
type Service interface {
	Register(ctx context.Context, officer id.PersonID, projectName string) (*models.Registration, error)
	CancelRegistration(ctx context.Context, officer id.PersonID) error
	ApproveRegistration(ctx context.Context, manager, officer id.PersonID, projectName string) (*models.Registration, error)
	RejectRegistration(ctx context.Context, manager, officer id.PersonID, projectName string) (*models.Registration, error)
	Active(ctx context.Context, officer id.PersonID) (*models.Registration, error)
	ListPending(ctx context.Context, manager id.PersonID, projectName string) ([]*models.Registration, error)
}

// Handler handles officer-registration endpoints.
type Handler struct {
	logger        *slog.Logger
	registrations Service
	metrics       *metrics.Metrics
	jwtValidator  middleware.JWTValidator
	revocations   middleware.TokenRevocationChecker
}

// New creates a new registration Handler.
func New(
	registrations Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	revocations middleware.TokenRevocationChecker) *Handler {
	return &Handler{
		logger:        logger,
		registrations: registrations,
		metrics:       m,
		jwtValidator:  jwtValidator,
		revocations:   revocations,
	}
}

// Register registers the registration routes with the chi router. The shared
// middleware chain is applied by the root router; only auth gating is local.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(authed chi.Router) {
		authed.Use(middleware.RequireAuth(h.jwtValidator, h.revocations, h.logger))

		authed.Group(func(or chi.Router) {
			or.Use(middleware.RequireRole(h.logger, id.RoleOfficer))
			or.Post("/registrations", h.handleRegister)
			or.Delete("/registrations", h.handleCancel)
			or.Get("/registrations/active", h.handleActive)
		})

		authed.Group(func(mr chi.Router) {
			mr.Use(middleware.RequireRole(h.logger, id.RoleManager))
			mr.Get("/projects/{name}/registrations", h.handleListPending)
			mr.Post("/registrations/approve", h.handleApprove)
			mr.Post("/registrations/reject", h.handleReject)
		})
	})
}

type registerRequest struct {
	ProjectName string `json:"project_name"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.registrations.Register(ctx, requestcontext.Actor(ctx), req.ProjectName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, reg)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.registrations.CancelRegistration(ctx, requestcontext.Actor(ctx)); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reg, err := h.registrations.Active(ctx, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

// decisionRequest addresses a pending registration by officer and project,
// the way managers see their review queue.
type decisionRequest struct {
	OfficerID   string `json:"officer_id"`
	ProjectName string `json:"project_name"`
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrations.ApproveRegistration)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.registrations.RejectRegistration)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request,
	op func(context.Context, id.PersonID, id.PersonID, string) (*models.Registration, error)) {
	ctx := r.Context()

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	officer, err := id.ParsePersonID(req.OfficerID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	reg, err := op(ctx, requestcontext.Actor(ctx), officer, req.ProjectName)
	if err != nil {
		h.logger.WarnContext(ctx, "registration decision failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regs, err := h.registrations.ListPending(ctx, requestcontext.Actor(ctx), chi.URLParam(r, "name"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	shared.WriteJSON(w, http.StatusOK, regs)
}
