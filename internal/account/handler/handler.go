package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"btoflow/internal/account/models"
	jwttoken "btoflow/internal/jwt_token"
	"btoflow/internal/platform/metrics"
	"btoflow/internal/platform/middleware"
	"btoflow/internal/transport/http/shared"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

// Service defines the interface for account operations.
type Service interface {
	Authenticate(ctx context.Context, person id.PersonID, password string) (string, *models.Account, error)
	Logout(ctx context.Context, jti string, expiresAt time.Time) error
	ChangePassword(ctx context.Context, person id.PersonID, oldPassword, newPassword string) error
	Get(ctx context.Context, person id.PersonID) (*models.Account, error)
}

// TokenInspector re-parses a presented token so logout can read its id and
// expiry.
type TokenInspector interface {
	ValidateToken(tokenString string) (*jwttoken.Claims, error)
}

// Handler handles account endpoints.
type Handler struct {
	logger       *slog.Logger
	accounts     Service
	inspector    TokenInspector
	metrics      *metrics.Metrics
	jwtValidator middleware.JWTValidator
	revocations  middleware.TokenRevocationChecker
}

// New creates a new account Handler.
func New(
	accounts Service,
	inspector TokenInspector,
	logger *slog.Logger,
	m *metrics.Metrics,
	jwtValidator middleware.JWTValidator,
	revocations middleware.TokenRevocationChecker) *Handler {
	return &Handler{
		logger:       logger,
		accounts:     accounts,
		inspector:    inspector,
		metrics:      m,
		jwtValidator: jwtValidator,
		revocations:  revocations,
	}
}

// Register registers the account routes with the chi router. The shared
// middleware chain is applied by the root router; only auth gating is local.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(pr chi.Router) {
		pr.Use(middleware.RequireAuth(h.jwtValidator, h.revocations, h.logger))
		pr.Post("/auth/logout", h.handleLogout)
		pr.Post("/auth/password", h.handleChangePassword)
		pr.Get("/me", h.handleMe)
	})
}

type loginRequest struct {
	PersonID string `json:"person_id"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	Name        string `json:"name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", requestID,
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	person, err := id.ParsePersonID(req.PersonID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	token, account, err := h.accounts.Authenticate(ctx, person, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"request_id", requestID,
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		Role:        account.Role.String(),
		Name:        account.Name,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// RequireAuth already vetted the header; re-parse for jti and expiry.
	const bearerPrefix = "Bearer "
	raw := r.Header.Get("Authorization")
	if len(raw) <= len(bearerPrefix) {
		shared.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing token"))
		return
	}
	claims, err := h.inspector.ValidateToken(raw[len(bearerPrefix):])
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.accounts.Logout(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		h.logger.ErrorContext(ctx, "logout failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to log out"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.accounts.ChangePassword(ctx, actor, req.OldPassword, req.NewPassword); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	account, err := h.accounts.Get(ctx, requestcontext.Actor(ctx))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, account)
}
