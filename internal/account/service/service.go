package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"btoflow/internal/account/models"
	"btoflow/internal/audit"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
	"btoflow/pkg/requestcontext"
)

// AccountStore is the credential persistence the service needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	FindByID(ctx context.Context, person id.PersonID) (*models.Account, error)
	Execute(ctx context.Context, person id.PersonID, validate func(*models.Account) error, mutate func(*models.Account)) (*models.Account, error)
}

// TokenIssuer signs access tokens for authenticated sessions.
type TokenIssuer interface {
	GenerateAccessToken(personID, role string, expiresIn time.Duration) (string, error)
}

// TokenRevoker blacklists a token id until its natural expiry.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuditPublisher captures account outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns accounts and sessions: login, logout and password changes.
type Service struct {
	accounts       AccountStore
	tokens         TokenIssuer
	revoker        TokenRevoker
	tokenTTL       time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.tokenTTL = ttl }
}

// New constructs the account service.
func New(accounts AccountStore, tokens TokenIssuer, revoker TokenRevoker, opts ...Option) *Service {
	s := &Service{
		accounts: accounts,
		tokens:   tokens,
		revoker:  revoker,
		tokenTTL: time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateAccount registers a person with an initial password. Used by the
// records loader and by operator seeding.
func (s *Service) CreateAccount(ctx context.Context, person id.PersonID, name string, age int, marital id.MaritalStatus, role id.Role, password string) (*models.Account, error) {
	now := requestcontext.Now(ctx)
	account, err := models.NewAccount(person, name, age, marital, role, now)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	account.ApplyPasswordHash(string(hash), now)

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "account already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
	}
	return account, nil
}

// Authenticate verifies credentials and issues an access token. A missing
// account and a wrong password return the same Unauthorized outcome.
func (s *Service) Authenticate(ctx context.Context, person id.PersonID, password string) (string, *models.Account, error) {
	account, err := s.accounts.FindByID(ctx, person)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.tokens.GenerateAccessToken(account.ID.String(), account.Role.String(), s.tokenTTL)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return token, account, nil
}

// Logout revokes the session's token id until its natural expiry.
func (s *Service) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.RevokeToken(ctx, jti, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	return nil
}

// ChangePassword swaps the credential after verifying the old one. Runs under
// the store lock so a concurrent change cannot slip between compare and swap.
func (s *Service) ChangePassword(ctx context.Context, person id.PersonID, oldPassword, newPassword string) error {
	if len(newPassword) == 0 {
		return dErrors.New(dErrors.CodeValidation, "new password cannot be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	_, err = s.accounts.Execute(ctx, person,
		func(a *models.Account) error {
			if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(oldPassword)) != nil {
				return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
			}
			return nil
		},
		func(a *models.Account) {
			a.ApplyPasswordHash(string(hash), now)
		},
	)
	if err != nil {
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to change password")
	}

	s.logAudit(ctx, audit.Event{Actor: person, Action: audit.ActionPasswordChanged})
	return nil
}

// Get resolves one account.
func (s *Service) Get(ctx context.Context, person id.PersonID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, person)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return account, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action,
			"actor", event.Actor.String(),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	if s.auditPublisher != nil {
		_ = s.auditPublisher.Emit(ctx, event)
	}
}
