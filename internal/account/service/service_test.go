package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"btoflow/internal/account/store"
	"btoflow/internal/account/store/revocation"
	jwttoken "btoflow/internal/jwt_token"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

type AccountServiceSuite struct {
	suite.Suite
	accounts *store.InMemory
	jwt      *jwttoken.JWTService
	trl      *revocation.InMemoryTRL
	svc      *Service
	ctx      context.Context
}

func TestAccountServiceSuite(t *testing.T) {
	suite.Run(t, new(AccountServiceSuite))
}

const person = id.PersonID("S1234567A")

func (s *AccountServiceSuite) SetupTest() {
	s.accounts = store.NewInMemory()
	s.jwt = jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	s.trl = revocation.NewInMemoryTRL()
	s.svc = New(s.accounts, s.jwt, s.trl)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC))

	_, err := s.svc.CreateAccount(s.ctx, person, "Jamie Tan", 36, id.Married, id.RoleApplicant, "password")
	s.Require().NoError(err)
}

func (s *AccountServiceSuite) TestAuthenticate() {
	s.Run("issues a token for valid credentials", func() {
		token, account, err := s.svc.Authenticate(s.ctx, person, "password")
		s.Require().NoError(err)
		s.Require().NotEmpty(token)
		s.Equal(person, account.ID)

		claims, err := s.jwt.ValidateToken(token)
		s.Require().NoError(err)
		s.Equal(person.String(), claims.PersonID)
		s.Equal(id.RoleApplicant.String(), claims.Role)
	})

	s.Run("wrong password is unauthorized", func() {
		_, _, err := s.svc.Authenticate(s.ctx, person, "wrong")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown account is indistinguishable from wrong password", func() {
		_, _, err := s.svc.Authenticate(s.ctx, "T9999999X", "password")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AccountServiceSuite) TestLogout() {
	token, _, err := s.svc.Authenticate(s.ctx, person, "password")
	s.Require().NoError(err)
	claims, err := s.jwt.ValidateToken(token)
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Logout(s.ctx, claims.ID, claims.ExpiresAt.Time))

	revoked, err := s.trl.IsRevoked(s.ctx, claims.ID)
	s.Require().NoError(err)
	s.True(revoked)
}

func (s *AccountServiceSuite) TestChangePassword() {
	s.Run("requires the current password", func() {
		err := s.svc.ChangePassword(s.ctx, person, "wrong", "newpassword")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		_, _, err = s.svc.Authenticate(s.ctx, person, "password")
		s.Require().NoError(err)
	})

	s.Run("swaps the credential", func() {
		s.Require().NoError(s.svc.ChangePassword(s.ctx, person, "password", "newpassword"))

		_, _, err := s.svc.Authenticate(s.ctx, person, "password")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		_, _, err = s.svc.Authenticate(s.ctx, person, "newpassword")
		s.Require().NoError(err)
	})

	s.Run("rejects an empty replacement", func() {
		err := s.svc.ChangePassword(s.ctx, person, "newpassword", "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown account is not found", func() {
		err := s.svc.ChangePassword(s.ctx, "T9999999X", "password", "newpassword")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *AccountServiceSuite) TestDuplicateAccount() {
	_, err := s.svc.CreateAccount(s.ctx, person, "Jamie Tan", 36, id.Married, id.RoleApplicant, "password")
	s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
}
