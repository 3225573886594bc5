package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"btoflow/internal/registration/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

type RegistrationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestRegistrationStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistrationStoreSuite))
}

func (s *RegistrationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *RegistrationStoreSuite) newRegistration(officer id.PersonID, project string) *models.Registration {
	reg, err := models.NewRegistration(officer, project, time.Now())
	s.Require().NoError(err)
	return reg
}

func (s *RegistrationStoreSuite) TestOneActivePerOfficer() {
	first := s.newRegistration("T2222222E", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, first))

	s.Run("second active registration is rejected", func() {
		second := s.newRegistration("T2222222E", "Maple Grove")
		s.Require().ErrorIs(s.store.CreateIfNoneActive(s.ctx, second), sentinel.ErrAlreadyUsed)
	})

	s.Run("a rejected registration does not block a new one", func() {
		_, err := s.store.Execute(s.ctx, first.ID,
			func(r *models.Registration) error { return r.CanReject() },
			func(r *models.Registration) { r.ApplyRejection(time.Now()) },
		)
		s.Require().NoError(err)

		second := s.newRegistration("T2222222E", "Maple Grove")
		s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, second))
	})
}

func (s *RegistrationStoreSuite) TestLookups() {
	reg := s.newRegistration("T2222222E", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, reg))

	s.Run("finds active by officer", func() {
		found, err := s.store.FindActiveByOfficer(s.ctx, "T2222222E")
		s.Require().NoError(err)
		s.Equal(reg.ID, found.ID)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("finds pending by officer and project case-insensitively", func() {
		found, err := s.store.FindPending(s.ctx, "T2222222E", "ACACIA breeze")
		s.Require().NoError(err)
		s.Equal(reg.ID, found.ID)
	})

	s.Run("lists pending for a project", func() {
		other := s.newRegistration("T3333333G", "Acacia Breeze")
		s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, other))

		pending, err := s.store.ListPendingByProject(s.ctx, "Acacia Breeze")
		s.Require().NoError(err)
		s.Len(pending, 2)
	})

	s.Run("unknown officer reads as not found", func() {
		_, err := s.store.FindActiveByOfficer(s.ctx, "T9999999Z")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistrationStoreSuite) TestCountActiveByProject() {
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, s.newRegistration("T2222222E", "Acacia Breeze")))
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, s.newRegistration("T3333333G", "acacia breeze")))
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, s.newRegistration("T4444444H", "Maple Grove")))

	count, err := s.store.CountActiveByProject(s.ctx, "Acacia Breeze")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RegistrationStoreSuite) TestDelete() {
	reg := s.newRegistration("T2222222E", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, reg))

	s.Require().NoError(s.store.Delete(s.ctx, reg.ID))
	s.Require().ErrorIs(s.store.Delete(s.ctx, reg.ID), sentinel.ErrNotFound)

	_, err := s.store.FindActiveByOfficer(s.ctx, "T2222222E")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}
