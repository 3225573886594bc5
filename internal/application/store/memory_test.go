package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"btoflow/internal/application/models"
	id "btoflow/pkg/domain"
	"btoflow/pkg/platform/sentinel"
)

type ApplicationStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestApplicationStoreSuite(t *testing.T) {
	suite.Run(t, new(ApplicationStoreSuite))
}

func (s *ApplicationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ApplicationStoreSuite) newApplication(applicant id.PersonID, project string) *models.Application {
	app, err := models.NewApplication(applicant, project, id.FlatTypeThreeRoom, time.Now())
	s.Require().NoError(err)
	return app
}

func (s *ApplicationStoreSuite) TestOneActivePerApplicant() {
	first := s.newApplication("S1234567A", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, first))

	s.Run("second active application is rejected", func() {
		second := s.newApplication("S1234567A", "Maple Grove")
		s.Require().ErrorIs(s.store.CreateIfNoneActive(s.ctx, second), sentinel.ErrAlreadyUsed)
	})

	s.Run("first application is unchanged by the failed insert", func() {
		found, err := s.store.FindByID(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal("Acacia Breeze", found.ProjectName)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("terminal application does not block a new one", func() {
		_, err := s.store.Execute(s.ctx, first.ID,
			func(a *models.Application) error { return a.CanReject() },
			func(a *models.Application) { a.ApplyRejection(time.Now()) },
		)
		s.Require().NoError(err)

		second := s.newApplication("S1234567A", "Maple Grove")
		s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, second))
	})
}

func (s *ApplicationStoreSuite) TestLookups() {
	app := s.newApplication("S1234567A", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, app))

	s.Run("finds active by applicant", func() {
		found, err := s.store.FindActiveByApplicant(s.ctx, "S1234567A")
		s.Require().NoError(err)
		s.Equal(app.ID, found.ID)
	})

	s.Run("no active application reads as not found", func() {
		_, err := s.store.FindActiveByApplicant(s.ctx, "T7654321Z")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("lists by project case-insensitively", func() {
		apps, err := s.store.ListByProject(s.ctx, "ACACIA BREEZE")
		s.Require().NoError(err)
		s.Len(apps, 1)
	})

	s.Run("counts active by project", func() {
		n, err := s.store.CountActiveByProject(s.ctx, "acacia breeze")
		s.Require().NoError(err)
		s.Equal(1, n)
	})
}

func (s *ApplicationStoreSuite) TestExecute() {
	app := s.newApplication("S1234567A", "Acacia Breeze")
	s.Require().NoError(s.store.CreateIfNoneActive(s.ctx, app))

	s.Run("validation failure leaves the record unchanged", func() {
		_, err := s.store.Execute(s.ctx, app.ID,
			func(a *models.Application) error { return a.CanBook() },
			func(a *models.Application) { a.ApplyBooking(time.Now()) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, app.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, found.Status)
	})

	s.Run("unknown id reads as not found", func() {
		_, err := s.store.Execute(s.ctx, id.NewApplicationID(),
			func(a *models.Application) error { return nil },
			func(a *models.Application) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
