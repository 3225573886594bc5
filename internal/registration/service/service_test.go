package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	appmodels "btoflow/internal/application/models"
	appstore "btoflow/internal/application/store"
	projectmodels "btoflow/internal/project/models"
	projectstore "btoflow/internal/project/store"
	"btoflow/internal/registration/models"
	regstore "btoflow/internal/registration/store"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/requestcontext"
)

type RegistrationServiceSuite struct {
	suite.Suite
	regs     *regstore.InMemory
	projects *projectstore.InMemory
	apps     *appstore.InMemory
	svc      *Service
	ctx      context.Context
	now      time.Time
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

const (
	officerA     = id.PersonID("T2222222E")
	officerB     = id.PersonID("T3333333G")
	manager      = id.PersonID("T8765432F")
	otherManager = id.PersonID("S2345678C")
)

func (s *RegistrationServiceSuite) SetupTest() {
	s.regs = regstore.NewInMemory()
	s.projects = projectstore.NewInMemory()
	s.apps = appstore.NewInMemory()
	s.svc = New(s.regs, s.projects, s.apps)
	s.now = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.seedProject("Acacia Breeze", manager, 1)
}

func (s *RegistrationServiceSuite) seedProject(name string, owner id.PersonID, maxOfficers int) {
	open := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p, err := projectmodels.NewProject(name, "Yishun", open, open.AddDate(0, 1, 0), owner, maxOfficers,
		map[id.FlatType]int{id.FlatTypeTwoRoom: 2}, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.projects.CreateIfNameAvailable(s.ctx, p))
}

func (s *RegistrationServiceSuite) hasOfficer(name string, person id.PersonID) bool {
	p, err := s.projects.FindByName(s.ctx, name)
	s.Require().NoError(err)
	return p.HasOfficer(person)
}

func (s *RegistrationServiceSuite) TestRegister() {
	s.Run("submits a pending registration", func() {
		reg, err := s.svc.Register(s.ctx, officerA, "acacia breeze")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
		s.Equal("Acacia Breeze", reg.ProjectName)
	})

	s.Run("second active registration is refused", func() {
		_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("active application on the project is a conflict", func() {
		app, err := appmodels.NewApplication(officerB, "Acacia Breeze", id.FlatTypeTwoRoom, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.apps.CreateIfNoneActive(s.ctx, app))

		_, err = s.svc.Register(s.ctx, officerB, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("active application elsewhere does not block", func() {
		s.seedProject("Maple Grove", otherManager, 2)
		reg, err := s.svc.Register(s.ctx, officerB, "Maple Grove")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
	})

	s.Run("unknown project is refused", func() {
		_, err := s.svc.Register(s.ctx, id.PersonID("T4444444H"), "Nowhere")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrationServiceSuite) TestApprovalCapacity() {
	// One officer slot. Two registrations race for it; the second approval
	// must fail and leave its registration pending.
	_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
	s.Require().NoError(err)
	_, err = s.svc.Register(s.ctx, officerB, "Acacia Breeze")
	s.Require().NoError(err)

	s.Run("only the owning manager may approve", func() {
		_, err := s.svc.ApproveRegistration(s.ctx, otherManager, officerA, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.False(s.hasOfficer("Acacia Breeze", officerA))
	})

	s.Run("first approval fills the slot", func() {
		reg, err := s.svc.ApproveRegistration(s.ctx, manager, officerA, "Acacia Breeze")
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, reg.Status)
		s.True(s.hasOfficer("Acacia Breeze", officerA))
	})

	s.Run("second approval fails on the full roster", func() {
		_, err := s.svc.ApproveRegistration(s.ctx, manager, officerB, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.False(s.hasOfficer("Acacia Breeze", officerB))

		reg, err := s.svc.Active(s.ctx, officerB)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
	})

	s.Run("the losing registration can still be rejected", func() {
		reg, err := s.svc.RejectRegistration(s.ctx, manager, officerB, "Acacia Breeze")
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, reg.Status)
	})

	s.Run("a rejected officer may register again", func() {
		s.seedProject("Maple Grove", otherManager, 2)
		reg, err := s.svc.Register(s.ctx, officerB, "Maple Grove")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
	})
}

func (s *RegistrationServiceSuite) TestApprovalConflictOfInterest() {
	// The conflict can arise after registration: officer registers first,
	// applies to the same project second. Approval must re-check it.
	_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
	s.Require().NoError(err)

	app, err := appmodels.NewApplication(officerA, "Acacia Breeze", id.FlatTypeTwoRoom, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.apps.CreateIfNoneActive(s.ctx, app))

	s.Run("approval is refused while the application is active", func() {
		_, err := s.svc.ApproveRegistration(s.ctx, manager, officerA, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("registration stays pending and the roster stays empty", func() {
		reg, err := s.svc.Active(s.ctx, officerA)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
		s.False(s.hasOfficer("Acacia Breeze", officerA))
	})
}

func (s *RegistrationServiceSuite) TestCancel() {
	_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
	s.Require().NoError(err)

	s.Run("cancelling a pending registration frees the officer", func() {
		s.Require().NoError(s.svc.CancelRegistration(s.ctx, officerA))
		_, err := s.svc.Active(s.ctx, officerA)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("cancelling an approved registration leaves the roster", func() {
		_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
		s.Require().NoError(err)
		_, err = s.svc.ApproveRegistration(s.ctx, manager, officerA, "Acacia Breeze")
		s.Require().NoError(err)
		s.True(s.hasOfficer("Acacia Breeze", officerA))

		s.Require().NoError(s.svc.CancelRegistration(s.ctx, officerA))
		s.False(s.hasOfficer("Acacia Breeze", officerA))
	})

	s.Run("cancelling with nothing active fails", func() {
		err := s.svc.CancelRegistration(s.ctx, officerA)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RegistrationServiceSuite) TestWindowExpiry() {
	_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
	s.Require().NoError(err)
	_, err = s.svc.ApproveRegistration(s.ctx, manager, officerA, "Acacia Breeze")
	s.Require().NoError(err)

	s.Run("assignment survives while the window is open", func() {
		reg, err := s.svc.Active(s.ctx, officerA)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, reg.Status)
	})

	s.Run("closed window releases the officer on next registration", func() {
		later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 2, 0))
		s.seedProject("Next Launch", manager, 1)

		reg, err := s.svc.Register(later, officerA, "Next Launch")
		s.Require().NoError(err)
		s.Equal(models.StatusPending, reg.Status)
		s.False(s.hasOfficer("Acacia Breeze", officerA))
	})
}

func (s *RegistrationServiceSuite) TestReviewQueue() {
	_, err := s.svc.Register(s.ctx, officerA, "Acacia Breeze")
	s.Require().NoError(err)

	s.Run("owner sees the pending queue", func() {
		pending, err := s.svc.ListPending(s.ctx, manager, "Acacia Breeze")
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(officerA, pending[0].OfficerID)
	})

	s.Run("non-owner is refused", func() {
		_, err := s.svc.ListPending(s.ctx, otherManager, "Acacia Breeze")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
