package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"btoflow/internal/project/models"
	id "btoflow/pkg/domain"
	dErrors "btoflow/pkg/domain-errors"
	"btoflow/pkg/platform/sentinel"
)

type ProjectStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestProjectStoreSuite(t *testing.T) {
	suite.Run(t, new(ProjectStoreSuite))
}

func (s *ProjectStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ProjectStoreSuite) newProject(name string) *models.Project {
	open := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	p, err := models.NewProject(name, "Yishun", open, open.AddDate(0, 1, 0),
		"S5555555M", 3, map[id.FlatType]int{id.FlatTypeTwoRoom: 2, id.FlatTypeThreeRoom: 3}, time.Now())
	s.Require().NoError(err)
	return p
}

func (s *ProjectStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by name", func() {
		p := s.newProject("Acacia Breeze")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, p))

		found, err := s.store.FindByName(s.ctx, "Acacia Breeze")
		s.Require().NoError(err)
		s.Equal(p.Neighborhood, found.Neighborhood)
	})

	s.Run("lookup is case-insensitive", func() {
		found, err := s.store.FindByName(s.ctx, "ACACIA breeze")
		s.Require().NoError(err)
		s.Equal("Acacia Breeze", found.Name)
	})

	s.Run("returns ErrNotFound for unknown name", func() {
		_, err := s.store.FindByName(s.ctx, "Nowhere")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate name regardless of case", func() {
		dup := s.newProject("acacia BREEZE")
		s.Require().ErrorIs(s.store.CreateIfNameAvailable(s.ctx, dup), sentinel.ErrAlreadyUsed)
	})
}

func (s *ProjectStoreSuite) TestExecute() {
	p := s.newProject("Maple Grove")
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, p))

	s.Run("mutates under validation", func() {
		updated, err := s.store.Execute(s.ctx, "maple grove",
			func(p *models.Project) error { return p.CanReserve(id.FlatTypeTwoRoom) },
			func(p *models.Project) { p.ApplyReserve(id.FlatTypeTwoRoom, time.Now()) },
		)
		s.Require().NoError(err)
		s.Equal(1, updated.UnitsOf(id.FlatTypeTwoRoom))
	})

	s.Run("validation failure leaves state unchanged", func() {
		_, err := s.store.Execute(s.ctx, "Maple Grove",
			func(p *models.Project) error {
				return dErrors.New(dErrors.CodeConflict, "nope")
			},
			func(p *models.Project) { p.ApplyReserve(id.FlatTypeTwoRoom, time.Now()) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByName(s.ctx, "Maple Grove")
		s.Require().NoError(err)
		s.Equal(1, found.UnitsOf(id.FlatTypeTwoRoom))
	})

	s.Run("reads never alias stored state", func() {
		found, err := s.store.FindByName(s.ctx, "Maple Grove")
		s.Require().NoError(err)
		found.Units[id.FlatTypeTwoRoom] = 99

		again, err := s.store.FindByName(s.ctx, "Maple Grove")
		s.Require().NoError(err)
		s.Equal(1, again.UnitsOf(id.FlatTypeTwoRoom))
	})
}

func (s *ProjectStoreSuite) TestReplaceAndDelete() {
	p := s.newProject("Riverside")
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, p))

	s.Run("rename rekeys the record", func() {
		renamed := p.Clone()
		renamed.Name = "Riverside Peak"
		s.Require().NoError(s.store.Replace(s.ctx, "Riverside", renamed))

		_, err := s.store.FindByName(s.ctx, "Riverside")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
		found, err := s.store.FindByName(s.ctx, "riverside peak")
		s.Require().NoError(err)
		s.Equal("Riverside Peak", found.Name)
	})

	s.Run("rename onto taken name fails", func() {
		other := s.newProject("Taken")
		s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, other))

		clash := other.Clone()
		clash.Name = "Riverside Peak"
		s.Require().ErrorIs(s.store.Replace(s.ctx, "Taken", clash), sentinel.ErrAlreadyUsed)
	})

	s.Run("delete removes the record", func() {
		s.Require().NoError(s.store.Delete(s.ctx, "Riverside Peak"))
		_, err := s.store.FindByName(s.ctx, "Riverside Peak")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("delete of unknown project fails", func() {
		s.Require().ErrorIs(s.store.Delete(s.ctx, "Riverside Peak"), sentinel.ErrNotFound)
	})
}

func (s *ProjectStoreSuite) TestListByManager() {
	a := s.newProject("Alpha")
	b := s.newProject("Beta")
	b.ManagerID = "T9999999X"
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, a))
	s.Require().NoError(s.store.CreateIfNameAvailable(s.ctx, b))

	mine, err := s.store.ListByManager(s.ctx, "S5555555M")
	s.Require().NoError(err)
	s.Len(mine, 1)
	s.Equal("Alpha", mine[0].Name)
}
