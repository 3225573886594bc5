package records

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	accountservice "btoflow/internal/account/service"
	accountstore "btoflow/internal/account/store"
	"btoflow/internal/account/store/revocation"
	jwttoken "btoflow/internal/jwt_token"
	projectstore "btoflow/internal/project/store"
	id "btoflow/pkg/domain"
)

type LoaderSuite struct {
	suite.Suite
	dir      string
	accounts *accountstore.InMemory
	projects *projectstore.InMemory
	loader   *Loader
	ctx      context.Context
}

func TestLoaderSuite(t *testing.T) {
	suite.Run(t, new(LoaderSuite))
}

func (s *LoaderSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.accounts = accountstore.NewInMemory()
	s.projects = projectstore.NewInMemory()

	jwt := jwttoken.NewJWTService("test-signing-key", "test-issuer", "test-audience")
	svc := accountservice.New(s.accounts, jwt, revocation.NewInMemoryTRL())
	s.loader = NewLoader(svc, s.projects, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	s.ctx = context.Background()
}

func (s *LoaderSuite) writeFile(name, content string) {
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, name), []byte(content), 0o600))
}

func (s *LoaderSuite) TestLoadAccounts() {
	s.writeFile("ApplicantList.txt",
		"Name\tNRIC\tAge\tMarital Status\tPassword\n"+
			"John\tS1234567A\t35\tSingle\tpassword\n"+
			"Sarah\tT7654321B\t40\tMarried\tpassword\n")
	s.writeFile("ManagerList.txt",
		"Name\tNRIC\tAge\tMarital Status\tPassword\n"+
			"Michael\tT8765432F\t36\tSingle\tpassword\n")

	s.Require().NoError(s.loader.Load(s.ctx, s.dir))

	john, err := s.accounts.FindByID(s.ctx, id.PersonID("S1234567A"))
	s.Require().NoError(err)
	s.Equal("John", john.Name)
	s.Equal(35, john.Age)
	s.Equal(id.Single, john.MaritalStatus)
	s.Equal(id.RoleApplicant, john.Role)

	michael, err := s.accounts.FindByID(s.ctx, id.PersonID("T8765432F"))
	s.Require().NoError(err)
	s.Equal(id.RoleManager, michael.Role)
}

func (s *LoaderSuite) TestLoadProjects() {
	s.writeFile("ProjectList.txt",
		"Project Name\tNeighborhood\tType 1\tNumber of units for Type 1\tType 2\tNumber of units for Type 2\tApplication opening date\tApplication closing date\tManager\tOfficer Slot\tOfficer\n"+
			"Acacia Breeze\tYishun\t2-Room\t2\t3-Room\t3\t15/02/2025\t20/03/2025\tT8765432F\t3\t\"T2222222E,T3333333G\"\n")

	s.Require().NoError(s.loader.Load(s.ctx, s.dir))

	project, err := s.projects.FindByName(s.ctx, "Acacia Breeze")
	s.Require().NoError(err)
	s.Equal("Yishun", project.Neighborhood)
	s.Equal(id.PersonID("T8765432F"), project.ManagerID)
	s.Equal(3, project.MaxOfficers)
	s.Equal(2, project.Units[id.FlatTypeTwoRoom])
	s.Equal(3, project.Units[id.FlatTypeThreeRoom])
	s.True(project.HasOfficer(id.PersonID("T2222222E")))
	s.True(project.HasOfficer(id.PersonID("T3333333G")))
	s.True(project.Visible)
}

func (s *LoaderSuite) TestMalformedRowsAreSkipped() {
	s.writeFile("ApplicantList.txt",
		"Name\tNRIC\tAge\tMarital Status\tPassword\n"+
			"Broken\tS9999999X\tnot-a-number\tSingle\tpassword\n"+
			"John\tS1234567A\t35\tSingle\tpassword\n")

	s.Require().NoError(s.loader.Load(s.ctx, s.dir))

	_, err := s.accounts.FindByID(s.ctx, id.PersonID("S1234567A"))
	s.Require().NoError(err)
	_, err = s.accounts.FindByID(s.ctx, id.PersonID("S9999999X"))
	s.Require().Error(err)
}

func (s *LoaderSuite) TestRosterBeyondSlotCountIsSkipped() {
	s.writeFile("ProjectList.txt",
		"Project Name\tNeighborhood\tType 1\tUnits 1\tType 2\tUnits 2\tOpen\tClose\tManager\tSlots\tOfficer\n"+
			"Acacia Breeze\tYishun\t2-Room\t2\t3-Room\t3\t15/02/2025\t20/03/2025\tT8765432F\t1\t\"T2222222E,T3333333G\"\n"+
			"Maple Grove\tTampines\t2-Room\t2\t3-Room\t3\t15/02/2025\t20/03/2025\tT8765432F\t2\tT2222222E\n")

	s.Require().NoError(s.loader.Load(s.ctx, s.dir))

	// Two officers against one slot: the row is rejected whole.
	_, err := s.projects.FindByName(s.ctx, "Acacia Breeze")
	s.Require().Error(err)

	maple, err := s.projects.FindByName(s.ctx, "Maple Grove")
	s.Require().NoError(err)
	s.True(maple.HasOfficer(id.PersonID("T2222222E")))
}

func (s *LoaderSuite) TestReloadIsIdempotent() {
	s.writeFile("ApplicantList.txt",
		"Name\tNRIC\tAge\tMarital Status\tPassword\n"+
			"John\tS1234567A\t35\tSingle\tpassword\n")
	s.writeFile("ProjectList.txt",
		"Project Name\tNeighborhood\tType 1\tUnits 1\tType 2\tUnits 2\tOpen\tClose\tManager\tSlots\n"+
			"Acacia Breeze\tYishun\t2-Room\t2\t3-Room\t3\t15/02/2025\t20/03/2025\tT8765432F\t3\n")

	s.Require().NoError(s.loader.Load(s.ctx, s.dir))
	s.Require().NoError(s.loader.Load(s.ctx, s.dir))

	projects, err := s.projects.List(s.ctx)
	s.Require().NoError(err)
	s.Len(projects, 1)
}

func (s *LoaderSuite) TestMissingFilesAreTolerated() {
	s.Require().NoError(s.loader.Load(s.ctx, s.dir))
}
