package main

import (
	"context"

	accountmodels "btoflow/internal/account/models"
	appmodels "btoflow/internal/application/models"
	projectmodels "btoflow/internal/project/models"
	regmodels "btoflow/internal/registration/models"
	id "btoflow/pkg/domain"
)

// The union interfaces below cover every consumer of a store so one wiring
// path serves both the memory and postgres implementations.

type accountStore interface {
	Create(ctx context.Context, a *accountmodels.Account) error
	FindByID(ctx context.Context, person id.PersonID) (*accountmodels.Account, error)
	Execute(ctx context.Context, person id.PersonID, validate func(*accountmodels.Account) error, mutate func(*accountmodels.Account)) (*accountmodels.Account, error)
	ListByRole(ctx context.Context, role id.Role) ([]*accountmodels.Account, error)
}

type projectStore interface {
	CreateIfNameAvailable(ctx context.Context, p *projectmodels.Project) error
	FindByName(ctx context.Context, name string) (*projectmodels.Project, error)
	List(ctx context.Context) ([]*projectmodels.Project, error)
	ListByManager(ctx context.Context, manager id.PersonID) ([]*projectmodels.Project, error)
	Execute(ctx context.Context, name string, validate func(*projectmodels.Project) error, mutate func(*projectmodels.Project)) (*projectmodels.Project, error)
	Replace(ctx context.Context, name string, p *projectmodels.Project) error
	Delete(ctx context.Context, name string) error
}

type applicationStore interface {
	CreateIfNoneActive(ctx context.Context, app *appmodels.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*appmodels.Application, error)
	FindActiveByApplicant(ctx context.Context, applicant id.PersonID) (*appmodels.Application, error)
	ListByApplicant(ctx context.Context, applicant id.PersonID) ([]*appmodels.Application, error)
	ListByProject(ctx context.Context, projectName string) ([]*appmodels.Application, error)
	CountActiveByProject(ctx context.Context, projectName string) (int, error)
	Execute(ctx context.Context, appID id.ApplicationID, validate func(*appmodels.Application) error, mutate func(*appmodels.Application)) (*appmodels.Application, error)
}

type registrationStore interface {
	CreateIfNoneActive(ctx context.Context, reg *regmodels.Registration) error
	FindByID(ctx context.Context, regID id.RegistrationID) (*regmodels.Registration, error)
	FindActiveByOfficer(ctx context.Context, officer id.PersonID) (*regmodels.Registration, error)
	FindPending(ctx context.Context, officer id.PersonID, projectName string) (*regmodels.Registration, error)
	ListPendingByProject(ctx context.Context, projectName string) ([]*regmodels.Registration, error)
	CountActiveByProject(ctx context.Context, projectName string) (int, error)
	Execute(ctx context.Context, regID id.RegistrationID, validate func(*regmodels.Registration) error, mutate func(*regmodels.Registration)) (*regmodels.Registration, error)
	Delete(ctx context.Context, regID id.RegistrationID) error
}
