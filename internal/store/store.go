package store

import (
	"context"

	"github.com/planfold/planfold/server/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Users() Users
	Organizations() Organizations
	Services() Services
	Contracts() Contracts
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, username string) (*model.User, error)
	GetByAPIKey(ctx context.Context, key string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
	Delete(ctx context.Context, username string) error
}

type Organizations interface {
	Create(ctx context.Context, o *model.Organization) (*model.Organization, error)
	GetByID(ctx context.Context, orgID string) (*model.Organization, error)
	// GetByAPIKey returns the organization holding the key and the matched
	// key entry; the entry carries the scope authoritative for that key.
	GetByAPIKey(ctx context.Context, key string) (*model.Organization, *model.OrgAPIKey, error)
	List(ctx context.Context) ([]*model.Organization, error)
	// Update replaces name, owner, members, API keys and webhook URL.
	Update(ctx context.Context, o *model.Organization) (*model.Organization, error)
	Delete(ctx context.Context, orgID string) error
}

type Services interface {
	Create(ctx context.Context, s *model.Service) (*model.Service, error)
	GetByID(ctx context.Context, serviceID string) (*model.Service, error)
	List(ctx context.Context) ([]*model.Service, error)
	Update(ctx context.Context, s *model.Service) (*model.Service, error)
	Delete(ctx context.Context, serviceID string) error
}

type Contracts interface {
	Create(ctx context.Context, c *model.Contract) (*model.Contract, error)
	GetByID(ctx context.Context, contractID string) (*model.Contract, error)
	ListByOrg(ctx context.Context, orgID string) ([]*model.Contract, error)
	// ActiveByOrgAndService returns the single ACTIVE contract between an
	// organization and a service, or model.ErrNotFound.
	ActiveByOrgAndService(ctx context.Context, orgID, serviceID string) (*model.Contract, error)
	Update(ctx context.Context, c *model.Contract) (*model.Contract, error)
}
