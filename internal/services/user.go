package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/server/internal/auth"
	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// UserService handles individual account operations.
type UserService struct {
	store store.Store
}

func NewUserService(s store.Store) *UserService { return &UserService{store: s} }

// CreateUser registers a new account and issues its personal API key.
// The key is returned once in the created record.
func (s *UserService) CreateUser(ctx context.Context, u *model.User) (*model.User, error) {
	if u.Username == "" {
		return nil, fmt.Errorf("%w: username is required", model.ErrValidation)
	}
	if u.Email == "" {
		return nil, fmt.Errorf("%w: email is required", model.ErrValidation)
	}
	switch u.Role {
	case model.UserRoleAdmin, model.UserRoleUser:
	case "":
		u.Role = model.UserRoleUser
	default:
		return nil, fmt.Errorf("%w: unknown role %q", model.ErrValidation, u.Role)
	}

	u.APIKey = NewUserAPIKey()
	u.Status = "ACTIVE"
	u.CreationTime = time.Now().UTC()
	return s.store.Users().Create(ctx, u)
}

func (s *UserService) GetUser(ctx context.Context, username string) (*model.User, error) {
	return s.store.Users().Get(ctx, username)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.store.Users().List(ctx)
}

func (s *UserService) DeleteUser(ctx context.Context, username string) error {
	return s.store.Users().Delete(ctx, username)
}

// NewUserAPIKey mints a personal credential. The prefix identifies the
// credential kind; the remainder is an opaque random token.
func NewUserAPIKey() string {
	return auth.UserKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewOrgAPIKey mints an organization credential.
func NewOrgAPIKey() string {
	return auth.OrgKeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}
