package services

import (
	"context"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// AuthService adapts the store to the credential lookup interfaces consumed
// by the request resolver and the org-role guard.
type AuthService struct {
	store store.Store
}

func NewAuthService(s store.Store) *AuthService { return &AuthService{store: s} }

func (s *AuthService) UserByAPIKey(ctx context.Context, key string) (*model.User, error) {
	return s.store.Users().GetByAPIKey(ctx, key)
}

func (s *AuthService) OrgByAPIKey(ctx context.Context, key string) (*model.Organization, *model.OrgAPIKey, error) {
	return s.store.Organizations().GetByAPIKey(ctx, key)
}

func (s *AuthService) OrgByID(ctx context.Context, orgID string) (*model.Organization, error) {
	return s.store.Organizations().GetByID(ctx, orgID)
}
