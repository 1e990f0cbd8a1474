package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// OrganizationService handles tenant lifecycle, membership and credentials.
type OrganizationService struct {
	store store.Store
}

func NewOrganizationService(s store.Store) *OrganizationService {
	return &OrganizationService{store: s}
}

// CreateOrganization registers a tenant owned by an existing user. The owner
// is implicit and never appears in the member list.
func (s *OrganizationService) CreateOrganization(ctx context.Context, name, owner string, webhookURL *string) (*model.Organization, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: organization name is required", model.ErrValidation)
	}
	if owner == "" {
		return nil, fmt.Errorf("%w: owner is required", model.ErrValidation)
	}
	if _, err := s.store.Users().Get(ctx, owner); err != nil {
		return nil, fmt.Errorf("owner lookup: %w", err)
	}

	org := &model.Organization{
		OrgID:        uuid.NewString(),
		Name:         name,
		Owner:        owner,
		Members:      []model.OrgMember{},
		APIKeys:      []model.OrgAPIKey{},
		WebhookURL:   webhookURL,
		CreationTime: time.Now().UTC(),
	}
	return s.store.Organizations().Create(ctx, org)
}

func (s *OrganizationService) GetOrganization(ctx context.Context, orgID string) (*model.Organization, error) {
	return s.store.Organizations().GetByID(ctx, orgID)
}

func (s *OrganizationService) ListOrganizations(ctx context.Context) ([]*model.Organization, error) {
	return s.store.Organizations().List(ctx)
}

func (s *OrganizationService) DeleteOrganization(ctx context.Context, orgID string) error {
	return s.store.Organizations().Delete(ctx, orgID)
}

// SetWebhookURL points contract event delivery at url; nil disables it.
func (s *OrganizationService) SetWebhookURL(ctx context.Context, orgID string, url *string) (*model.Organization, error) {
	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	org.WebhookURL = url
	return s.store.Organizations().Update(ctx, org)
}

// AddMember enrolls an existing user with an org-internal role. The owner
// cannot be enrolled and a user holds at most one role per organization.
func (s *OrganizationService) AddMember(ctx context.Context, orgID, username string, role model.OrgRole) (*model.Organization, error) {
	switch role {
	case model.OrgRoleAdmin, model.OrgRoleManager, model.OrgRoleEvaluator:
	case model.OrgRoleOwner:
		return nil, fmt.Errorf("%w: OWNER is derived from ownership, not assignable", model.ErrValidation)
	default:
		return nil, fmt.Errorf("%w: unknown org role %q", model.ErrValidation, role)
	}
	if _, err := s.store.Users().Get(ctx, username); err != nil {
		return nil, fmt.Errorf("member lookup: %w", err)
	}

	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if username == org.Owner {
		return nil, fmt.Errorf("%w: %s already owns the organization", model.ErrConflict, username)
	}
	if _, ok := org.MemberRole(username); ok {
		return nil, fmt.Errorf("%w: %s is already a member", model.ErrConflict, username)
	}

	org.Members = append(org.Members, model.OrgMember{Username: username, Role: role})
	return s.store.Organizations().Update(ctx, org)
}

func (s *OrganizationService) RemoveMember(ctx context.Context, orgID, username string) (*model.Organization, error) {
	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if username == org.Owner {
		return nil, fmt.Errorf("%w: the owner cannot be removed, transfer ownership first", model.ErrValidation)
	}

	kept := org.Members[:0]
	found := false
	for _, m := range org.Members {
		if m.Username == username {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s is not a member", model.ErrNotFound, username)
	}
	org.Members = kept
	return s.store.Organizations().Update(ctx, org)
}

// TransferOwnership makes newOwner the owner. The previous owner stays on as
// an org admin; a prior membership entry for newOwner is dropped since the
// owner is implicit.
func (s *OrganizationService) TransferOwnership(ctx context.Context, orgID, newOwner string) (*model.Organization, error) {
	if _, err := s.store.Users().Get(ctx, newOwner); err != nil {
		return nil, fmt.Errorf("new owner lookup: %w", err)
	}

	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if newOwner == org.Owner {
		return nil, fmt.Errorf("%w: %s already owns the organization", model.ErrConflict, newOwner)
	}

	kept := org.Members[:0]
	for _, m := range org.Members {
		if m.Username == newOwner {
			continue
		}
		kept = append(kept, m)
	}
	org.Members = append(kept, model.OrgMember{Username: org.Owner, Role: model.OrgRoleAdmin})
	org.Owner = newOwner
	return s.store.Organizations().Update(ctx, org)
}

// IssueAPIKey mints an organization credential with the given scope. The raw
// key value is returned once in the new entry.
func (s *OrganizationService) IssueAPIKey(ctx context.Context, orgID, name string, scope model.OrgScope) (*model.OrgAPIKey, error) {
	switch scope {
	case model.OrgScopeAll, model.OrgScopeManagement, model.OrgScopeEvaluation:
	default:
		return nil, fmt.Errorf("%w: unknown key scope %q", model.ErrValidation, scope)
	}

	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	entry := model.OrgAPIKey{
		Key:          NewOrgAPIKey(),
		Name:         name,
		Scope:        scope,
		CreationTime: time.Now().UTC(),
	}
	org.APIKeys = append(org.APIKeys, entry)
	if _, err := s.store.Organizations().Update(ctx, org); err != nil {
		return nil, err
	}
	return &entry, nil
}

// RevokeAPIKey removes the credential matching the raw key value.
func (s *OrganizationService) RevokeAPIKey(ctx context.Context, orgID, rawKey string) error {
	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return err
	}

	kept := org.APIKeys[:0]
	found := false
	for _, k := range org.APIKeys {
		if k.Key == rawKey {
			found = true
			continue
		}
		kept = append(kept, k)
	}
	if !found {
		return fmt.Errorf("%w: no such API key", model.ErrNotFound)
	}
	org.APIKeys = kept
	_, err = s.store.Organizations().Update(ctx, org)
	return err
}
