package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/planfold/planfold/server/internal/auth"
	"github.com/planfold/planfold/server/internal/model"
)

func seedUser(t *testing.T, fs *fakeStore, username string) {
	t.Helper()
	fs.users[username] = &model.User{Username: username, Email: username + "@example.com", Role: model.UserRoleUser}
}

func seedOrg(t *testing.T, fs *fakeStore, svc *OrganizationService, owner string) *model.Organization {
	t.Helper()
	seedUser(t, fs, owner)
	org, err := svc.CreateOrganization(context.Background(), "acme", owner, nil)
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	return org
}

func TestCreateOrganization_RequiresExistingOwner(t *testing.T) {
	svc := NewOrganizationService(newFakeStore())

	if _, err := svc.CreateOrganization(context.Background(), "acme", "ghost", nil); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not-found for unknown owner, got %v", err)
	}
}

func TestAddMember(t *testing.T) {
	fs := newFakeStore()
	svc := NewOrganizationService(fs)
	org := seedOrg(t, fs, svc, "owner")
	seedUser(t, fs, "bob")

	updated, err := svc.AddMember(context.Background(), org.OrgID, "bob", model.OrgRoleManager)
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	role, ok := updated.MemberRole("bob")
	if !ok || role != model.OrgRoleManager {
		t.Fatalf("member not enrolled: %+v", updated.Members)
	}

	// Duplicate enrollment and owner enrollment are conflicts.
	if _, err := svc.AddMember(context.Background(), org.OrgID, "bob", model.OrgRoleAdmin); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict for duplicate member, got %v", err)
	}
	if _, err := svc.AddMember(context.Background(), org.OrgID, "owner", model.OrgRoleAdmin); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict for owner enrollment, got %v", err)
	}
	if _, err := svc.AddMember(context.Background(), org.OrgID, "bob", model.OrgRoleOwner); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for OWNER role, got %v", err)
	}
}

func TestRemoveMember(t *testing.T) {
	fs := newFakeStore()
	svc := NewOrganizationService(fs)
	org := seedOrg(t, fs, svc, "owner")
	seedUser(t, fs, "bob")
	if _, err := svc.AddMember(context.Background(), org.OrgID, "bob", model.OrgRoleEvaluator); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	updated, err := svc.RemoveMember(context.Background(), org.OrgID, "bob")
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if _, ok := updated.MemberRole("bob"); ok {
		t.Fatal("member still present after removal")
	}

	if _, err := svc.RemoveMember(context.Background(), org.OrgID, "bob"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not-found for absent member, got %v", err)
	}
	if _, err := svc.RemoveMember(context.Background(), org.OrgID, "owner"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error removing the owner, got %v", err)
	}
}

func TestTransferOwnership(t *testing.T) {
	fs := newFakeStore()
	svc := NewOrganizationService(fs)
	org := seedOrg(t, fs, svc, "owner")
	seedUser(t, fs, "bob")
	if _, err := svc.AddMember(context.Background(), org.OrgID, "bob", model.OrgRoleManager); err != nil {
		t.Fatalf("AddMember: %v", err)
	}

	updated, err := svc.TransferOwnership(context.Background(), org.OrgID, "bob")
	if err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	if updated.Owner != "bob" {
		t.Fatalf("owner not transferred: %s", updated.Owner)
	}
	// New owner is implicit, previous owner stays on as org admin.
	role, ok := updated.MemberRole("bob")
	if !ok || role != model.OrgRoleOwner {
		t.Fatalf("new owner should resolve to OWNER, got %s/%v", role, ok)
	}
	for _, m := range updated.Members {
		if m.Username == "bob" {
			t.Fatal("new owner must not remain in the member list")
		}
	}
	role, ok = updated.MemberRole("owner")
	if !ok || role != model.OrgRoleAdmin {
		t.Fatalf("previous owner should become org admin, got %s/%v", role, ok)
	}

	if _, err := svc.TransferOwnership(context.Background(), org.OrgID, "bob"); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict transferring to current owner, got %v", err)
	}
}

func TestIssueAndRevokeAPIKey(t *testing.T) {
	fs := newFakeStore()
	svc := NewOrganizationService(fs)
	org := seedOrg(t, fs, svc, "owner")

	entry, err := svc.IssueAPIKey(context.Background(), org.OrgID, "ci", model.OrgScopeEvaluation)
	if err != nil {
		t.Fatalf("IssueAPIKey: %v", err)
	}
	if !strings.HasPrefix(entry.Key, auth.OrgKeyPrefix) {
		t.Fatalf("org key missing prefix: %q", entry.Key)
	}
	if entry.Scope != model.OrgScopeEvaluation {
		t.Fatalf("scope not recorded: %s", entry.Scope)
	}

	stored, _, err := fs.Organizations().GetByAPIKey(context.Background(), entry.Key)
	if err != nil {
		t.Fatalf("issued key not persisted: %v", err)
	}
	if stored.OrgID != org.OrgID {
		t.Fatalf("key attached to wrong org: %s", stored.OrgID)
	}

	if _, err := svc.IssueAPIKey(context.Background(), org.OrgID, "bad", "ROOT"); !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error for unknown scope, got %v", err)
	}

	if err := svc.RevokeAPIKey(context.Background(), org.OrgID, entry.Key); err != nil {
		t.Fatalf("RevokeAPIKey: %v", err)
	}
	if _, _, err := fs.Organizations().GetByAPIKey(context.Background(), entry.Key); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("revoked key still resolves: %v", err)
	}
	if err := svc.RevokeAPIKey(context.Background(), org.OrgID, entry.Key); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not-found for double revoke, got %v", err)
	}
}

func TestSetWebhookURL(t *testing.T) {
	fs := newFakeStore()
	svc := NewOrganizationService(fs)
	org := seedOrg(t, fs, svc, "owner")

	url := "https://hooks.example.com/acme"
	updated, err := svc.SetWebhookURL(context.Background(), org.OrgID, &url)
	if err != nil {
		t.Fatalf("SetWebhookURL: %v", err)
	}
	if updated.WebhookURL == nil || *updated.WebhookURL != url {
		t.Fatalf("webhook URL not set: %+v", updated.WebhookURL)
	}

	updated, err = svc.SetWebhookURL(context.Background(), org.OrgID, nil)
	if err != nil {
		t.Fatalf("SetWebhookURL clear: %v", err)
	}
	if updated.WebhookURL != nil {
		t.Fatal("webhook URL not cleared")
	}
}
