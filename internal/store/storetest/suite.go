package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// Run exercises a minimal compliance suite against a store.Store implementation.
// Implementations should provide a clean, isolated store and return it from makeStore.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()

	suffix := uuid.New().String()[:8]
	username := "u" + suffix
	apiKey := "usr_" + uuid.New().String()

	// Users
	u := &model.User{Username: username, Email: username + "@example.test", Role: model.UserRoleUser, APIKey: apiKey}
	if _, err := s.Users().Create(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if got, err := s.Users().Get(ctx, username); err != nil || got == nil || got.Username != username {
		t.Fatalf("GetUser: got=%v err=%v", got, err)
	}
	if got, err := s.Users().GetByAPIKey(ctx, apiKey); err != nil || got == nil || got.Username != username {
		t.Fatalf("GetUserByAPIKey: got=%v err=%v", got, err)
	}
	if _, err := s.Users().GetByAPIKey(ctx, "usr_missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUserByAPIKey(miss): want ErrNotFound, got %v", err)
	}
	if lst, err := s.Users().List(ctx); err != nil || len(lst) == 0 {
		t.Fatalf("ListUsers: n=%d err=%v", len(lst), err)
	}

	// Organizations
	mgmtKey := "org_" + uuid.New().String()
	evalKey := "org_" + uuid.New().String()
	org, err := s.Organizations().Create(ctx, &model.Organization{
		Name:  "org-" + suffix,
		Owner: username,
		Members: []model.OrgMember{
			{Username: "bob" + suffix, Role: model.OrgRoleManager},
		},
		APIKeys: []model.OrgAPIKey{
			{Key: mgmtKey, Name: "mgmt", Scope: model.OrgScopeManagement},
			{Key: evalKey, Name: "eval", Scope: model.OrgScopeEvaluation},
		},
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if org.OrgID == "" {
		t.Fatal("CreateOrganization: empty org id")
	}
	if got, err := s.Organizations().GetByID(ctx, org.OrgID); err != nil || got.Owner != username {
		t.Fatalf("GetOrganization: got=%v err=%v", got, err)
	}
	gotOrg, key, err := s.Organizations().GetByAPIKey(ctx, evalKey)
	if err != nil || gotOrg.OrgID != org.OrgID {
		t.Fatalf("GetOrgByAPIKey: got=%v err=%v", gotOrg, err)
	}
	if key.Scope != model.OrgScopeEvaluation {
		t.Fatalf("GetOrgByAPIKey: matched entry scope=%v, want EVALUATION", key.Scope)
	}
	if _, _, err := s.Organizations().GetByAPIKey(ctx, "org_missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetOrgByAPIKey(miss): want ErrNotFound, got %v", err)
	}

	// Member mutation round-trips through Update.
	org.Members = append(org.Members, model.OrgMember{Username: "eve" + suffix, Role: model.OrgRoleEvaluator})
	updated, err := s.Organizations().Update(ctx, org)
	if err != nil || len(updated.Members) != 2 {
		t.Fatalf("UpdateOrganization: members=%d err=%v", len(updated.Members), err)
	}

	// Services
	desc := "test service"
	svc, err := s.Services().Create(ctx, &model.Service{
		Name:        "svc-" + suffix,
		Description: &desc,
		Features:    []model.Feature{{Name: "sso"}},
		Plans: []model.PricingPlan{
			{Name: "basic", MonthlyPrice: 10, Features: map[string]interface{}{"sso": false}},
			{Name: "pro", MonthlyPrice: 50, Features: map[string]interface{}{"sso": true}},
		},
	})
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	if got, err := s.Services().GetByID(ctx, svc.ServiceID); err != nil || len(got.Plans) != 2 {
		t.Fatalf("GetService: got=%v err=%v", got, err)
	}
	if lst, err := s.Services().List(ctx); err != nil || len(lst) == 0 {
		t.Fatalf("ListServices: n=%d err=%v", len(lst), err)
	}

	// Contracts
	c, err := s.Contracts().Create(ctx, &model.Contract{OrgID: org.OrgID, ServiceID: svc.ServiceID, PlanName: "pro"})
	if err != nil {
		t.Fatalf("CreateContract: %v", err)
	}
	if c.Status != model.ContractActive {
		t.Fatalf("CreateContract: status=%q", c.Status)
	}
	if got, err := s.Contracts().ActiveByOrgAndService(ctx, org.OrgID, svc.ServiceID); err != nil || got.ContractID != c.ContractID {
		t.Fatalf("ActiveByOrgAndService: got=%v err=%v", got, err)
	}
	if lst, err := s.Contracts().ListByOrg(ctx, org.OrgID); err != nil || len(lst) != 1 {
		t.Fatalf("ListByOrg: n=%d err=%v", len(lst), err)
	}

	// Termination
	termAt := c.CreationTime
	c.Status = model.ContractTerminated
	c.TerminationTime = &termAt
	if updated, err := s.Contracts().Update(ctx, c); err != nil || updated.Status != model.ContractTerminated || updated.TerminationTime == nil {
		t.Fatalf("UpdateContract: got=%v err=%v", updated, err)
	}
	if _, err := s.Contracts().ActiveByOrgAndService(ctx, org.OrgID, svc.ServiceID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("ActiveByOrgAndService after termination: want ErrNotFound, got %v", err)
	}

	// Deletes
	if err := s.Organizations().Delete(ctx, org.OrgID); err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}
	if _, err := s.Organizations().GetByID(ctx, org.OrgID); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetOrganization after delete: want ErrNotFound, got %v", err)
	}
	if err := s.Services().Delete(ctx, svc.ServiceID); err != nil {
		t.Fatalf("DeleteService: %v", err)
	}
	if err := s.Users().Delete(ctx, username); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.Users().Get(ctx, username); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("GetUser after delete: want ErrNotFound, got %v", err)
	}
}
