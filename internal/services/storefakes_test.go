package services

import (
	"context"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// In-memory store used across the package tests. Reads hand out copies so a
// mutation is only visible after an explicit Update, like a real driver.
type fakeStore struct {
	users     map[string]*model.User
	orgs      map[string]*model.Organization
	svcs      map[string]*model.Service
	contracts map[string]*model.Contract
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:     map[string]*model.User{},
		orgs:      map[string]*model.Organization{},
		svcs:      map[string]*model.Service{},
		contracts: map[string]*model.Contract{},
	}
}

func (f *fakeStore) Users() store.Users                 { return &fakeUsers{f} }
func (f *fakeStore) Organizations() store.Organizations { return &fakeOrgs{f} }
func (f *fakeStore) Services() store.Services           { return &fakeServices{f} }
func (f *fakeStore) Contracts() store.Contracts         { return &fakeContracts{f} }

func copyUser(u *model.User) *model.User {
	c := *u
	return &c
}

func copyOrg(o *model.Organization) *model.Organization {
	c := *o
	c.Members = append([]model.OrgMember(nil), o.Members...)
	c.APIKeys = append([]model.OrgAPIKey(nil), o.APIKeys...)
	return &c
}

func copyService(s *model.Service) *model.Service {
	c := *s
	c.Features = append([]model.Feature(nil), s.Features...)
	c.Plans = append([]model.PricingPlan(nil), s.Plans...)
	return &c
}

func copyContract(c *model.Contract) *model.Contract {
	cc := *c
	return &cc
}

type fakeUsers struct{ p *fakeStore }

func (u *fakeUsers) Create(_ context.Context, usr *model.User) (*model.User, error) {
	if _, ok := u.p.users[usr.Username]; ok {
		return nil, model.ErrConflict
	}
	u.p.users[usr.Username] = copyUser(usr)
	return copyUser(usr), nil
}
func (u *fakeUsers) Get(_ context.Context, username string) (*model.User, error) {
	usr, ok := u.p.users[username]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyUser(usr), nil
}
func (u *fakeUsers) GetByAPIKey(_ context.Context, key string) (*model.User, error) {
	for _, usr := range u.p.users {
		if usr.APIKey == key {
			return copyUser(usr), nil
		}
	}
	return nil, model.ErrNotFound
}
func (u *fakeUsers) List(context.Context) ([]*model.User, error) {
	out := make([]*model.User, 0, len(u.p.users))
	for _, usr := range u.p.users {
		out = append(out, copyUser(usr))
	}
	return out, nil
}
func (u *fakeUsers) Delete(_ context.Context, username string) error {
	if _, ok := u.p.users[username]; !ok {
		return model.ErrNotFound
	}
	delete(u.p.users, username)
	return nil
}

type fakeOrgs struct{ p *fakeStore }

func (o *fakeOrgs) Create(_ context.Context, org *model.Organization) (*model.Organization, error) {
	o.p.orgs[org.OrgID] = copyOrg(org)
	return copyOrg(org), nil
}
func (o *fakeOrgs) GetByID(_ context.Context, orgID string) (*model.Organization, error) {
	org, ok := o.p.orgs[orgID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyOrg(org), nil
}
func (o *fakeOrgs) GetByAPIKey(_ context.Context, key string) (*model.Organization, *model.OrgAPIKey, error) {
	for _, org := range o.p.orgs {
		if entry, ok := org.KeyByValue(key); ok {
			return copyOrg(org), &entry, nil
		}
	}
	return nil, nil, model.ErrNotFound
}
func (o *fakeOrgs) List(context.Context) ([]*model.Organization, error) {
	out := make([]*model.Organization, 0, len(o.p.orgs))
	for _, org := range o.p.orgs {
		out = append(out, copyOrg(org))
	}
	return out, nil
}
func (o *fakeOrgs) Update(_ context.Context, org *model.Organization) (*model.Organization, error) {
	if _, ok := o.p.orgs[org.OrgID]; !ok {
		return nil, model.ErrNotFound
	}
	o.p.orgs[org.OrgID] = copyOrg(org)
	return copyOrg(org), nil
}
func (o *fakeOrgs) Delete(_ context.Context, orgID string) error {
	if _, ok := o.p.orgs[orgID]; !ok {
		return model.ErrNotFound
	}
	delete(o.p.orgs, orgID)
	return nil
}

type fakeServices struct{ p *fakeStore }

func (s *fakeServices) Create(_ context.Context, svc *model.Service) (*model.Service, error) {
	s.p.svcs[svc.ServiceID] = copyService(svc)
	return copyService(svc), nil
}
func (s *fakeServices) GetByID(_ context.Context, serviceID string) (*model.Service, error) {
	svc, ok := s.p.svcs[serviceID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyService(svc), nil
}
func (s *fakeServices) List(context.Context) ([]*model.Service, error) {
	out := make([]*model.Service, 0, len(s.p.svcs))
	for _, svc := range s.p.svcs {
		out = append(out, copyService(svc))
	}
	return out, nil
}
func (s *fakeServices) Update(_ context.Context, svc *model.Service) (*model.Service, error) {
	if _, ok := s.p.svcs[svc.ServiceID]; !ok {
		return nil, model.ErrNotFound
	}
	s.p.svcs[svc.ServiceID] = copyService(svc)
	return copyService(svc), nil
}
func (s *fakeServices) Delete(_ context.Context, serviceID string) error {
	if _, ok := s.p.svcs[serviceID]; !ok {
		return model.ErrNotFound
	}
	delete(s.p.svcs, serviceID)
	return nil
}

type fakeContracts struct{ p *fakeStore }

func (c *fakeContracts) Create(_ context.Context, con *model.Contract) (*model.Contract, error) {
	c.p.contracts[con.ContractID] = copyContract(con)
	return copyContract(con), nil
}
func (c *fakeContracts) GetByID(_ context.Context, contractID string) (*model.Contract, error) {
	con, ok := c.p.contracts[contractID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyContract(con), nil
}
func (c *fakeContracts) ListByOrg(_ context.Context, orgID string) ([]*model.Contract, error) {
	var out []*model.Contract
	for _, con := range c.p.contracts {
		if con.OrgID == orgID {
			out = append(out, copyContract(con))
		}
	}
	return out, nil
}
func (c *fakeContracts) ActiveByOrgAndService(_ context.Context, orgID, serviceID string) (*model.Contract, error) {
	for _, con := range c.p.contracts {
		if con.OrgID == orgID && con.ServiceID == serviceID && con.Status == model.ContractActive {
			return copyContract(con), nil
		}
	}
	return nil, model.ErrNotFound
}
func (c *fakeContracts) Update(_ context.Context, con *model.Contract) (*model.Contract, error) {
	if _, ok := c.p.contracts[con.ContractID]; !ok {
		return nil, model.ErrNotFound
	}
	c.p.contracts[con.ContractID] = copyContract(con)
	return copyContract(con), nil
}
