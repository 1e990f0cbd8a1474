package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// Contract event names delivered to organization webhooks.
const (
	EventContractCreated    = "contract.created"
	EventContractTerminated = "contract.terminated"
)

// ContractNotifier delivers contract lifecycle events to an organization's
// webhook endpoint. Delivery is best-effort; failures never fail the write.
type ContractNotifier interface {
	NotifyContract(ctx context.Context, org *model.Organization, event string, c *model.Contract) error
}

// ContractService manages subscriptions between organizations and catalog
// services. At most one ACTIVE contract may exist per (org, service) pair.
type ContractService struct {
	store    store.Store
	notifier ContractNotifier
	log      zerolog.Logger
}

// NewContractService wires the service; notifier may be nil to disable
// webhook delivery.
func NewContractService(s store.Store, n ContractNotifier, log zerolog.Logger) *ContractService {
	return &ContractService{store: s, notifier: n, log: log}
}

// Subscribe creates an ACTIVE contract binding an organization to one
// pricing plan of a service.
func (s *ContractService) Subscribe(ctx context.Context, orgID, serviceID, planName string) (*model.Contract, error) {
	org, err := s.store.Organizations().GetByID(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("organization lookup: %w", err)
	}
	svc, err := s.store.Services().GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("service lookup: %w", err)
	}
	if _, ok := planByName(svc, planName); !ok {
		return nil, fmt.Errorf("%w: service %s has no plan %q", model.ErrValidation, serviceID, planName)
	}

	if _, err := s.store.Contracts().ActiveByOrgAndService(ctx, orgID, serviceID); err == nil {
		return nil, fmt.Errorf("%w: organization already has an active contract for service %s", model.ErrConflict, serviceID)
	} else if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	c := &model.Contract{
		ContractID:   uuid.NewString(),
		OrgID:        orgID,
		ServiceID:    serviceID,
		PlanName:     planName,
		Status:       model.ContractActive,
		CreationTime: time.Now().UTC(),
	}
	created, err := s.store.Contracts().Create(ctx, c)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, org, EventContractCreated, created)
	return created, nil
}

// Terminate ends an active contract. Terminating twice is a conflict.
func (s *ContractService) Terminate(ctx context.Context, contractID string) (*model.Contract, error) {
	c, err := s.store.Contracts().GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if c.Status == model.ContractTerminated {
		return nil, fmt.Errorf("%w: contract %s is already terminated", model.ErrConflict, contractID)
	}

	now := time.Now().UTC()
	c.Status = model.ContractTerminated
	c.TerminationTime = &now
	updated, err := s.store.Contracts().Update(ctx, c)
	if err != nil {
		return nil, err
	}

	if org, err := s.store.Organizations().GetByID(ctx, c.OrgID); err == nil {
		s.notify(ctx, org, EventContractTerminated, updated)
	}
	return updated, nil
}

func (s *ContractService) GetContract(ctx context.Context, contractID string) (*model.Contract, error) {
	return s.store.Contracts().GetByID(ctx, contractID)
}

func (s *ContractService) ListContracts(ctx context.Context, orgID string) ([]*model.Contract, error) {
	return s.store.Contracts().ListByOrg(ctx, orgID)
}

func (s *ContractService) notify(ctx context.Context, org *model.Organization, event string, c *model.Contract) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyContract(ctx, org, event, c); err != nil {
		s.log.Warn().Err(err).
			Str("orgId", org.OrgID).
			Str("contractId", c.ContractID).
			Str("event", event).
			Msg("webhook delivery failed")
	}
}

func planByName(svc *model.Service, name string) (model.PricingPlan, bool) {
	for _, p := range svc.Plans {
		if p.Name == name {
			return p, true
		}
	}
	return model.PricingPlan{}, false
}
