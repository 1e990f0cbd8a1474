package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// CatalogService manages the service catalog and its pricing plans.
type CatalogService struct {
	store store.Store
}

func NewCatalogService(s store.Store) *CatalogService { return &CatalogService{store: s} }

func (s *CatalogService) CreateService(ctx context.Context, svc *model.Service) (*model.Service, error) {
	if err := validateServicePayload(svc); err != nil {
		return nil, err
	}
	svc.ServiceID = uuid.NewString()
	svc.CreationTime = time.Now().UTC()
	return s.store.Services().Create(ctx, svc)
}

func (s *CatalogService) GetService(ctx context.Context, serviceID string) (*model.Service, error) {
	return s.store.Services().GetByID(ctx, serviceID)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]*model.Service, error) {
	return s.store.Services().List(ctx)
}

// UpdateService replaces the catalog entry wholesale, keeping id and
// creation time from the stored record.
func (s *CatalogService) UpdateService(ctx context.Context, serviceID string, svc *model.Service) (*model.Service, error) {
	if err := validateServicePayload(svc); err != nil {
		return nil, err
	}
	current, err := s.store.Services().GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	svc.ServiceID = current.ServiceID
	svc.CreationTime = current.CreationTime
	return s.store.Services().Update(ctx, svc)
}

func (s *CatalogService) DeleteService(ctx context.Context, serviceID string) error {
	return s.store.Services().Delete(ctx, serviceID)
}

func validateServicePayload(svc *model.Service) error {
	if svc.Name == "" {
		return fmt.Errorf("%w: service name is required", model.ErrValidation)
	}
	seen := map[string]bool{}
	for _, p := range svc.Plans {
		if p.Name == "" {
			return fmt.Errorf("%w: plan name is required", model.ErrValidation)
		}
		if seen[p.Name] {
			return fmt.Errorf("%w: duplicate plan %q", model.ErrValidation, p.Name)
		}
		seen[p.Name] = true
		if p.MonthlyPrice < 0 {
			return fmt.Errorf("%w: plan %q has negative price", model.ErrValidation, p.Name)
		}
	}
	return nil
}
