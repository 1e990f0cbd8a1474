package services

import (
	"context"
	"fmt"

	"github.com/planfold/planfold/server/internal/model"
	"github.com/planfold/planfold/server/internal/store"
)

// EvaluationService resolves feature values for an organization through its
// active contract and the contracted pricing plan.
type EvaluationService struct {
	store store.Store
}

func NewEvaluationService(s store.Store) *EvaluationService {
	return &EvaluationService{store: s}
}

// Evaluate returns the value a feature takes for (org, service) under the
// organization's active contract. A missing contract, plan or feature maps
// to model.ErrNotFound.
func (s *EvaluationService) Evaluate(ctx context.Context, orgID, serviceID, feature string) (*model.Evaluation, error) {
	c, err := s.store.Contracts().ActiveByOrgAndService(ctx, orgID, serviceID)
	if err != nil {
		return nil, fmt.Errorf("active contract lookup: %w", err)
	}
	svc, err := s.store.Services().GetByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("service lookup: %w", err)
	}

	plan, ok := planByName(svc, c.PlanName)
	if !ok {
		// The contracted plan was removed from the catalog after signing.
		return nil, fmt.Errorf("%w: plan %q no longer offered by service %s", model.ErrNotFound, c.PlanName, serviceID)
	}
	value, ok := plan.Features[feature]
	if !ok {
		return nil, fmt.Errorf("%w: plan %q does not define feature %q", model.ErrNotFound, c.PlanName, feature)
	}

	return &model.Evaluation{
		OrgID:     orgID,
		ServiceID: serviceID,
		Feature:   feature,
		PlanName:  c.PlanName,
		Value:     value,
	}, nil
}
