package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/kevin07696/chit-service/internal/domain"
	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/stretchr/testify/mock"
)

// MockPlanCache mocks ports.PlanCache
type MockPlanCache struct {
	mock.Mock
}

func (m *MockPlanCache) GetPlans(ctx context.Context, merchantID uuid.UUID) ([]*domain.ChitPlan, bool, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).([]*domain.ChitPlan), args.Bool(1), args.Error(2)
}

func (m *MockPlanCache) SetPlans(ctx context.Context, merchantID uuid.UUID, plans []*domain.ChitPlan) error {
	args := m.Called(ctx, merchantID, plans)
	return args.Error(0)
}

func (m *MockPlanCache) Invalidate(ctx context.Context, merchantID uuid.UUID) error {
	args := m.Called(ctx, merchantID)
	return args.Error(0)
}

var _ ports.PlanCache = (*MockPlanCache)(nil)
