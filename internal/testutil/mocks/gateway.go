package mocks

import (
	"context"

	"github.com/kevin07696/chit-service/internal/domain/ports"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockPaymentGateway mocks ports.PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func (m *MockPaymentGateway) CreateOrder(ctx context.Context, req *ports.OrderRequest) (*ports.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Order), args.Error(1)
}

func (m *MockPaymentGateway) GetOrder(ctx context.Context, orderID string) (*ports.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Order), args.Error(1)
}

func (m *MockPaymentGateway) Verify(ctx context.Context, req *ports.VerifyRequest) (*ports.VerificationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.VerificationResult), args.Error(1)
}

// ExpectVerified makes every Verify call succeed
func (m *MockPaymentGateway) ExpectVerified() *mock.Call {
	return m.On("Verify", mock.Anything, mock.Anything).Return(&ports.VerificationResult{Verified: true}, nil)
}

// ExpectRejected makes every Verify call fail the signature check
func (m *MockPaymentGateway) ExpectRejected(reason string) *mock.Call {
	return m.On("Verify", mock.Anything, mock.Anything).Return(&ports.VerificationResult{Verified: false, Reason: reason}, nil)
}

// ExpectOrder makes GetOrder return a paid order
func (m *MockPaymentGateway) ExpectOrder(orderID string, amount decimal.Decimal, notes map[string]string) *mock.Call {
	return m.On("GetOrder", mock.Anything, orderID).Return(&ports.Order{
		ID:       orderID,
		Amount:   amount,
		Currency: "INR",
		Status:   "paid",
		Notes:    notes,
	}, nil)
}

var _ ports.PaymentGateway = (*MockPaymentGateway)(nil)
