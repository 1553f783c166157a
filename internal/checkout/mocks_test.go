package checkout

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novac/internal/transaction"
	"novac/kit/broker"
	gateway "novac/kit/external_payment_gateway"
)

type GatewayMock struct {
	mock.Mock
	GatewayContract
}

func (m *GatewayMock) Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.InitiateResult), args.Error(1)
}

type RepositoryMock struct {
	mock.Mock
	RepositoryContract
}

func (m *RepositoryMock) Insert(ctx context.Context, t *transaction.Transaction) (int64, error) {
	args := m.Called(ctx, t)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

type PublisherMock struct {
	mock.Mock
	PublisherContract
}

func (m *PublisherMock) Publish(ctx context.Context, evt broker.Event) []error {
	args := m.Called(ctx, evt)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]error)
}

type DeadLetterMock struct {
	mock.Mock
	DeadLetterContract
}

func (m *DeadLetterMock) SendToDLQ(ctx context.Context, topic, reference, reason string, payload any) {
	m.Called(ctx, topic, reference, reason, payload)
}
