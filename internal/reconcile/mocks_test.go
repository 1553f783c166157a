package reconcile

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

func (m *GatewayMock) Verify(ctx context.Context, reference string) (*gateway.Verification, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Verification), args.Error(1)
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

func (m *RepositoryMock) UpdateByReference(ctx context.Context, reference string, u transaction.Update) (bool, error) {
	args := m.Called(ctx, reference, u)
	return args.Bool(0), args.Error(1)
}

func (m *RepositoryMock) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
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

type StoreMock struct {
	mock.Mock
	StoreContract
}

func (m *StoreMock) Append(ctx context.Context, reference string, evt broker.Event) error {
	args := m.Called(ctx, reference, evt)
	return args.Error(0)
}

type DeadLetterMock struct {
	mock.Mock
	DeadLetterContract
}

func (m *DeadLetterMock) SendToDLQ(ctx context.Context, topic, reference, reason string, payload any) {
	m.Called(ctx, topic, reference, reason, payload)
}

type ListerMock struct {
	mock.Mock
	ListerContract
}

func (m *ListerMock) List(ctx context.Context, f transaction.ListFilter, page, perPage int) (*transaction.ListResult, error) {
	args := m.Called(ctx, f, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.ListResult), args.Error(1)
}

type ReverifierMock struct {
	mock.Mock
	ReverifierContract
}

func (m *ReverifierMock) Reverify(ctx context.Context, reference string) (*Outcome, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Outcome), args.Error(1)
}
