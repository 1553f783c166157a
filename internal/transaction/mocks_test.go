package transaction

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type RepositoryMock struct {
	mock.Mock
	RepositoryContract
}

func (m *RepositoryMock) Insert(ctx context.Context, t *Transaction) (int64, error) {
	args := m.Called(ctx, t)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *RepositoryMock) UpdateByReference(ctx context.Context, reference string, u Update) (bool, error) {
	args := m.Called(ctx, reference, u)
	return args.Bool(0), args.Error(1)
}

func (m *RepositoryMock) GetByReference(ctx context.Context, reference string) (*Transaction, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Transaction), args.Error(1)
}

func (m *RepositoryMock) List(ctx context.Context, f ListFilter, page, perPage int) (*ListResult, error) {
	args := m.Called(ctx, f, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ListResult), args.Error(1)
}
