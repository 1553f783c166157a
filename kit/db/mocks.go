package db

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ClientMock struct {
	mock.Mock
	Client
}

func (m *ClientMock) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	ret := m.Called(ctx, query, args)
	n, _ := ret.Get(0).(int64)
	return n, ret.Error(1)
}

func (m *ClientMock) QueryRow(ctx context.Context, query string, args ...any) (Row, error) {
	ret := m.Called(ctx, query, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(Row), ret.Error(1)
}

func (m *ClientMock) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	ret := m.Called(ctx, query, args)
	if ret.Get(0) == nil {
		return nil, ret.Error(1)
	}
	return ret.Get(0).(Rows), ret.Error(1)
}

func (m *ClientMock) Ping(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}

type RowMock struct {
	mock.Mock
	Row
}

func (m *RowMock) Scan(dest ...any) error {
	ret := m.Called(dest)
	return ret.Error(0)
}

// RowsMock replays a fixed set of scan callbacks, one per row.
type RowsMock struct {
	Scans   []func(dest []any)
	ScanErr error
	IterErr error

	pos    int
	closed bool
}

func (m *RowsMock) Next() bool {
	if m.pos >= len(m.Scans) {
		return false
	}
	m.pos++
	return true
}

func (m *RowsMock) Scan(dest ...any) error {
	if m.ScanErr != nil {
		return m.ScanErr
	}
	m.Scans[m.pos-1](dest)
	return nil
}

func (m *RowsMock) Err() error { return m.IterErr }

func (m *RowsMock) Close() error {
	m.closed = true
	return nil
}

func (m *RowsMock) Closed() bool { return m.closed }
