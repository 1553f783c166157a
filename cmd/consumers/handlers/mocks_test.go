package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novac/internal/audit"
	"novac/internal/notification"
	"novac/internal/reconcile"
)

type AuditorMock struct {
	mock.Mock
	AuditorContract
}

func (m *AuditorMock) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

type NotifierMock struct {
	mock.Mock
	NotifierContract
}

func (m *NotifierMock) Notify(ctx context.Context, msg notification.Message) {
	m.Called(ctx, msg)
}

type MetricsMock struct {
	mock.Mock
	MetricsContract
}

func (m *MetricsMock) EventObservedAdd(name string, n int64) { m.Called(name, n) }

type ReverifierMock struct {
	mock.Mock
	ReverifierContract
}

func (m *ReverifierMock) Reverify(ctx context.Context, reference string) (*reconcile.Outcome, error) {
	args := m.Called(ctx, reference)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reconcile.Outcome), args.Error(1)
}
