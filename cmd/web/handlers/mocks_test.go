package handlers

import (
	"context"

	"github.com/stretchr/testify/mock"

	"novac/internal/audit"
	"novac/internal/checkout"
	"novac/internal/health"
	"novac/internal/reconcile"
	"novac/internal/transaction"
	"novac/kit/db"
)

type webhookServiceMock struct{ mock.Mock }

func (m *webhookServiceMock) HandleWebhook(ctx context.Context, n reconcile.WebhookNotification) (*reconcile.Outcome, error) {
	args := m.Called(ctx, n)
	o, _ := args.Get(0).(*reconcile.Outcome)
	return o, args.Error(1)
}

type callbackServiceMock struct{ mock.Mock }

func (m *callbackServiceMock) HandleCallback(ctx context.Context, reference string) (*reconcile.CallbackResult, error) {
	args := m.Called(ctx, reference)
	r, _ := args.Get(0).(*reconcile.CallbackResult)
	return r, args.Error(1)
}

type checkoutServiceMock struct{ mock.Mock }

func (m *checkoutServiceMock) Initiate(ctx context.Context, req checkout.Request) (*checkout.Result, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*checkout.Result)
	return r, args.Error(1)
}

type transactionReaderMock struct{ mock.Mock }

func (m *transactionReaderMock) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	args := m.Called(ctx, reference)
	t, _ := args.Get(0).(*transaction.Transaction)
	return t, args.Error(1)
}

func (m *transactionReaderMock) List(ctx context.Context, f transaction.ListFilter, page, perPage int) (*transaction.ListResult, error) {
	args := m.Called(ctx, f, page, perPage)
	r, _ := args.Get(0).(*transaction.ListResult)
	return r, args.Error(1)
}

type journalReaderMock struct{ mock.Mock }

func (m *journalReaderMock) Load(ctx context.Context, reference string) []db.Record {
	args := m.Called(ctx, reference)
	recs, _ := args.Get(0).([]db.Record)
	return recs
}

type auditRecorderMock struct{ mock.Mock }

func (m *auditRecorderMock) Record(ctx context.Context, e audit.Entry) {
	m.Called(ctx, e)
}

type healthMock struct{ mock.Mock }

func (m *healthMock) Check(ctx context.Context) health.Result {
	args := m.Called(ctx)
	return args.Get(0).(health.Result)
}
