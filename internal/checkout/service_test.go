package checkout

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"novac/internal/events"
	"novac/internal/transaction"
	"novac/kit/broker"
	"novac/kit/db"
	gateway "novac/kit/external_payment_gateway"
	"novac/kit/observability"
)

func validRequest() Request {
	return Request{Name: "Jane Doe", Email: "jane@example.com", Amount: decimal.RequireFromString("500.00"), Currency: "NGN"}
}

func TestService_Initiate_Validation(t *testing.T) {
	var tests = []struct {
		name          string
		mutate        func(r *Request)
		expectedField string
	}{
		{name: "missing name", mutate: func(r *Request) { r.Name = "  " }, expectedField: "name"},
		{name: "malformed email", mutate: func(r *Request) { r.Email = "jane-at-example" }, expectedField: "email"},
		{name: "zero amount", mutate: func(r *Request) { r.Amount = decimal.Zero }, expectedField: "amount"},
		{name: "negative amount", mutate: func(r *Request) { r.Amount = decimal.NewFromInt(-5) }, expectedField: "amount"},
		{name: "too many decimals", mutate: func(r *Request) { r.Amount = decimal.RequireFromString("10.001") }, expectedField: "amount"},
		{name: "amount over column size", mutate: func(r *Request) { r.Amount = decimal.RequireFromString("100000000") }, expectedField: "amount"},
		{name: "numeric currency", mutate: func(r *Request) { r.Currency = "123" }, expectedField: "currency"},
		{name: "redirect not a url", mutate: func(r *Request) { r.RedirectURL = "not a url" }, expectedField: "redirect_url"},
		{name: "redirect wrong scheme", mutate: func(r *Request) { r.RedirectURL = "ftp://shop.example/done" }, expectedField: "redirect_url"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw := new(GatewayMock)
			svc := NewService(Dependencies{Gateway: gw, Repository: new(RepositoryMock)}, Config{PublicBaseURL: "https://merchant.example"})
			req := validRequest()
			tt.mutate(&req)

			res, err := svc.Initiate(context.Background(), req)
			require.Nil(t, res)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.ErrorIs(t, err, db.ErrInvalid)
			var fields FieldErrors
			require.ErrorAs(t, err, &fields)
			require.Contains(t, fields, tt.expectedField)
			gw.AssertNotCalled(t, "Initiate", mock.Anything, mock.Anything)
		})
	}
}

func TestService_Initiate(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics()

	var tests = []struct {
		name        string
		req         Request
		setup       func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock)
		expected    *Result
		expectedErr []error
	}{
		{
			name: "stores pending record with defaults",
			req:  Request{Name: "Jane Doe", Email: "jane@example.com", Amount: decimal.RequireFromString("500.00"), RedirectURL: "https://shop.example/thanks"},
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Initiate", ctx, mock.MatchedBy(func(r gateway.InitiateRequest) bool {
					return r.Reference == "WP_novac_test" &&
						r.Currency == "NGN" &&
						r.Description == "Payment" &&
						r.CallbackURL == "https://merchant.example/payments/callback" &&
						r.Metadata[transaction.MetaRedirectURL] == "https://shop.example/thanks"
				})).Return(&gateway.InitiateResult{CheckoutURL: "https://pay.novac/c/1", Reference: "WP_novac_test"}, nil)
				repo.On("Insert", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool {
					return tx.Reference == "WP_novac_test" &&
						tx.Status == transaction.StatusPending &&
						tx.Amount.Equal(decimal.RequireFromString("500")) &&
						tx.CustomerName == "Jane Doe" &&
						tx.Metadata.String(transaction.MetaRedirectURL) == "https://shop.example/thanks"
				})).Return(int64(1), nil)
				pub.On("Publish", ctx, mock.AnythingOfType("events.TransactionInitiated")).Return(nil)
			},
			expected: &Result{CheckoutURL: "https://pay.novac/c/1", Reference: "WP_novac_test"},
		},
		{
			name: "gateway reference wins",
			req:  validRequest(),
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Initiate", ctx, mock.Anything).Return(&gateway.InitiateResult{CheckoutURL: "https://pay.novac/c/2", Reference: "NV-998"}, nil)
				repo.On("Insert", ctx, mock.MatchedBy(func(tx *transaction.Transaction) bool { return tx.Reference == "NV-998" })).Return(int64(2), nil)
				pub.On("Publish", ctx, mock.Anything).Return(nil)
			},
			expected: &Result{CheckoutURL: "https://pay.novac/c/2", Reference: "NV-998"},
		},
		{
			name: "gateway rejection keeps body",
			req:  validRequest(),
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Initiate", ctx, mock.Anything).Return(nil, &gateway.Error{Kind: gateway.ErrGateway, Op: "initiate", StatusCode: 422, Message: "invalid amount", Body: []byte(`{"message":"invalid amount"}`)})
			},
			expectedErr: []error{ErrInitiationFailed, gateway.ErrGateway},
		},
		{
			name: "store failure still returns checkout url",
			req:  validRequest(),
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Initiate", ctx, mock.Anything).Return(&gateway.InitiateResult{CheckoutURL: "https://pay.novac/c/3", Reference: "WP_novac_test"}, nil)
				repo.On("Insert", ctx, mock.Anything).Return(int64(0), errors.Join(db.ErrInternal, errors.New("gone away")))
				dlq.On("SendToDLQ", ctx, "initiate", "WP_novac_test", mock.Anything, mock.AnythingOfType("*transaction.Transaction")).Return()
				pub.On("Publish", ctx, mock.Anything).Return(nil)
			},
			expected: &Result{CheckoutURL: "https://pay.novac/c/3", Reference: "WP_novac_test"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw, repo, pub, dlq := new(GatewayMock), new(RepositoryMock), new(PublisherMock), new(DeadLetterMock)
			tt.setup(gw, repo, pub, dlq)
			svc := NewService(Dependencies{Gateway: gw, Repository: repo, Bus: pub, DeadLetter: dlq, Metrics: metrics}, Config{PublicBaseURL: "https://merchant.example/"})
			svc.newReference = func() string { return "WP_novac_test" }

			res, err := svc.Initiate(ctx, tt.req)
			if tt.expectedErr != nil {
				require.Nil(t, res)
				for _, e := range tt.expectedErr {
					require.ErrorIs(t, err, e)
				}
				var ge *gateway.Error
				require.ErrorAs(t, err, &ge)
				require.NotEmpty(t, ge.Body)
				repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, res)
			gw.AssertExpectations(t)
			repo.AssertExpectations(t)
			dlq.AssertExpectations(t)
		})
	}
}

func TestService_Initiate_WithFakeGatewayAndStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := transaction.NewInMemoryRepository()
	svc := NewService(Dependencies{Gateway: gateway.NewFakeGateway(""), Repository: repo}, Config{PublicBaseURL: "http://localhost:8080"})

	res, err := svc.Initiate(ctx, validRequest())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Reference, ReferencePrefix))

	got, err := repo.GetByReference(ctx, res.Reference)
	require.NoError(t, err)
	require.Equal(t, transaction.StatusPending, got.Status)
	require.True(t, decimal.RequireFromString("500.00").Equal(got.Amount))
	require.Equal(t, "NGN", got.Currency)
	require.Equal(t, "jane@example.com", got.CustomerEmail)
	require.Equal(t, "Jane Doe", got.CustomerName)
	require.Equal(t, "Payment", got.Description)
}

func TestService_Initiate_JournalsBeforePublish(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	journal := db.NewJournal(nil)
	bus := broker.New(nil)
	defer bus.Close()

	journaledAtPublish := -1
	bus.Subscribe(events.TransactionInitiated{}.Name(), func(ctx context.Context, evt broker.Event) error {
		journaledAtPublish = len(journal.Load(ctx, evt.(events.TransactionInitiated).Reference))
		return nil
	})
	svc := NewService(Dependencies{
		Gateway:    gateway.NewFakeGateway(""),
		Repository: transaction.NewInMemoryRepository(),
		Bus:        bus,
		Journal:    journal,
	}, Config{PublicBaseURL: "http://localhost:8080"})

	res, err := svc.Initiate(ctx, validRequest())
	require.NoError(t, err)

	recs := journal.Load(ctx, res.Reference)
	require.Len(t, recs, 1)
	require.Equal(t, events.TransactionInitiated{}.Name(), recs[0].EventName)
	require.Equal(t, 1, journaledAtPublish)
}
