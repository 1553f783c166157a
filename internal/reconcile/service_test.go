package reconcile

import (
	"context"
	"errors"
	"net/url"
	"sync"
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

const site = "https://merchant.example/"

type harness struct {
	gw      *gateway.FakeGateway
	repo    *transaction.InMemoryRepository
	bus     *broker.Bus
	journal *db.Journal
	metrics *observability.Metrics
	svc     *Service

	mu       sync.Mutex
	received []broker.Event
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		gw:      gateway.NewFakeGateway(""),
		repo:    transaction.NewInMemoryRepository(),
		bus:     broker.New(nil),
		journal: db.NewJournal(nil),
		metrics: observability.NewMetrics(),
	}
	for _, name := range events.Names() {
		h.bus.Subscribe(name, func(ctx context.Context, evt broker.Event) error {
			h.mu.Lock()
			h.received = append(h.received, evt)
			h.mu.Unlock()
			return nil
		})
	}
	if cfg.SiteURL == "" {
		cfg.SiteURL = site
	}
	h.svc = NewService(Dependencies{
		Gateway:    h.gw,
		Repository: h.repo,
		Bus:        h.bus,
		Journal:    h.journal,
		Metrics:    h.metrics,
	}, cfg)
	return h
}

func (h *harness) eventsNamed(name string) []broker.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []broker.Event
	for _, e := range h.received {
		if e.Name() == name {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) seedPending(t *testing.T, ref string, meta transaction.Metadata) {
	t.Helper()
	_, err := h.repo.Insert(context.Background(), &transaction.Transaction{
		Reference:     ref,
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		Amount:        decimal.RequireFromString("500.00"),
		Currency:      "NGN",
		Metadata:      meta,
	})
	require.NoError(t, err)
}

func verified(status, method string) gateway.Verification {
	return gateway.Verification{
		Status:        status,
		Amount:        decimal.RequireFromString("500.00"),
		Currency:      "NGN",
		CustomerEmail: "jane@example.com",
		CustomerName:  "Jane Doe",
		PaymentMethod: method,
	}
}

func TestService_HandleWebhook_ExampleScenario(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.seedPending(t, "R1", nil)

	before, err := h.repo.GetByReference(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusPending, before.Status)
	require.Equal(t, "500", before.Amount.String())

	h.gw.Seed("R1", verified("successful", "card"))
	out, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)
	require.Equal(t, transaction.StatusSuccessful, out.Status)
	require.False(t, out.Created)
	require.True(t, out.Updated)

	got, err := h.repo.GetByReference(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusSuccessful, got.Status)
	require.Equal(t, "card", got.PaymentMethod)
	require.True(t, before.Amount.Equal(got.Amount))
	require.Equal(t, before.CustomerEmail, got.CustomerEmail)

	fired := h.eventsNamed("novac.webhook_received")
	require.Len(t, fired, 1)
	evt := fired[0].(events.WebhookReceived)
	require.Equal(t, "R1", evt.Reference)
	require.Equal(t, "successful", evt.Verification.Status)
	require.Equal(t, "card", evt.Verification.PaymentMethod)
	require.Len(t, h.journal.Load(ctx, "R1"), 1)
	require.EqualValues(t, 1, h.metrics.PaymentsSuccessful.Load())
}

func TestService_HandleWebhook_Idempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	once := newHarness(t, Config{})
	twice := newHarness(t, Config{})
	for _, h := range []*harness{once, twice} {
		h.seedPending(t, "R1", nil)
		h.gw.Seed("R1", verified("successful", "card"))
	}

	_, err := once.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)
	first, err := twice.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)
	second, err := twice.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)

	a, _ := once.repo.GetByReference(ctx, "R1")
	b, _ := twice.repo.GetByReference(ctx, "R1")
	require.Equal(t, a.Status, b.Status)
	require.Equal(t, a.PaymentMethod, b.PaymentMethod)
	require.True(t, a.Amount.Equal(b.Amount))
	require.True(t, first.Changed())
	require.False(t, second.Changed())
	require.EqualValues(t, 1, twice.metrics.PaymentsSuccessful.Load())
	require.Len(t, twice.eventsNamed("novac.webhook_received"), 2)
}

func TestService_Convergence(t *testing.T) {
	var tests = []struct {
		name  string
		order []string
	}{
		{name: "callback then webhook", order: []string{"callback", "webhook"}},
		{name: "webhook then callback", order: []string{"webhook", "callback"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := newHarness(t, Config{})
			h.seedPending(t, "R1", nil)
			h.gw.Seed("R1", verified("successful", "transfer"))

			for _, step := range tt.order {
				var err error
				if step == "callback" {
					_, err = h.svc.HandleCallback(ctx, "R1")
				} else {
					_, err = h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
				}
				require.NoError(t, err)
			}
			got, err := h.repo.GetByReference(ctx, "R1")
			require.NoError(t, err)
			require.Equal(t, transaction.StatusSuccessful, got.Status)
		})
	}
}

func TestService_HandleWebhook_StoresVerifiedPaymentMethod(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.seedPending(t, "R1", nil)

	h.gw.Seed("R1", verified("successful", "card"))
	_, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)

	h.gw.Seed("R1", verified("failed", ""))
	out, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)
	require.Empty(t, out.PaymentMethod)

	got, err := h.repo.GetByReference(ctx, "R1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusFailed, got.Status)
	require.Empty(t, got.PaymentMethod)
}

func TestService_HandleWebhook_IgnoresClaimedStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.seedPending(t, "R1", nil)
	// the payload may claim success; the gateway says pending
	h.gw.Seed("R1", verified("pending", ""))

	out, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
	require.NoError(t, err)
	require.Equal(t, transaction.StatusPending, out.Status)
	got, _ := h.repo.GetByReference(ctx, "R1")
	require.Equal(t, transaction.StatusPending, got.Status)
	require.Zero(t, h.metrics.PaymentsSuccessful.Load())
}

func TestService_HandleWebhook_CreatesMissing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	v := verified("", "")
	v.Currency = ""
	h.gw.Seed("OOB1", v)

	out, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "  OOB1 "})
	require.NoError(t, err)
	require.True(t, out.Created)
	require.Equal(t, "OOB1", out.Reference)

	got, err := h.repo.GetByReference(ctx, "OOB1")
	require.NoError(t, err)
	require.Equal(t, transaction.StatusPending, got.Status)
	require.Equal(t, "NGN", got.Currency)
	require.Equal(t, "jane@example.com", got.CustomerEmail)
}

func TestService_HandleWebhook_ConcurrentDeliveriesForMissingRecord(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.gw.Seed("R1", verified("successful", "card"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		errs    []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.svc.HandleWebhook(ctx, WebhookNotification{Reference: "R1"})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if out.Created {
				created++
			}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 1, created)
	res, err := h.repo.List(ctx, transaction.ListFilter{}, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, res.Total)
	require.Equal(t, transaction.StatusSuccessful, res.Items[0].Status)
}

func TestService_HandleWebhook_Failures(t *testing.T) {
	ctx := context.Background()
	v := verified("successful", "card")
	storeErr := errors.Join(db.ErrInternal, errors.New("connection reset"))

	var tests = []struct {
		name        string
		reference   string
		setup       func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock)
		expectedErr []error
		assert      func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock)
	}{
		{
			name:        "empty reference",
			reference:   "   ",
			setup:       func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {},
			expectedErr: []error{ErrInvalidReference, db.ErrInvalid},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
			},
		},
		{
			name:      "gateway not found leaves store untouched",
			reference: "R1",
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Verify", ctx, "R1").Return(nil, &gateway.Error{Kind: gateway.ErrNotFound, Op: "verify", StatusCode: 404})
				pub.On("Publish", ctx, mock.AnythingOfType("events.ReconciliationFailed")).Return(nil)
			},
			expectedErr: []error{ErrVerificationFailed, gateway.ErrNotFound, gateway.ErrGateway},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				repo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "UpdateByReference", mock.Anything, mock.Anything, mock.Anything)
				repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.AnythingOfType("events.WebhookReceived"))
			},
		},
		{
			name:      "transport failure",
			reference: "R1",
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Verify", ctx, "R1").Return(nil, &gateway.Error{Kind: gateway.ErrTransport, Op: "verify", Err: context.DeadlineExceeded})
				pub.On("Publish", ctx, mock.Anything).Return(nil)
			},
			expectedErr: []error{ErrVerificationFailed, gateway.ErrTransport},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				repo.AssertNotCalled(t, "UpdateByReference", mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "duplicate insert falls back to update",
			reference: "R1",
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Verify", ctx, "R1").Return(&v, nil)
				repo.On("GetByReference", ctx, "R1").Return(nil, db.ErrNotFound)
				repo.On("Insert", ctx, mock.AnythingOfType("*transaction.Transaction")).Return(int64(0), errors.Join(transaction.ErrDuplicateReference, db.ErrConflict))
				repo.On("UpdateByReference", ctx, "R1", transaction.Update{Status: transaction.StatusSuccessful, PaymentMethod: "card"}).Return(true, nil)
				pub.On("Publish", ctx, mock.AnythingOfType("events.WebhookReceived")).Return(nil)
			},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				repo.AssertExpectations(t)
				pub.AssertExpectations(t)
				dlq.AssertNotCalled(t, "SendToDLQ", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:      "store failure goes to dead letter",
			reference: "R1",
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Verify", ctx, "R1").Return(&v, nil)
				repo.On("GetByReference", ctx, "R1").Return(&transaction.Transaction{Reference: "R1", Status: transaction.StatusPending}, nil)
				repo.On("UpdateByReference", ctx, "R1", mock.Anything).Return(false, storeErr)
				dlq.On("SendToDLQ", ctx, events.SourceWebhook, "R1", storeErr.Error(), mock.AnythingOfType("events.Verification")).Return()
				pub.On("Publish", ctx, mock.AnythingOfType("events.ReconciliationFailed")).Return(nil)
			},
			expectedErr: []error{ErrStore, db.ErrInternal},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				dlq.AssertExpectations(t)
				pub.AssertNotCalled(t, "Publish", mock.Anything, mock.AnythingOfType("events.WebhookReceived"))
			},
		},
		{
			name:      "lookup failure is a store failure",
			reference: "R1",
			setup: func(gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				gw.On("Verify", ctx, "R1").Return(&v, nil)
				repo.On("GetByReference", ctx, "R1").Return(nil, storeErr)
				dlq.On("SendToDLQ", ctx, events.SourceWebhook, "R1", mock.Anything, mock.Anything).Return()
				pub.On("Publish", ctx, mock.Anything).Return(nil)
			},
			expectedErr: []error{ErrStore},
			assert: func(t *testing.T, gw *GatewayMock, repo *RepositoryMock, pub *PublisherMock, dlq *DeadLetterMock) {
				repo.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			gw, repo, pub, dlq := new(GatewayMock), new(RepositoryMock), new(PublisherMock), new(DeadLetterMock)
			tt.setup(gw, repo, pub, dlq)
			svc := NewService(Dependencies{Gateway: gw, Repository: repo, Bus: pub, DeadLetter: dlq}, Config{SiteURL: site})

			out, err := svc.HandleWebhook(ctx, WebhookNotification{Reference: tt.reference})
			if tt.expectedErr != nil {
				require.Nil(t, out)
				for _, e := range tt.expectedErr {
					require.ErrorIs(t, err, e)
				}
			} else {
				require.NoError(t, err)
			}
			tt.assert(t, gw, repo, pub, dlq)
		})
	}
}

func TestService_HandleCallback(t *testing.T) {
	var tests = []struct {
		name           string
		cfg            Config
		seed           transaction.Metadata
		seedRecord     bool
		verification   *gateway.Verification
		verifyErr      error
		expectedErr    error
		expectedHost   string
		expectedPath   string
		expectedStatus transaction.Status
		expectRecord   bool
	}{
		{
			name:           "present record redirects to stored target",
			cfg:            Config{AllowedRedirectHosts: []string{"shop.example"}},
			seedRecord:     true,
			seed:           transaction.Metadata{transaction.MetaRedirectURL: "https://shop.example/thanks"},
			verification:   ptr(verified("successful", "card")),
			expectedHost:   "shop.example",
			expectedPath:   "/thanks",
			expectedStatus: transaction.StatusSuccessful,
			expectRecord:   true,
		},
		{
			name:           "foreign redirect target falls back to site",
			seedRecord:     true,
			seed:           transaction.Metadata{transaction.MetaRedirectURL: "https://evil.example/"},
			verification:   ptr(verified("failed", "")),
			expectedHost:   "merchant.example",
			expectedPath:   "/",
			expectedStatus: transaction.StatusFailed,
			expectRecord:   true,
		},
		{
			name:           "absent record is not created by default",
			verification:   ptr(verified("successful", "card")),
			expectedHost:   "merchant.example",
			expectedPath:   "/",
			expectedStatus: transaction.StatusSuccessful,
			expectRecord:   false,
		},
		{
			name:           "absent record created when configured",
			cfg:            Config{CallbackCreatesMissing: true},
			verification:   ptr(verified("successful", "card")),
			expectedHost:   "merchant.example",
			expectedPath:   "/",
			expectedStatus: transaction.StatusSuccessful,
			expectRecord:   true,
		},
		{
			name:         "verify failure does not redirect",
			seedRecord:   true,
			verifyErr:    &gateway.Error{Kind: gateway.ErrGateway, Op: "verify", StatusCode: 500},
			expectedErr:  ErrVerificationFailed,
			expectRecord: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			h := newHarness(t, tt.cfg)
			if tt.seedRecord {
				h.seedPending(t, "R1", tt.seed)
			}
			if tt.verification != nil {
				h.gw.Seed("R1", *tt.verification)
			}
			if tt.verifyErr != nil {
				h.gw.FailVerify("R1", tt.verifyErr)
			}

			res, err := h.svc.HandleCallback(ctx, "R1")
			got, getErr := h.repo.GetByReference(ctx, "R1")
			if tt.expectRecord {
				require.NoError(t, getErr)
			} else {
				require.ErrorIs(t, getErr, db.ErrNotFound)
			}

			if tt.expectedErr != nil {
				require.ErrorIs(t, err, tt.expectedErr)
				require.Nil(t, res)
				require.Equal(t, transaction.StatusPending, got.Status)
				require.Empty(t, h.eventsNamed("novac.payment_callback"))
				return
			}
			require.NoError(t, err)
			u, err := url.Parse(res.RedirectURL)
			require.NoError(t, err)
			require.Equal(t, tt.expectedHost, u.Host)
			require.Equal(t, tt.expectedPath, u.Path)
			require.Equal(t, string(tt.expectedStatus), u.Query().Get("status"))
			require.Equal(t, "R1", u.Query().Get("reference"))
			if tt.expectRecord {
				require.Equal(t, tt.expectedStatus, got.Status)
			}
			require.Len(t, h.eventsNamed("novac.payment_callback"), 1)
			require.Empty(t, h.eventsNamed("novac.webhook_received"))
		})
	}
}

func TestService_HandleCallback_EmptyReference(t *testing.T) {
	t.Parallel()
	h := newHarness(t, Config{})
	_, err := h.svc.HandleCallback(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidReference)
	require.Zero(t, h.gw.VerifyCalls(""))
}

func TestService_Reverify(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newHarness(t, Config{})
	h.gw.Seed("R7", verified("failed", "card"))

	out, err := h.svc.Reverify(ctx, "R7")
	require.NoError(t, err)
	require.True(t, out.Created)
	require.Equal(t, transaction.StatusFailed, out.Status)
	require.Len(t, h.eventsNamed("novac.transaction_reverified"), 1)
	require.EqualValues(t, 1, h.metrics.PaymentsFailed.Load())

	_, err = h.svc.Reverify(ctx, "")
	require.ErrorIs(t, err, db.ErrInvalid)
}

func ptr[T any](v T) *T { return &v }
