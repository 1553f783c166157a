package reconcile

import (
	"context"
	"errors"
	"strings"

	"novac/internal/events"
	"novac/internal/transaction"
	"novac/kit/broker"
	"novac/kit/db"
	gateway "novac/kit/external_payment_gateway"
	"novac/kit/observability"
)

type Dependencies struct {
	Gateway    GatewayContract
	Repository RepositoryContract
	Bus        PublisherContract
	Journal    StoreContract
	DeadLetter DeadLetterContract
	Metrics    *observability.Metrics
	Logger     *observability.Logger
}

// Service applies gateway-verified state to the transaction store. Inbound
// payloads only name the reference; status always comes from Verify.
type Service struct {
	gateway    GatewayContract
	repository RepositoryContract
	bus        PublisherContract
	journal    StoreContract
	dlq        DeadLetterContract
	metrics    *observability.Metrics
	logger     *observability.Logger
	cfg        Config
	redirects  *redirectPolicy
}

func NewService(deps Dependencies, cfg Config) *Service {
	return &Service{
		gateway:    deps.Gateway,
		repository: deps.Repository,
		bus:        deps.Bus,
		journal:    deps.Journal,
		dlq:        deps.DeadLetter,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		cfg:        cfg,
		redirects:  newRedirectPolicy(cfg.SiteURL, cfg.AllowedRedirectHosts),
	}
}

func (s *Service) HandleWebhook(ctx context.Context, n WebhookNotification) (*Outcome, error) {
	reference := strings.TrimSpace(n.Reference)
	if reference == "" {
		s.logger.Warn("webhook rejected", "layer", "service", "component", "reconcile", "method", "HandleWebhook", "error", ErrInvalidReference.Error())
		return nil, invalidReference()
	}

	res, err := s.apply(ctx, events.SourceWebhook, reference, true)
	if err != nil {
		return nil, err
	}
	s.metrics.WebhooksProcessedAdd(1)

	s.emit(ctx, reference, ToWebhookReceivedEvent(reference, res.verification, res.outcome))
	return &res.outcome, nil
}

func (s *Service) HandleCallback(ctx context.Context, reference string) (*CallbackResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		s.logger.Warn("callback rejected", "layer", "service", "component", "reconcile", "method", "HandleCallback", "error", ErrInvalidReference.Error())
		return nil, invalidReference()
	}

	res, err := s.apply(ctx, events.SourceCallback, reference, s.cfg.CallbackCreatesMissing)
	if err != nil {
		return nil, err
	}
	s.metrics.CallbacksProcessedAdd(1)

	target := res.verification.Metadata
	if res.existing != nil && res.existing.Metadata.String(transaction.MetaRedirectURL) != "" {
		target = res.existing.Metadata
	}
	redirectTo := s.redirects.Build(transaction.Metadata(target).String(transaction.MetaRedirectURL), string(res.outcome.Status), reference)

	s.emit(ctx, reference, ToPaymentCallbackEvent(reference, res.verification, res.outcome, redirectTo))
	return &CallbackResult{Outcome: res.outcome, RedirectURL: redirectTo}, nil
}

// Reverify is the operator trigger: callback store rules plus the webhook
// create-if-missing rule.
func (s *Service) Reverify(ctx context.Context, reference string) (*Outcome, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, invalidReference()
	}

	res, err := s.apply(ctx, events.SourceReverify, reference, true)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, reference, ToTransactionReverifiedEvent(reference, res.verification, res.outcome))
	return &res.outcome, nil
}

type applied struct {
	verification *gateway.Verification
	existing     *transaction.Transaction
	outcome      Outcome
}

func (s *Service) apply(ctx context.Context, source, reference string, createMissing bool) (*applied, error) {
	v, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		s.metrics.VerificationsFailedAdd(1)
		s.logger.Error("verify failed", "layer", "service", "component", "reconcile", "source", source, "reference", reference, "error", err.Error())
		s.emit(ctx, reference, ToReconciliationFailedEvent(reference, source, events.StageVerify, err, nil))
		return nil, errors.Join(ErrVerificationFailed, err)
	}

	update := transaction.Update{Status: transaction.StatusOrPending(v.Status), PaymentMethod: v.PaymentMethod}
	res := &applied{verification: v, outcome: Outcome{Reference: reference, Status: update.Status, PaymentMethod: v.PaymentMethod}}

	existing, err := s.repository.GetByReference(ctx, reference)
	switch {
	case err == nil:
		res.existing = existing
		res.outcome.PreviousStatus = existing.Status
		if err := s.update(ctx, source, reference, update, res); err != nil {
			return nil, err
		}
	case db.IsNotFound(err):
		if !createMissing {
			s.logger.Info("no local record", "layer", "service", "component", "reconcile", "source", source, "reference", reference)
			break
		}
		if err := s.create(ctx, source, reference, v, update, res); err != nil {
			return nil, err
		}
	default:
		return nil, s.storeFailure(ctx, source, reference, v, err)
	}

	s.countTerminal(res.outcome)
	s.logger.Info("reconciled", "layer", "service", "component", "reconcile", "source", source, "reference", reference,
		"status", string(res.outcome.Status), "created", res.outcome.Created, "updated", res.outcome.Updated)
	return res, nil
}

func (s *Service) update(ctx context.Context, source, reference string, u transaction.Update, res *applied) error {
	ok, err := s.repository.UpdateByReference(ctx, reference, u)
	if err != nil {
		return s.storeFailure(ctx, source, reference, res.verification, err)
	}
	res.outcome.Updated = ok
	if ok {
		s.metrics.TransactionsUpdatedAdd(1)
	}
	return nil
}

func (s *Service) create(ctx context.Context, source, reference string, v *gateway.Verification, u transaction.Update, res *applied) error {
	_, err := s.repository.Insert(ctx, ToTransaction(reference, v))
	switch {
	case err == nil:
		res.outcome.Created = true
		s.metrics.TransactionsCreatedAdd(1)
		return nil
	case errors.Is(err, transaction.ErrDuplicateReference):
		// a concurrent delivery created it first
		s.logger.Info("insert lost race, updating", "layer", "service", "component", "reconcile", "source", source, "reference", reference)
		return s.update(ctx, source, reference, u, res)
	default:
		return s.storeFailure(ctx, source, reference, v, err)
	}
}

func (s *Service) storeFailure(ctx context.Context, source, reference string, v *gateway.Verification, err error) error {
	s.metrics.StoreFailuresAdd(1)
	s.logger.Error("store failed", "layer", "service", "component", "reconcile", "source", source, "reference", reference, "error", err.Error())
	snapshot := ToEventVerification(v)
	if s.dlq != nil {
		s.dlq.SendToDLQ(ctx, source, reference, err.Error(), snapshot)
	}
	s.emit(ctx, reference, ToReconciliationFailedEvent(reference, source, events.StageStore, err, &snapshot))
	return errors.Join(ErrStore, err)
}

// countTerminal counts payments reaching a terminal status on this run only,
// so redeliveries do not inflate the counters.
func (s *Service) countTerminal(o Outcome) {
	if !o.Changed() {
		return
	}
	switch o.Status {
	case transaction.StatusSuccessful:
		s.metrics.PaymentsSuccessfulAdd(1)
	case transaction.StatusFailed:
		s.metrics.PaymentsFailedAdd(1)
	}
}

func (s *Service) emit(ctx context.Context, reference string, evt broker.Event) {
	if s.journal != nil {
		if err := s.journal.Append(ctx, reference, evt); err != nil {
			s.logger.Error("journal append failed", "layer", "service", "component", "reconcile", "reference", reference, "event", evt.Name(), "error", err.Error())
		}
	}
	if s.bus != nil {
		for _, err := range s.bus.Publish(ctx, evt) {
			s.logger.Error("publish failed", "layer", "service", "component", "reconcile", "reference", reference, "event", evt.Name(), "error", err.Error())
		}
	}
}

var _ ServiceContract = (*Service)(nil)
