package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"novac/internal/events"
	"novac/internal/transaction"
	gateway "novac/kit/external_payment_gateway"
	"novac/kit/observability"
)

const (
	DefaultDescription = "Payment"
	ReferencePrefix    = "WP_novac_"
	CallbackPath       = "/payments/callback"
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

type Config struct {
	// PublicBaseURL is where the gateway sends the payer back to.
	PublicBaseURL string
}

type Result struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

// Service opens gateway checkout sessions and records them as pending.
type Service struct {
	gateway      GatewayContract
	repository   RepositoryContract
	bus          PublisherContract
	journal      StoreContract
	dlq          DeadLetterContract
	metrics      *observability.Metrics
	logger       *observability.Logger
	validate     *validator.Validate
	callbackURL  string
	newReference func() string
}

func NewService(deps Dependencies, cfg Config) *Service {
	return &Service{
		gateway:      deps.Gateway,
		repository:   deps.Repository,
		bus:          deps.Bus,
		journal:      deps.Journal,
		dlq:          deps.DeadLetter,
		metrics:      deps.Metrics,
		logger:       deps.Logger,
		validate:     newValidator(),
		callbackURL:  strings.TrimRight(cfg.PublicBaseURL, "/") + CallbackPath,
		newReference: func() string { return ReferencePrefix + uuid.NewString() },
	}
}

func (s *Service) Initiate(ctx context.Context, req Request) (*Result, error) {
	req = normalize(req)
	if err := validateRequest(s.validate, req); err != nil {
		s.logger.Warn("initiate rejected", "layer", "service", "component", "checkout", "method", "Initiate", "email", req.Email, "error", err.Error())
		return nil, err
	}

	metadata := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	if req.RedirectURL != "" {
		metadata[transaction.MetaRedirectURL] = req.RedirectURL
	}
	if len(metadata) == 0 {
		metadata = nil
	}

	reference := s.newReference()
	res, err := s.gateway.Initiate(ctx, gateway.InitiateRequest{
		Reference:     reference,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		CustomerPhone: req.Phone,
		Description:   req.Description,
		CallbackURL:   s.callbackURL,
		Metadata:      metadata,
	})
	if err != nil {
		s.logger.Error("gateway initiate failed", "layer", "service", "component", "checkout", "method", "Initiate", "reference", reference, "error", err.Error())
		return nil, errors.Join(ErrInitiationFailed, err)
	}
	if res.Reference != "" {
		reference = res.Reference
	}

	tx := &transaction.Transaction{
		Reference:     reference,
		CustomerEmail: req.Email,
		CustomerName:  req.Name,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Status:        transaction.StatusPending,
		Description:   req.Description,
		Metadata:      transaction.Metadata(metadata),
	}
	stored := true
	if _, err := s.repository.Insert(ctx, tx); err != nil && !errors.Is(err, transaction.ErrDuplicateReference) {
		// the webhook creates the record later, so the payer still proceeds
		stored = false
		s.logger.Error("store pending transaction failed", "layer", "service", "component", "checkout", "method", "Initiate", "reference", reference, "error", err.Error())
		if s.dlq != nil {
			s.dlq.SendToDLQ(ctx, events.SourceInitiate, reference, err.Error(), tx)
		}
	}
	s.metrics.TransactionsInitiatedAdd(1)

	evt := events.TransactionInitiated{
		Reference:     reference,
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.Email,
		CheckoutURL:   res.CheckoutURL,
		Stored:        stored,
		At:            time.Now().UTC(),
	}
	if s.journal != nil {
		if err := s.journal.Append(ctx, reference, evt); err != nil {
			s.logger.Error("journal append failed", "layer", "service", "component", "checkout", "event", evt.Name(), "reference", reference, "error", err.Error())
		}
	}
	if s.bus != nil {
		for _, perr := range s.bus.Publish(ctx, evt) {
			s.logger.Error("publish failed", "layer", "service", "component", "checkout", "event", evt.Name(), "reference", reference, "error", perr.Error())
		}
	}

	s.logger.Info("payment initiated", "layer", "service", "component", "checkout", "reference", reference, "stored", stored)
	return &Result{CheckoutURL: res.CheckoutURL, Reference: reference}, nil
}

var _ ServiceContract = (*Service)(nil)
