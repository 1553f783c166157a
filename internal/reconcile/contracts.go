package reconcile

import (
	"context"

	"novac/internal/transaction"
	"novac/kit/broker"
	gateway "novac/kit/external_payment_gateway"
)

// GatewayContract define verification responsibility.
type GatewayContract interface {
	Verify(ctx context.Context, reference string) (*gateway.Verification, error)
}

// RepositoryContract define the store operations reconciliation needs.
type RepositoryContract interface {
	Insert(ctx context.Context, t *transaction.Transaction) (int64, error)
	UpdateByReference(ctx context.Context, reference string, u transaction.Update) (bool, error)
	GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error)
}

// PublisherContract define publish responsibility (broker).
type PublisherContract interface {
	Publish(ctx context.Context, evt broker.Event) []error
}

// StoreContract define append responsibility (event journal).
type StoreContract interface {
	Append(ctx context.Context, reference string, evt broker.Event) error
}

// DeadLetterContract define dead-letter responsibility (recovery).
type DeadLetterContract interface {
	SendToDLQ(ctx context.Context, topic, reference, reason string, payload any)
}

// ServiceContract define reconciliation responsibility.
type ServiceContract interface {
	HandleWebhook(ctx context.Context, n WebhookNotification) (*Outcome, error)
	HandleCallback(ctx context.Context, reference string) (*CallbackResult, error)
	Reverify(ctx context.Context, reference string) (*Outcome, error)
}
