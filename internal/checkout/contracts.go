package checkout

import (
	"context"

	"novac/internal/transaction"
	"novac/kit/broker"
	gateway "novac/kit/external_payment_gateway"
)

// GatewayContract define checkout session responsibility.
type GatewayContract interface {
	Initiate(ctx context.Context, req gateway.InitiateRequest) (*gateway.InitiateResult, error)
}

// RepositoryContract define the store operation initiation needs.
type RepositoryContract interface {
	Insert(ctx context.Context, t *transaction.Transaction) (int64, error)
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

// ServiceContract define payment initiation responsibility.
type ServiceContract interface {
	Initiate(ctx context.Context, req Request) (*Result, error)
}
