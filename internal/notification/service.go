package notification

import (
	"context"
	"sync"
	"time"

	"novac/kit/observability"
)

type Message struct {
	Recipient string    `json:"recipient"`
	Reference string    `json:"reference"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	At        time.Time `json:"at"`
}

// Service delivers customer notifications. The only sink is the log; the
// outbox keeps what was sent for inspection.
type Service struct {
	logger *observability.Logger

	mu     sync.Mutex
	outbox []Message
}

func NewService(logger *observability.Logger) *Service {
	return &Service{logger: logger}
}

func (s *Service) Notify(ctx context.Context, msg Message) {
	if msg.At.IsZero() {
		msg.At = time.Now().UTC()
	}
	s.mu.Lock()
	s.outbox = append(s.outbox, msg)
	s.mu.Unlock()

	s.logger.Info("notify", "layer", "service", "component", "notification", "recipient", msg.Recipient, "reference", msg.Reference, "subject", msg.Subject)
}

func (s *Service) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.outbox...)
}
