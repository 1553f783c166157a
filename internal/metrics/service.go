package metrics

import "novac/kit/observability"

type Service struct {
	m *observability.Metrics
}

func NewService(m *observability.Metrics) *Service {
	return &Service{m: m}
}

func (s *Service) Snapshot() map[string]int64 {
	if s.m == nil {
		return map[string]int64{}
	}
	out := map[string]int64{
		"transactions_initiated": s.m.TransactionsInitiated.Load(),
		"transactions_created":   s.m.TransactionsCreated.Load(),
		"transactions_updated":   s.m.TransactionsUpdated.Load(),
		"webhooks_processed":     s.m.WebhooksProcessed.Load(),
		"callbacks_processed":    s.m.CallbacksProcessed.Load(),
		"verifications_failed":   s.m.VerificationsFailed.Load(),
		"store_failures":         s.m.StoreFailures.Load(),
		"payments_successful":    s.m.PaymentsSuccessful.Load(),
		"payments_failed":        s.m.PaymentsFailed.Load(),
	}
	for name, n := range s.m.EventCounts() {
		out["events."+name] = n
	}
	return out
}
