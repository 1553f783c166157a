package observability

import (
	"sync"
	"sync/atomic"
)

type Metrics struct {
	TransactionsInitiated atomic.Int64
	TransactionsCreated   atomic.Int64
	TransactionsUpdated   atomic.Int64
	WebhooksProcessed     atomic.Int64
	CallbacksProcessed    atomic.Int64
	VerificationsFailed   atomic.Int64
	StoreFailures         atomic.Int64
	PaymentsSuccessful    atomic.Int64
	PaymentsFailed        atomic.Int64

	events sync.Map
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// Nil-safe increment helpers so callers can run without metrics wired.

func (m *Metrics) TransactionsInitiatedAdd(n int64) {
	if m != nil {
		m.TransactionsInitiated.Add(n)
	}
}

func (m *Metrics) TransactionsCreatedAdd(n int64) {
	if m != nil {
		m.TransactionsCreated.Add(n)
	}
}

func (m *Metrics) TransactionsUpdatedAdd(n int64) {
	if m != nil {
		m.TransactionsUpdated.Add(n)
	}
}

func (m *Metrics) WebhooksProcessedAdd(n int64) {
	if m != nil {
		m.WebhooksProcessed.Add(n)
	}
}

func (m *Metrics) CallbacksProcessedAdd(n int64) {
	if m != nil {
		m.CallbacksProcessed.Add(n)
	}
}

func (m *Metrics) VerificationsFailedAdd(n int64) {
	if m != nil {
		m.VerificationsFailed.Add(n)
	}
}

func (m *Metrics) StoreFailuresAdd(n int64) {
	if m != nil {
		m.StoreFailures.Add(n)
	}
}

func (m *Metrics) PaymentsSuccessfulAdd(n int64) {
	if m != nil {
		m.PaymentsSuccessful.Add(n)
	}
}

func (m *Metrics) PaymentsFailedAdd(n int64) {
	if m != nil {
		m.PaymentsFailed.Add(n)
	}
}

// EventObservedAdd counts deliveries of a named domain event.
func (m *Metrics) EventObservedAdd(name string, n int64) {
	if m == nil {
		return
	}
	c, _ := m.events.LoadOrStore(name, new(atomic.Int64))
	c.(*atomic.Int64).Add(n)
}

func (m *Metrics) EventCounts() map[string]int64 {
	out := map[string]int64{}
	if m == nil {
		return out
	}
	m.events.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}
