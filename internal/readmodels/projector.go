package readmodels

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"novac/internal/events"
	"novac/kit/broker"
	"novac/kit/db"
)

// ActivityView summarizes what the service has seen for one reference.
type ActivityView struct {
	Reference     string    `json:"reference"`
	LastStatus    string    `json:"last_status,omitempty"`
	LastEvent     string    `json:"last_event"`
	Initiated     bool      `json:"initiated"`
	Webhooks      int       `json:"webhooks"`
	Callbacks     int       `json:"callbacks"`
	Reverifies    int       `json:"reverifies"`
	StatusChanges int       `json:"status_changes"`
	Failures      int       `json:"failures"`
	LastFailure   string    `json:"last_failure,omitempty"`
	FirstSeenAt   time.Time `json:"first_seen_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type JournalContract interface {
	All(ctx context.Context) []db.Record
}

type Projector struct {
	mu       sync.RWMutex
	activity map[string]ActivityView
}

func NewProjector() *Projector {
	return &Projector{activity: make(map[string]ActivityView)}
}

// Replay rebuilds the views from the journal. Call it before subscribing
// Apply to the bus so no event is counted twice.
func (p *Projector) Replay(ctx context.Context, journal JournalContract) error {
	for _, rec := range journal.All(ctx) {
		if err := p.ApplyRecord(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) Apply(ctx context.Context, evt broker.Event) error {
	switch e := evt.(type) {
	case events.TransactionInitiated:
		p.update(e.Reference, e.Name(), e.At, func(v *ActivityView) {
			v.Initiated = true
			if v.LastStatus == "" {
				v.LastStatus = "pending"
			}
		})
	case events.WebhookReceived:
		p.update(e.Reference, e.Name(), e.At, func(v *ActivityView) {
			v.Webhooks++
			applyVerified(v, e.Verification.Status, e.Changed)
		})
	case events.PaymentCallback:
		p.update(e.Reference, e.Name(), e.At, func(v *ActivityView) {
			v.Callbacks++
			applyVerified(v, e.Verification.Status, e.Changed)
		})
	case events.TransactionReverified:
		p.update(e.Reference, e.Name(), e.At, func(v *ActivityView) {
			v.Reverifies++
			applyVerified(v, e.Verification.Status, e.Changed)
		})
	case events.ReconciliationFailed:
		p.update(e.Reference, e.Name(), e.At, func(v *ActivityView) {
			v.Failures++
			v.LastFailure = e.Source + "/" + e.Stage + ": " + e.Reason
		})
	}
	return nil
}

func (p *Projector) ApplyRecord(ctx context.Context, rec db.Record) error {
	var (
		evt broker.Event
		err error
	)
	switch rec.EventName {
	case events.TransactionInitiated{}.Name():
		evt, err = decode[events.TransactionInitiated](rec.Payload)
	case events.WebhookReceived{}.Name():
		evt, err = decode[events.WebhookReceived](rec.Payload)
	case events.PaymentCallback{}.Name():
		evt, err = decode[events.PaymentCallback](rec.Payload)
	case events.TransactionReverified{}.Name():
		evt, err = decode[events.TransactionReverified](rec.Payload)
	case events.ReconciliationFailed{}.Name():
		evt, err = decode[events.ReconciliationFailed](rec.Payload)
	default:
		return nil
	}
	if err != nil {
		return errors.Join(db.ErrInternal, err)
	}
	return p.Apply(ctx, evt)
}

func (p *Projector) Get(reference string) (ActivityView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	v, ok := p.activity[reference]
	return v, ok
}

func (p *Projector) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.activity)
}

func (p *Projector) update(reference, name string, at time.Time, fn func(v *ActivityView)) {
	if reference == "" {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	cur := p.activity[reference]
	cur.Reference = reference
	cur.LastEvent = name
	if cur.FirstSeenAt.IsZero() || (!at.IsZero() && at.Before(cur.FirstSeenAt)) {
		cur.FirstSeenAt = at
	}
	if at.After(cur.UpdatedAt) {
		cur.UpdatedAt = at
	}
	fn(&cur)
	p.activity[reference] = cur
}

func applyVerified(v *ActivityView, status string, changed bool) {
	if status != "" {
		v.LastStatus = status
	}
	if changed {
		v.StatusChanges++
	}
}

func decode[T broker.Event](payload json.RawMessage) (broker.Event, error) {
	var e T
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, err
	}
	return e, nil
}
