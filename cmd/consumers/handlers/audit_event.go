package handlers

import (
	"context"

	"novac/internal/audit"
	"novac/internal/events"
	"novac/kit/broker"
)

const systemActor = "system"

type AuditEvent struct {
	audit AuditorContract
}

func NewAuditEvent(a AuditorContract) *AuditEvent {
	return &AuditEvent{audit: a}
}

func (h *AuditEvent) HandleAny(ctx context.Context, evt broker.Event) error {
	if h.audit == nil {
		return nil
	}

	entry := audit.Entry{Event: evt.Name(), Actor: systemActor, Fields: map[string]any{}}
	switch e := evt.(type) {
	case events.TransactionInitiated:
		entry.Reference = e.Reference
		entry.Fields["amount"] = e.Amount.StringFixed(2)
		entry.Fields["currency"] = e.Currency
		entry.Fields["stored"] = e.Stored
	case events.WebhookReceived:
		entry.Reference = e.Reference
		entry.Fields["status"] = e.Verification.Status
		entry.Fields["created"] = e.Created
		entry.Fields["changed"] = e.Changed
	case events.PaymentCallback:
		entry.Reference = e.Reference
		entry.Fields["status"] = e.Verification.Status
		entry.Fields["updated"] = e.Updated
		entry.Fields["created"] = e.Created
		entry.Fields["redirect_url"] = e.RedirectURL
	case events.TransactionReverified:
		entry.Reference = e.Reference
		entry.Fields["status"] = e.Verification.Status
		entry.Fields["created"] = e.Created
		entry.Fields["changed"] = e.Changed
	case events.ReconciliationFailed:
		entry.Reference = e.Reference
		entry.Fields["source"] = e.Source
		entry.Fields["stage"] = e.Stage
		entry.Fields["reason"] = e.Reason
	}

	h.audit.Record(ctx, entry)
	return nil
}
