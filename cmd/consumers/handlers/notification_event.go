package handlers

import (
	"context"
	"fmt"
	"time"

	"novac/internal/events"
	"novac/internal/notification"
	"novac/internal/transaction"
	"novac/kit/broker"
)

type NotificationEvent struct {
	n NotifierContract
}

func NewNotificationEvent(n NotifierContract) *NotificationEvent {
	return &NotificationEvent{n: n}
}

// HandleWebhookReceived tells the customer about a payment that just reached
// a terminal status. Redeliveries that change nothing stay silent.
func (h *NotificationEvent) HandleWebhookReceived(ctx context.Context, evt broker.Event) error {
	if h.n == nil {
		return nil
	}
	e, ok := evt.(events.WebhookReceived)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnexpectedEventType, evt)
	}
	if !e.Changed || e.Verification.CustomerEmail == "" {
		return nil
	}

	var subject string
	switch transaction.Status(e.Verification.Status) {
	case transaction.StatusSuccessful:
		subject = "payment completed"
	case transaction.StatusFailed:
		subject = "payment failed"
	default:
		return nil
	}

	h.n.Notify(ctx, notification.Message{
		Recipient: e.Verification.CustomerEmail,
		Reference: e.Reference,
		Subject:   subject,
		Body:      fmt.Sprintf("Your payment of %s %s (%s) is %s.", e.Verification.Currency, e.Verification.Amount.StringFixed(2), e.Reference, e.Verification.Status),
		At:        time.Now().UTC(),
	})
	return nil
}
