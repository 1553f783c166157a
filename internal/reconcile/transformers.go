package reconcile

import (
	"time"

	"novac/internal/events"
	"novac/internal/transaction"
	gateway "novac/kit/external_payment_gateway"
)

// ToTransaction builds the record for a reference first seen through
// verification.
func ToTransaction(reference string, v *gateway.Verification) *transaction.Transaction {
	currency := v.Currency
	if currency == "" {
		currency = transaction.DefaultCurrency
	}
	return &transaction.Transaction{
		Reference:     reference,
		CustomerEmail: v.CustomerEmail,
		CustomerName:  v.CustomerName,
		Amount:        v.Amount,
		Currency:      currency,
		Status:        transaction.StatusOrPending(v.Status),
		PaymentMethod: v.PaymentMethod,
		Metadata:      transaction.Metadata(v.Metadata),
	}
}

func ToEventVerification(v *gateway.Verification) events.Verification {
	if v == nil {
		return events.Verification{}
	}
	return events.Verification{
		Status:        string(transaction.StatusOrPending(v.Status)),
		Amount:        v.Amount,
		Currency:      v.Currency,
		CustomerEmail: v.CustomerEmail,
		CustomerName:  v.CustomerName,
		PaymentMethod: v.PaymentMethod,
		Metadata:      v.Metadata,
	}
}

func ToWebhookReceivedEvent(reference string, v *gateway.Verification, o Outcome) events.WebhookReceived {
	return events.WebhookReceived{Reference: reference, Verification: ToEventVerification(v), Created: o.Created, Changed: o.Changed(), At: time.Now().UTC()}
}

func ToPaymentCallbackEvent(reference string, v *gateway.Verification, o Outcome, redirectURL string) events.PaymentCallback {
	return events.PaymentCallback{
		Reference:    reference,
		Verification: ToEventVerification(v),
		Updated:      o.Updated,
		Created:      o.Created,
		Changed:      o.Changed(),
		RedirectURL:  redirectURL,
		At:           time.Now().UTC(),
	}
}

func ToTransactionReverifiedEvent(reference string, v *gateway.Verification, o Outcome) events.TransactionReverified {
	return events.TransactionReverified{Reference: reference, Verification: ToEventVerification(v), Created: o.Created, Changed: o.Changed(), At: time.Now().UTC()}
}

func ToReconciliationFailedEvent(reference, source, stage string, err error, v *events.Verification) events.ReconciliationFailed {
	return events.ReconciliationFailed{Reference: reference, Source: source, Stage: stage, Reason: err.Error(), Verification: v, At: time.Now().UTC()}
}
