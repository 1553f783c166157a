package reconcile

import (
	"errors"

	"novac/internal/transaction"
	"novac/kit/db"
)

var (
	ErrInvalidReference   = errors.New("transaction reference is required")
	ErrVerificationFailed = errors.New("verification failed")
	ErrStore              = errors.New("transaction store failure")
)

// WebhookNotification is the inbound push. Only the reference is trusted,
// and only as a lookup key.
type WebhookNotification struct {
	Reference string
}

type Outcome struct {
	Reference      string             `json:"reference"`
	Status         transaction.Status `json:"status"`
	PreviousStatus transaction.Status `json:"previous_status,omitempty"`
	PaymentMethod  string             `json:"payment_method,omitempty"`
	Created        bool               `json:"created"`
	Updated        bool               `json:"updated"`
}

// Changed reports whether this run moved the record to a new status.
func (o *Outcome) Changed() bool {
	return o.Created || (o.Updated && o.PreviousStatus != o.Status)
}

type CallbackResult struct {
	Outcome
	RedirectURL string `json:"redirect_url"`
}

type Config struct {
	// SiteURL is the default redirect target and is always an allowed host.
	SiteURL              string
	AllowedRedirectHosts []string
	// CallbackCreatesMissing lets the callback path create an absent record
	// the way the webhook path does.
	CallbackCreatesMissing bool
}

func invalidReference() error {
	return errors.Join(db.ErrInvalid, ErrInvalidReference)
}
