package events

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SourceWebhook  = "webhook"
	SourceCallback = "callback"
	SourceReverify = "reverify"
	SourceInitiate = "initiate"

	StageVerify = "verify"
	StageStore  = "store"
)

// Verification is the gateway's answer as carried on events.
type Verification struct {
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
}

type TransactionInitiated struct {
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customer_email"`
	CheckoutURL   string          `json:"checkout_url"`
	Stored        bool            `json:"stored"`
	At            time.Time       `json:"at"`
}

func (TransactionInitiated) Name() string { return "novac.transaction_initiated" }

func (e TransactionInitiated) PartitionKey() string { return e.Reference }

// WebhookReceived is emitted for every processed webhook delivery. Changed
// is set only when the delivery moved the stored status.
type WebhookReceived struct {
	Reference    string       `json:"reference"`
	Verification Verification `json:"verification"`
	Created      bool         `json:"created"`
	Changed      bool         `json:"changed"`
	At           time.Time    `json:"at"`
}

func (WebhookReceived) Name() string { return "novac.webhook_received" }

func (e WebhookReceived) PartitionKey() string { return e.Reference }

type PaymentCallback struct {
	Reference    string       `json:"reference"`
	Verification Verification `json:"verification"`
	Updated      bool         `json:"updated"`
	Created      bool         `json:"created"`
	Changed      bool         `json:"changed"`
	RedirectURL  string       `json:"redirect_url"`
	At           time.Time    `json:"at"`
}

func (PaymentCallback) Name() string { return "novac.payment_callback" }

func (e PaymentCallback) PartitionKey() string { return e.Reference }

type TransactionReverified struct {
	Reference    string       `json:"reference"`
	Verification Verification `json:"verification"`
	Created      bool         `json:"created"`
	Changed      bool         `json:"changed"`
	At           time.Time    `json:"at"`
}

func (TransactionReverified) Name() string { return "novac.transaction_reverified" }

func (e TransactionReverified) PartitionKey() string { return e.Reference }

type ReconciliationFailed struct {
	Reference    string        `json:"reference"`
	Source       string        `json:"source"`
	Stage        string        `json:"stage"`
	Reason       string        `json:"reason"`
	Verification *Verification `json:"verification,omitempty"`
	At           time.Time     `json:"at"`
}

func (ReconciliationFailed) Name() string { return "novac.reconciliation_failed" }

func (e ReconciliationFailed) PartitionKey() string { return e.Reference }

// Names lists every domain event name, for subscribers that want them all.
func Names() []string {
	return []string{
		TransactionInitiated{}.Name(),
		WebhookReceived{}.Name(),
		PaymentCallback{}.Name(),
		TransactionReverified{}.Name(),
		ReconciliationFailed{}.Name(),
	}
}
