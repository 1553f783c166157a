package transaction

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"novac/kit/db"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"

	DefaultCurrency = "NGN"
	MetaRedirectURL = "redirect_url"
)

var ErrDuplicateReference = errors.New("duplicate transaction reference")

func (s Status) Terminal() bool { return s == StatusSuccessful || s == StatusFailed }

// StatusOrPending maps the empty gateway status onto pending.
func StatusOrPending(s string) Status {
	if s == "" {
		return StatusPending
	}
	return Status(s)
}

// Transaction is one payment attempt. Reference, Amount, Currency and the
// customer fields are fixed once stored.
type Transaction struct {
	ID            int64           `json:"id"`
	Reference     string          `json:"reference"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        Status          `json:"status"`
	PaymentMethod string          `json:"payment_method,omitempty"`
	Description   string          `json:"description,omitempty"`
	Metadata      Metadata        `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Update is everything reconciliation may change on an existing record.
type Update struct {
	Status        Status
	PaymentMethod string
}

type ListFilter struct {
	Status  Status
	Search  string
	OrderBy string
	Order   string
	// CreatedBefore, when set, keeps records created strictly earlier.
	CreatedBefore time.Time
}

type ListResult struct {
	Items   []*Transaction `json:"items"`
	Total   int64          `json:"total"`
	Page    int            `json:"page"`
	PerPage int            `json:"per_page"`
}

// Metadata is free-form JSON attached to a transaction.
type Metadata map[string]any

func (m Metadata) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported type %T", src)
	}
	if len(raw) == 0 || string(raw) == "null" {
		*m = nil
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		// stored metadata that is not an object is kept opaque
		*m = Metadata{"raw": string(raw)}
		return nil
	}
	*m = out
	return nil
}

func (t *Transaction) clone() *Transaction {
	if t == nil {
		return nil
	}
	cpy := *t
	if t.Metadata != nil {
		cpy.Metadata = make(Metadata, len(t.Metadata))
		for k, v := range t.Metadata {
			cpy.Metadata[k] = v
		}
	}
	return &cpy
}

func duplicate(reference string) error {
	return errors.Join(ErrDuplicateReference, db.ErrConflict, fmt.Errorf("reference %q", reference))
}
