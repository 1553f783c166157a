package transaction

import (
	"errors"
	"strings"

	"novac/kit/db"
)

var ErrInvalidTransaction = errors.New("invalid transaction")

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

var orderColumns = map[string]string{
	"created_at": "created_at",
	"amount":     "amount",
	"status":     "status",
}

func ValidateForInsert(t *Transaction) error {
	if t == nil || strings.TrimSpace(t.Reference) == "" || t.Amount.IsNegative() {
		return errors.Join(db.ErrInvalid, ErrInvalidTransaction)
	}
	return nil
}

// NormalizeList applies the list defaults and whitelists ordering.
func NormalizeList(f ListFilter, page, perPage int) (ListFilter, int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	col, ok := orderColumns[strings.ToLower(f.OrderBy)]
	if !ok {
		col = "created_at"
	}
	f.OrderBy = col
	if strings.EqualFold(f.Order, "ASC") {
		f.Order = "ASC"
	} else {
		f.Order = "DESC"
	}
	f.Search = strings.TrimSpace(f.Search)
	return f, page, perPage
}

func applyInsertDefaults(t *Transaction) {
	if t.Status == "" {
		t.Status = StatusPending
	}
	if t.Currency == "" {
		t.Currency = DefaultCurrency
	}
}
