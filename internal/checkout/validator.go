package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"novac/internal/transaction"
	"novac/kit/db"
)

var (
	ErrInvalidRequest   = errors.New("invalid payment request")
	ErrInitiationFailed = errors.New("payment initiation failed")
)

const maxAmount = 99999999.99

type Request struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Email       string          `json:"email" validate:"required,email,max=255"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0,lte=99999999.99"`
	Currency    string          `json:"currency" validate:"required,alpha,min=3,max=10"`
	Description string          `json:"description" validate:"max=1000"`
	Phone       string          `json:"phone" validate:"omitempty,max=32"`
	RedirectURL string          `json:"redirect_url" validate:"omitempty,url,startswith=http"`
	Metadata    map[string]any  `json:"metadata"`
}

// FieldErrors maps a request field to its validation message.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		d, ok := f.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		return d.InexactFloat64()
	}, decimal.Decimal{})
	return v
}

func validateRequest(v *validator.Validate, r Request) error {
	fields := FieldErrors{}
	if err := v.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return errors.Join(db.ErrInvalid, ErrInvalidRequest, err)
		}
		for _, fe := range ve {
			fields[fe.Field()] = messageForTag(fe.Tag(), fe.Param())
		}
	}
	if _, ok := fields["amount"]; !ok && !r.Amount.Equal(r.Amount.Round(2)) {
		fields["amount"] = "must have at most 2 decimal places"
	}
	if len(fields) > 0 {
		return errors.Join(db.ErrInvalid, ErrInvalidRequest, fields)
	}
	return nil
}

func messageForTag(tag, param string) string {
	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url", "startswith":
		return "must be an http(s) URL"
	case "gt":
		return "must be greater than " + param
	case "lte":
		return fmt.Sprintf("must not exceed %.2f", maxAmount)
	case "alpha":
		return "must contain letters only"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	default:
		return "is invalid"
	}
}

// normalize applies the form defaults before validation.
func normalize(r Request) Request {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	if r.Currency == "" {
		r.Currency = transaction.DefaultCurrency
	}
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		r.Description = DefaultDescription
	}
	r.Phone = strings.TrimSpace(r.Phone)
	r.RedirectURL = strings.TrimSpace(r.RedirectURL)
	return r
}
