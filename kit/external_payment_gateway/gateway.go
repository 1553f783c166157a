package external_payment_gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrGateway     = errors.New("gateway error")
	ErrNotFound    = errors.New("gateway: reference not found")
	ErrTransport   = errors.New("gateway transport error")
	ErrCircuitOpen = errors.New("circuit open")
)

// Gateway is the only way the service talks to the payment provider.
// Verify is the source of truth for a transaction's status.
type Gateway interface {
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}

type InitiateRequest struct {
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	CustomerName  string
	CustomerPhone string
	Description   string
	CallbackURL   string
	Metadata      map[string]any
}

type InitiateResult struct {
	CheckoutURL string
	Reference   string
}

type Verification struct {
	Status        string
	Amount        decimal.Decimal
	Currency      string
	CustomerEmail string
	CustomerName  string
	PaymentMethod string
	Metadata      map[string]any
}

// Error carries the provider's message and raw body for diagnostics. Kind is
// one of ErrGateway, ErrNotFound or ErrTransport.
type Error struct {
	Kind       error
	Op         string
	StatusCode int
	Message    string
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("gateway %s: status %d: %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("gateway %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() []error {
	errs := []error{e.Kind}
	// a missing reference is a gateway-class failure too
	if e.Kind == ErrNotFound {
		errs = append(errs, ErrGateway)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func IsTransport(err error) bool { return errors.Is(err, ErrTransport) }
func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }

// IsServerSide reports failures worth tripping a breaker on: transport
// problems and 5xx answers.
func IsServerSide(err error) bool {
	if errors.Is(err, ErrTransport) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ge *Error
	return errors.As(err, &ge) && ge.StatusCode >= 500
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
