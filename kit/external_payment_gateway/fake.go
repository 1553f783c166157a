package external_payment_gateway

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// FakeGateway is an in-memory sandbox provider. Initiated sessions start
// pending; tests and local runs settle them with SetStatus.
type FakeGateway struct {
	checkoutBase string

	mu          sync.Mutex
	sessions    map[string]Verification
	verifyErrs  map[string]error
	initiateErr error
	verifyCalls map[string]int
}

func NewFakeGateway(checkoutBase string) *FakeGateway {
	if checkoutBase == "" {
		checkoutBase = "https://sandbox.novac.local"
	}
	return &FakeGateway{
		checkoutBase: strings.TrimRight(checkoutBase, "/"),
		sessions:     make(map[string]Verification),
		verifyErrs:   make(map[string]error),
		verifyCalls:  make(map[string]int),
	}
}

func (g *FakeGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: ErrTransport, Op: "initiate", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initiateErr != nil {
		return nil, g.initiateErr
	}

	ref := req.Reference
	if ref == "" {
		ref = "fake_" + uuid.NewString()
	}
	g.sessions[ref] = Verification{
		Status:        "pending",
		Amount:        req.Amount,
		Currency:      req.Currency,
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Metadata:      cloneMetadata(req.Metadata),
	}
	return &InitiateResult{CheckoutURL: g.checkoutBase + "/checkout/" + ref, Reference: ref}, nil
}

func (g *FakeGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: ErrTransport, Op: "verify", Err: err}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls[reference]++

	if err, ok := g.verifyErrs[reference]; ok {
		return nil, err
	}
	v, ok := g.sessions[reference]
	if !ok {
		return nil, &Error{Kind: ErrNotFound, Op: "verify", StatusCode: 404, Message: "Transaction not found"}
	}
	v.Metadata = cloneMetadata(v.Metadata)
	return &v, nil
}

// Seed registers or replaces a session as the provider would report it.
func (g *FakeGateway) Seed(reference string, v Verification) {
	g.mu.Lock()
	defer g.mu.Unlock()
	v.Metadata = cloneMetadata(v.Metadata)
	g.sessions[reference] = v
}

// SetStatus settles a known session. It reports false for unknown references.
func (g *FakeGateway) SetStatus(reference, status, paymentMethod string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	v, ok := g.sessions[reference]
	if !ok {
		return false
	}
	v.Status = status
	v.PaymentMethod = paymentMethod
	g.sessions[reference] = v
	return true
}

// FailVerify makes Verify(reference) return err until cleared with a nil err.
func (g *FakeGateway) FailVerify(reference string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.verifyErrs, reference)
		return
	}
	g.verifyErrs[reference] = err
}

func (g *FakeGateway) FailInitiate(err error) {
	g.mu.Lock()
	g.initiateErr = err
	g.mu.Unlock()
}

func (g *FakeGateway) VerifyCalls(reference string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.verifyCalls[reference]
}

var _ Gateway = (*FakeGateway)(nil)
