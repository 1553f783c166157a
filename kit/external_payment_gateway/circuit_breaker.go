package external_payment_gateway

import (
	"context"
	"sync"
	"time"

	"novac/kit/observability"
)

type CircuitBreakerConfig struct {
	FailureThreshold int
	SuccessThreshold int
	OpenTimeout      time.Duration
	IsFailure        func(error) bool
}

// CircuitBreakerGateway guards a Gateway. Only server-side failures count
// toward opening; a 4xx or not-found answer is a healthy provider.
type CircuitBreakerGateway struct {
	next   Gateway
	cfg    CircuitBreakerConfig
	logger *observability.Logger
	now    func() time.Time

	mu           sync.Mutex
	state        int
	failures     int
	successes    int
	openedAt     time.Time
	halfInFlight bool
}

const (
	cbClosed = iota
	cbOpen
	cbHalfOpen
)

func NewCircuitBreakerGateway(next Gateway, cfg CircuitBreakerConfig, logger *observability.Logger) *CircuitBreakerGateway {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = IsServerSide
	}
	return &CircuitBreakerGateway{
		next:   next,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		state:  cbClosed,
	}
}

func (g *CircuitBreakerGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	if err := g.beforeCall(); err != nil {
		return nil, &Error{Kind: ErrTransport, Op: "initiate", Err: err}
	}
	res, err := g.next.Initiate(ctx, req)
	g.afterCall(err)
	return res, err
}

func (g *CircuitBreakerGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	if err := g.beforeCall(); err != nil {
		return nil, &Error{Kind: ErrTransport, Op: "verify", Err: err}
	}
	v, err := g.next.Verify(ctx, reference)
	g.afterCall(err)
	return v, err
}

// State is one of "closed", "open" or "half_open".
func (g *CircuitBreakerGateway) State() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch g.state {
	case cbOpen:
		return "open"
	case cbHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

func (g *CircuitBreakerGateway) beforeCall() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case cbClosed:
		return nil
	case cbOpen:
		if g.now().Sub(g.openedAt) >= g.cfg.OpenTimeout {
			g.state = cbHalfOpen
			g.successes = 0
			g.halfInFlight = false
		} else {
			return ErrCircuitOpen
		}
		fallthrough
	case cbHalfOpen:
		if g.halfInFlight {
			return ErrCircuitOpen
		}
		g.halfInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (g *CircuitBreakerGateway) afterCall(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == cbHalfOpen {
		g.halfInFlight = false
	}

	if err == nil || !g.cfg.IsFailure(err) {
		switch g.state {
		case cbClosed:
			g.failures = 0
		case cbHalfOpen:
			g.successes++
			if g.successes >= g.cfg.SuccessThreshold {
				g.state = cbClosed
				g.failures = 0
				g.successes = 0
				g.logger.Info("gateway circuit closed", "layer", "kit", "component", "circuit_breaker")
			}
		}
		return
	}

	switch g.state {
	case cbClosed:
		g.failures++
		if g.failures >= g.cfg.FailureThreshold {
			g.open()
		}
	case cbHalfOpen:
		g.open()
	}
}

func (g *CircuitBreakerGateway) open() {
	g.state = cbOpen
	g.openedAt = g.now()
	g.failures = g.cfg.FailureThreshold
	g.successes = 0
	g.halfInFlight = false
	g.logger.Warn("gateway circuit opened", "layer", "kit", "component", "circuit_breaker", "open_timeout", g.cfg.OpenTimeout.String())
}

var _ Gateway = (*CircuitBreakerGateway)(nil)
