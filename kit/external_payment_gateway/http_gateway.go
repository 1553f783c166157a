package external_payment_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"novac/kit/observability"
)

const (
	DefaultBaseURL = "https://api.novacpayment.com/api/v1"
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 1 << 20
)

type HTTPConfig struct {
	BaseURL   string
	PublicKey string
	SecretKey string
	Timeout   time.Duration
	// Client overrides the default http.Client; its Timeout is left untouched.
	Client *http.Client
}

// HTTPGateway is the Novac REST client.
type HTTPGateway struct {
	baseURL   string
	publicKey string
	secretKey string
	client    *http.Client
	logger    *observability.Logger
}

func NewHTTPGateway(cfg HTTPConfig, logger *observability.Logger) *HTTPGateway {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPGateway{
		baseURL:   base,
		publicKey: cfg.PublicKey,
		secretKey: cfg.SecretKey,
		client:    client,
		logger:    logger,
	}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initiatePayload struct {
	PublicKey            string         `json:"publicKey"`
	Amount               json.Number    `json:"amount"`
	Currency             string         `json:"currency"`
	CustomerEmail        string         `json:"customerEmail"`
	CustomerName         string         `json:"customerName"`
	CustomerPhone        string         `json:"customerPhone,omitempty"`
	Description          string         `json:"description"`
	CallbackURL          string         `json:"callbackUrl"`
	TransactionReference string         `json:"transactionReference,omitempty"`
	Metadata             map[string]any `json:"metadata,omitempty"`
}

type initiateData struct {
	TransactionReference string `json:"transactionReference"`
	PaymentRedirectURL   string `json:"paymentRedirectUrl"`
}

type verifyData struct {
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customerEmail"`
	CustomerName  string          `json:"customerName"`
	PaymentMethod string          `json:"paymentMethod"`
	Metadata      json.RawMessage `json:"metadata"`
}

func (g *HTTPGateway) Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error) {
	body, err := json.Marshal(initiatePayload{
		PublicKey:            g.publicKey,
		Amount:               json.Number(req.Amount.StringFixed(2)),
		Currency:             req.Currency,
		CustomerEmail:        req.CustomerEmail,
		CustomerName:         req.CustomerName,
		CustomerPhone:        req.CustomerPhone,
		Description:          req.Description,
		CallbackURL:          req.CallbackURL,
		TransactionReference: req.Reference,
		Metadata:             req.Metadata,
	})
	if err != nil {
		return nil, &Error{Kind: ErrGateway, Op: "initiate", Message: "encode request", Err: err}
	}

	status, raw, err := g.do(ctx, "initiate", http.MethodPost, "/paymentlink/initiate", body)
	if err != nil {
		return nil, err
	}
	env, err := decodeEnvelope("initiate", status, raw, "Failed to initiate payment")
	if err != nil {
		return nil, err
	}

	var data initiateData
	if err := json.Unmarshal(env.Data, &data); err != nil || data.PaymentRedirectURL == "" {
		return nil, &Error{Kind: ErrGateway, Op: "initiate", StatusCode: status, Message: "malformed response", Body: raw, Err: err}
	}
	ref := data.TransactionReference
	if ref == "" {
		ref = req.Reference
	}
	return &InitiateResult{CheckoutURL: data.PaymentRedirectURL, Reference: ref}, nil
}

func (g *HTTPGateway) Verify(ctx context.Context, reference string) (*Verification, error) {
	status, raw, err := g.do(ctx, "verify", http.MethodGet, "/checkout/"+url.PathEscape(reference)+"/verify", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, &Error{Kind: ErrNotFound, Op: "verify", StatusCode: status, Message: messageOr(raw, "Transaction not found"), Body: raw}
	}
	env, err := decodeEnvelope("verify", status, raw, "Failed to verify transaction")
	if err != nil {
		return nil, err
	}

	var data verifyData
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &Error{Kind: ErrGateway, Op: "verify", StatusCode: status, Message: "malformed response: missing data", Body: raw}
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &Error{Kind: ErrGateway, Op: "verify", StatusCode: status, Message: "malformed response", Body: raw, Err: err}
	}

	return &Verification{
		Status:        data.Status,
		Amount:        data.Amount,
		Currency:      data.Currency,
		CustomerEmail: data.CustomerEmail,
		CustomerName:  data.CustomerName,
		PaymentMethod: data.PaymentMethod,
		Metadata:      decodeMetadata(data.Metadata),
	}, nil
}

func (g *HTTPGateway) do(ctx context.Context, op, method, path string, body []byte) (int, []byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, rdr)
	if err != nil {
		return 0, nil, &Error{Kind: ErrGateway, Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Error("gateway request failed", "layer", "kit", "component", "gateway", "op", op, "elapsed", time.Since(started).String(), "error", err.Error())
		return 0, nil, &Error{Kind: ErrTransport, Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp.StatusCode, nil, &Error{Kind: ErrTransport, Op: op, StatusCode: resp.StatusCode, Err: err}
	}
	g.logger.Debug("gateway request", "layer", "kit", "component", "gateway", "op", op, "status", resp.StatusCode, "elapsed", time.Since(started).String())
	return resp.StatusCode, raw, nil
}

func decodeEnvelope(op string, status int, raw []byte, fallback string) (*envelope, error) {
	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if status < 200 || status > 299 {
		msg := env.Message
		if decodeErr != nil || msg == "" {
			msg = fallback
		}
		return nil, &Error{Kind: ErrGateway, Op: op, StatusCode: status, Message: msg, Body: raw}
	}
	if decodeErr != nil {
		return nil, &Error{Kind: ErrGateway, Op: op, StatusCode: status, Message: "malformed response", Body: raw, Err: decodeErr}
	}
	return &env, nil
}

func messageOr(raw []byte, fallback string) string {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Message == "" {
		return fallback
	}
	return env.Message
}

// decodeMetadata accepts an object or a JSON-encoded object string.
func decodeMetadata(raw json.RawMessage) map[string]any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err == nil {
		return m
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		if err := json.Unmarshal([]byte(s), &m); err == nil {
			return m
		}
	}
	return nil
}

var _ Gateway = (*HTTPGateway)(nil)
