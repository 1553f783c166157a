package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"novac/cmd/web/validator"
	"novac/internal/checkout"
	"novac/kit/observability"
)

type CheckoutServiceContract interface {
	Initiate(ctx context.Context, req checkout.Request) (*checkout.Result, error)
}

type Checkout struct {
	json     *validator.JSON
	checkout CheckoutServiceContract
	logger   *observability.Logger
}

func NewCheckout(jsonV *validator.JSON, svc CheckoutServiceContract, logger *observability.Logger) *Checkout {
	return &Checkout{json: jsonV, checkout: svc, logger: logger}
}

type initiateError struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func (h *Checkout) Initiate(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		h.logger.Warn("invalid initiate body", "layer", "handler", "component", "checkout", "method", "Initiate", "error", err.Error())
		writeJSON(w, h.logger, http.StatusBadRequest, false, initiateError{Message: "Invalid payment request"})
		return
	}

	res, err := h.checkout.Initiate(r.Context(), req)
	if err != nil {
		var fe checkout.FieldErrors
		switch {
		case errors.As(err, &fe):
			writeJSON(w, h.logger, http.StatusBadRequest, false, initiateError{Message: "Please fill all required fields: name, email, amount, and currency", Errors: fe})
		case errors.Is(err, checkout.ErrInitiationFailed):
			h.logger.Warn("gateway rejected initiation", "layer", "handler", "component", "checkout", "method", "Initiate", "error", err.Error(), "gateway_body", gatewayBody(err))
			writeJSON(w, h.logger, http.StatusBadRequest, false, initiateError{Message: "Payment initiation failed: " + verificationMessage(err)})
		default:
			h.logger.Error("initiate failed", "layer", "handler", "component", "checkout", "method", "Initiate", "error", err.Error())
			writeError(w, h.logger, http.StatusInternalServerError, "Payment initiation failed")
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, true, res)
}

// decode accepts a JSON body or a classic form post.
func (h *Checkout) decode(w http.ResponseWriter, r *http.Request) (checkout.Request, error) {
	var req checkout.Request
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") {
		err := h.json.Decode(w, r, &req)
		return req, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.json.MaxBytes)
	if err := r.ParseForm(); err != nil {
		return req, errors.Join(validator.ErrInvalidJSON, err)
	}
	req.Name = r.PostForm.Get("name")
	req.Email = r.PostForm.Get("email")
	req.Currency = r.PostForm.Get("currency")
	req.Description = r.PostForm.Get("description")
	req.Phone = r.PostForm.Get("phone")
	req.RedirectURL = r.PostForm.Get("redirect_url")
	if raw := strings.TrimSpace(r.PostForm.Get("amount")); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return req, errors.Join(validator.ErrInvalidJSON, err)
		}
		req.Amount = amount
	}
	return req, nil
}
