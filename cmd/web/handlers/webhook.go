package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"novac/cmd/web/validator"
	"novac/internal/reconcile"
	"novac/kit/observability"
)

type WebhookServiceContract interface {
	HandleWebhook(ctx context.Context, n reconcile.WebhookNotification) (*reconcile.Outcome, error)
}

type Webhook struct {
	json      *validator.JSON
	reconcile WebhookServiceContract
	logger    *observability.Logger
}

func NewWebhook(jsonV *validator.JSON, svc WebhookServiceContract, logger *observability.Logger) *Webhook {
	return &Webhook{json: jsonV, reconcile: svc, logger: logger}
}

// webhookReq carries only the lookup key. Any status the provider claims in
// the body is ignored.
type webhookReq struct {
	TransactionRef string `json:"transactionRef"`
	Reference      string `json:"reference"`
}

func (r webhookReq) reference() string {
	if ref := strings.TrimSpace(r.TransactionRef); ref != "" {
		return ref
	}
	return strings.TrimSpace(r.Reference)
}

func (h *Webhook) Handle(w http.ResponseWriter, r *http.Request) {
	var req webhookReq
	if err := h.json.Decode(w, r, &req); err != nil {
		h.logger.Warn("invalid webhook body", "layer", "handler", "component", "webhook", "method", "Handle", "error", err.Error())
		writeError(w, h.logger, http.StatusBadRequest, "Invalid webhook data")
		return
	}
	ref := req.reference()
	if ref == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid webhook data")
		return
	}

	_, err := h.reconcile.HandleWebhook(r.Context(), reconcile.WebhookNotification{Reference: ref})
	switch {
	case err == nil:
		writeJSON(w, h.logger, http.StatusOK, true, message{Message: "Webhook processed"})
	case errors.Is(err, reconcile.ErrInvalidReference):
		writeError(w, h.logger, http.StatusBadRequest, "Invalid webhook data")
	case errors.Is(err, reconcile.ErrVerificationFailed):
		writeError(w, h.logger, http.StatusBadRequest, verificationMessage(err))
	default:
		// a 5xx makes the provider redeliver
		h.logger.Error("webhook processing failed", "layer", "handler", "component", "webhook", "method", "Handle", "reference", ref, "error", err.Error())
		writeError(w, h.logger, http.StatusInternalServerError, "Webhook processing failed")
	}
}
