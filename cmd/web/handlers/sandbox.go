package handlers

import (
	"net/http"
	"net/url"

	"novac/internal/transaction"
	"novac/kit/observability"
)

type SandboxSettlerContract interface {
	SetStatus(reference, status, paymentMethod string) bool
}

// Sandbox stands in for the provider's hosted checkout page when the
// gateway runs in sandbox mode.
type Sandbox struct {
	settler      SandboxSettlerContract
	callbackPath string
	logger       *observability.Logger
}

func NewSandbox(settler SandboxSettlerContract, callbackPath string, logger *observability.Logger) *Sandbox {
	return &Sandbox{settler: settler, callbackPath: callbackPath, logger: logger}
}

// Checkout settles the session (status query param, default successful) and
// sends the payer to the callback like the real provider does.
func (h *Sandbox) Checkout(w http.ResponseWriter, r *http.Request) {
	ref := r.PathValue("reference")
	status := r.URL.Query().Get("status")
	if status == "" {
		status = string(transaction.StatusSuccessful)
	}
	if !h.settler.SetStatus(ref, status, "sandbox") {
		writeError(w, h.logger, http.StatusNotFound, "Unknown sandbox session")
		return
	}
	h.logger.Info("sandbox settled", "layer", "handler", "component", "sandbox", "reference", ref, "status", status)
	http.Redirect(w, r, h.callbackPath+"?reference="+url.QueryEscape(ref), http.StatusFound)
}
