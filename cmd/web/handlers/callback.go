package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"novac/internal/reconcile"
	"novac/kit/observability"
)

type CallbackServiceContract interface {
	HandleCallback(ctx context.Context, reference string) (*reconcile.CallbackResult, error)
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
{{if .Reference}}<p>Reference: <code>{{.Reference}}</code></p>{{end}}
</body>
</html>
`))

type errorView struct {
	Title     string
	Message   string
	Reference string
}

type Callback struct {
	reconcile CallbackServiceContract
	logger    *observability.Logger
}

func NewCallback(svc CallbackServiceContract, logger *observability.Logger) *Callback {
	return &Callback{reconcile: svc, logger: logger}
}

func (h *Callback) Handle(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := q.Get("reference")
	if ref == "" {
		ref = q.Get("transactionRef")
	}

	res, err := h.reconcile.HandleCallback(r.Context(), ref)
	switch {
	case err == nil:
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
	case errors.Is(err, reconcile.ErrInvalidReference):
		h.renderError(w, http.StatusBadRequest, errorView{Title: "Payment error", Message: "Invalid payment reference"})
	case errors.Is(err, reconcile.ErrVerificationFailed):
		h.logger.Warn("callback verification failed", "layer", "handler", "component", "callback", "method", "Handle", "reference", ref, "error", err.Error())
		h.renderError(w, http.StatusBadGateway, errorView{Title: "Payment error", Message: verificationMessage(err), Reference: ref})
	default:
		h.logger.Error("callback processing failed", "layer", "handler", "component", "callback", "method", "Handle", "reference", ref, "error", err.Error())
		h.renderError(w, http.StatusInternalServerError, errorView{Title: "Payment error", Message: "We could not record your payment yet. It will be updated shortly.", Reference: ref})
	}
}

func (h *Callback) renderError(w http.ResponseWriter, code int, v errorView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := errorPage.Execute(w, v); err != nil {
		h.logger.Error("render error page failed", "layer", "handler", "component", "callback", "error", err.Error())
	}
}
