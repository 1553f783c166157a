package handlers

import (
	"context"
	"net/http"

	"novac/internal/health"
	"novac/kit/observability"
)

type HealthCheckerContract interface {
	Check(ctx context.Context) health.Result
}

type Health struct {
	svc    HealthCheckerContract
	logger *observability.Logger
}

func NewHealth(svc HealthCheckerContract, logger *observability.Logger) *Health {
	return &Health{svc: svc, logger: logger}
}

func (h *Health) Handler(w http.ResponseWriter, r *http.Request) {
	res := h.svc.Check(r.Context())
	code := http.StatusOK
	if !res.OK {
		h.logger.Warn("health degraded", "layer", "handler", "component", "health", "checks", res.Checks)
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, h.logger, code, res.OK, res)
}
