package handlers

import (
	"net/http"

	"novac/kit/observability"
)

type SnapshotContract interface {
	Snapshot() map[string]int64
}

type Metrics struct {
	svc    SnapshotContract
	logger *observability.Logger
}

func NewMetrics(svc SnapshotContract, logger *observability.Logger) *Metrics {
	return &Metrics{svc: svc, logger: logger}
}

func (h *Metrics) Handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, true, h.svc.Snapshot())
}
