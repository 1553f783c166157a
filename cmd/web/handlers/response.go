package handlers

import (
	"encoding/json"
	"net/http"

	"novac/kit/observability"
)

type envelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, logger *observability.Logger, code int, success bool, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(envelope{Success: success, Data: data}); err != nil {
		logger.Error("encode response failed", "layer", "handler", "error", err.Error())
	}
}

func writeError(w http.ResponseWriter, logger *observability.Logger, code int, msg string) {
	writeJSON(w, logger, code, false, message{Message: msg})
}
