package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Raja2703/interview-system-backend/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to HTTP responses. Anything unrecognized is
// logged and reported as a 500 without leaking internals.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		valErr   *apperr.ValidationError
		permErr  *apperr.PermissionError
		stateErr *apperr.StateError
		credErr  *apperr.InsufficientCreditsError
		dupErr   *apperr.AlreadyProcessedError
	)
	switch {
	case errors.As(err, &valErr):
		status := http.StatusBadRequest
		body := map[string]any{"error": valErr.Msg}
		if len(valErr.Fields) > 0 {
			status = http.StatusUnprocessableEntity
			body["fields"] = valErr.Fields
		}
		writeJSON(w, status, body)
	case errors.As(err, &permErr):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": permErr.Msg})
	case errors.As(err, &stateErr):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  stateErr.Error(),
			"status": stateErr.Current,
		})
	case errors.As(err, &credErr):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":     "insufficient credits",
			"required":  credErr.Required,
			"available": credErr.Available,
		})
	case errors.As(err, &dupErr):
		writeJSON(w, http.StatusConflict, map[string]string{"error": dupErr.Msg})
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		logger.Error("request failed", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
	}
}
