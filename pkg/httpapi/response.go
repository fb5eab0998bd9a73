package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sendlater/sendlater/pkg/scheduler"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.deps.Logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps scheduler errors onto HTTP status codes. Anything
// unrecognized is a 500 with a generic message; the detail goes to the log.
func (h *handlers) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, scheduler.ErrEmailNotFound),
		errors.Is(err, scheduler.ErrSenderNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrInvalidRecipient),
		errors.Is(err, scheduler.ErrNoRecipients),
		errors.Is(err, scheduler.ErrSenderInactive):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, scheduler.ErrEmailProcessing):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.deps.Logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
