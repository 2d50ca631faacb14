package handler

import (
	"errors"
	"net/http"

	"github.com/dtroode/privenote-server/internal/logger"
	"github.com/dtroode/privenote-server/internal/model"
)

// handleError maps domain error kinds to HTTP responses. Internal error text
// is logged and never sent to the client.
func handleError(w http.ResponseWriter, err error, log *logger.Logger) {
	var verr *model.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, "Note not found")
	case errors.Is(err, model.ErrExpired):
		writeError(w, http.StatusGone, "Note has expired")
	case errors.Is(err, model.ErrAttemptsExhausted):
		writeError(w, http.StatusLocked, "Maximum access attempts exceeded")
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, "Forbidden")
	case errors.Is(err, model.ErrStorage):
		log.Error("Note store unavailable", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		log.Error("Unhandled error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
