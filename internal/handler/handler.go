package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"barsync/internal/middleware"
	"barsync/internal/model"

	"github.com/rs/zerolog"
)

// MessageResponse is the body of responses that carry no document.
type MessageResponse struct {
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code, error
// code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFromContext(r.Context())

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.
		Str("error_code", code).
		Str("error", message).
		Int("status", status).
		Str("correlation_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// writeDomainError maps err onto an HTTP status. Errors outside the domain
// set are reported as a generic internal error.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("unexpected error")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}

	status := http.StatusInternalServerError
	switch domainErr.Code {
	case model.ErrCodeValidation:
		status = http.StatusBadRequest
	case model.ErrCodeNotFound:
		status = http.StatusNotFound
	case model.ErrCodeConflict:
		status = http.StatusConflict
	case model.ErrCodeInvalidTransition:
		status = http.StatusUnprocessableEntity
	}

	writeError(w, r, status, domainErr.Code, err.Error(), logger)
}
