package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"gold-kart/internal/model"

	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
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

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps a service error to an HTTP response. Unknown
// errors become an opaque 500.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status := http.StatusInternalServerError
	message := "internal server error"

	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		message = domainErr.Message
		switch {
		case errors.Is(err, model.ErrInvalidQuantity):
			status = http.StatusBadRequest
		case errors.Is(err, model.ErrProductNotFound),
			errors.Is(err, model.ErrCartNotFound),
			errors.Is(err, model.ErrOrderNotFound),
			errors.Is(err, model.ErrAddressNotFound),
			errors.Is(err, model.ErrShippingNotFound):
			status = http.StatusNotFound
		case errors.Is(err, model.ErrCartExpired):
			status = http.StatusGone
		case errors.Is(err, model.ErrCartEmpty),
			errors.Is(err, model.ErrInvalidTransition):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, model.ErrInsufficientStock):
			status = http.StatusConflict
		case errors.Is(err, model.ErrOwnership):
			status = http.StatusForbidden
		case errors.Is(err, model.ErrTooManyAttempts):
			status = http.StatusTooManyRequests
		case errors.Is(err, model.ErrPaymentGateway):
			status = http.StatusBadGateway
		}
	}

	writeError(w, status, message, logger)
}
