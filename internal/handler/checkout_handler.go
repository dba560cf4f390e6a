package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"gold-kart/internal/middleware"
	"gold-kart/internal/model"
	"gold-kart/internal/service"

	"github.com/rs/zerolog"
)

// CheckoutHandler handles checkout and payment callback requests.
type CheckoutHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(service service.OrderService, logger zerolog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: service,
		logger:  logger.With().Str("handler", "checkout").Logger(),
	}
}

// Checkout handles POST /api/checkout requests.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required", h.logger)
		return
	}

	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	result, err := h.service.Checkout(r.Context(), userID, &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Callback handles GET /api/checkout/callback requests. The gateway
// redirects the customer's browser here, so the response is itself a
// redirect to the order page. A verification transport failure answers
// 502 and leaves the order unresolved for a later replay.
func (h *CheckoutHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	authority := r.URL.Query().Get("authority")
	if authority == "" {
		// Some gateways capitalise the parameter.
		authority = r.URL.Query().Get("Authority")
	}
	if authority == "" {
		writeError(w, http.StatusBadRequest, "authority is required", h.logger)
		return
	}

	result, err := h.service.HandleCallback(r.Context(), authority)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	target := fmt.Sprintf("/orders/%s?payment=%s", result.OrderID, result.Status)
	http.Redirect(w, r, target, http.StatusFound)
}
