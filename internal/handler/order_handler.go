package handler

import (
	"net/http"
	"strings"

	"gold-kart/internal/middleware"
	"gold-kart/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// parseOrderID extracts the order UUID from /api/orders/{id}[...].
func parseOrderID(path string) (uuid.UUID, bool) {
	rest := strings.TrimPrefix(path, "/api/orders/")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// GetByID handles GET /api/orders/{id} requests. Customers only see
// their own orders; admins see any.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	orderID, ok := parseOrderID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID format", h.logger)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required", h.logger)
		return
	}
	if middleware.IsAdmin(r.Context()) {
		// Empty user skips the ownership filter.
		userID = ""
	}

	order, err := h.service.GetByID(r.Context(), orderID, userID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// MarkSent handles POST /api/orders/{id}/sent requests.
func (h *OrderHandler) MarkSent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	if !middleware.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "admin role required", h.logger)
		return
	}

	orderID, ok := parseOrderID(r.URL.Path)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order ID format", h.logger)
		return
	}

	if err := h.service.MarkSent(r.Context(), orderID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}
