package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"gold-kart/internal/middleware"
	"gold-kart/internal/model"
	"gold-kart/internal/service"

	"github.com/rs/zerolog"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// ownerFromRequest resolves the cart owner from the request identity.
func ownerFromRequest(r *http.Request) (model.Owner, bool) {
	if userID := middleware.UserID(r.Context()); userID != "" {
		return model.UserOwner(userID), true
	}
	if sessionID := middleware.SessionID(r.Context()); sessionID != "" {
		return model.GuestOwner(sessionID), true
	}
	return model.Owner{}, false
}

// Get handles GET /api/cart requests.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	owner, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity required", h.logger)
		return
	}

	details, err := h.service.GetCart(r.Context(), owner)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// Items handles POST and PUT /api/cart/items requests.
func (h *CartHandler) Items(w http.ResponseWriter, r *http.Request) {
	owner, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity required", h.logger)
		return
	}

	var req model.CartItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}

	var (
		details *model.CartDetails
		err     error
	)
	switch r.Method {
	case http.MethodPost:
		details, err = h.service.AddItem(r.Context(), owner, &req)
	case http.MethodPut:
		details, err = h.service.UpdateItem(r.Context(), owner, &req)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// RemoveItem handles DELETE /api/cart/items/{productId} requests.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	owner, ok := ownerFromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "identity required", h.logger)
		return
	}

	productID := strings.TrimPrefix(r.URL.Path, "/api/cart/items/")
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusBadRequest, "product ID is required", h.logger)
		return
	}

	details, err := h.service.RemoveItem(r.Context(), owner, productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, details)
}

// Merge handles POST /api/cart/merge requests. The caller must be
// authenticated; the guest session being folded in comes from the
// X-Session-ID header.
func (h *CartHandler) Merge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	userID := middleware.UserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "authentication required", h.logger)
		return
	}

	sessionID := r.Header.Get("X-Session-ID")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "X-Session-ID header is required", h.logger)
		return
	}

	details, err := h.service.MergeCarts(r.Context(), userID, sessionID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, details)
}
