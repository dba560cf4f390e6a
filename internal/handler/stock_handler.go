package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"gold-kart/internal/model"
	"gold-kart/internal/service"

	"github.com/rs/zerolog"
)

// StockHandler handles admin stock-ledger HTTP requests. Routes are
// mounted behind the admin middleware.
type StockHandler struct {
	service service.StockService
	logger  zerolog.Logger
}

// NewStockHandler creates a new stock handler.
func NewStockHandler(service service.StockService, logger zerolog.Logger) *StockHandler {
	return &StockHandler{
		service: service,
		logger:  logger.With().Str("handler", "stock").Logger(),
	}
}

// Adjust handles POST /api/admin/stock requests.
func (h *StockHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	var req model.StockAdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, "product ID is required", h.logger)
		return
	}

	var err error
	switch req.Action {
	case model.InventoryActionAdd:
		err = h.service.AddStock(r.Context(), req.ProductID, req.Quantity, model.InventoryActorAdmin, nil)
	case model.InventoryActionRemove:
		err = h.service.RemoveStock(r.Context(), req.ProductID, req.Quantity, model.InventoryActorAdmin, nil)
	default:
		writeError(w, http.StatusBadRequest, "action must be add or remove", h.logger)
		return
	}

	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// History handles GET /api/admin/stock/{productId} requests.
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", h.logger)
		return
	}

	productID := strings.TrimPrefix(r.URL.Path, "/api/admin/stock/")
	if productID == "" || strings.Contains(productID, "/") {
		writeError(w, http.StatusBadRequest, "product ID is required", h.logger)
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	records, err := h.service.History(r.Context(), productID, limit, offset)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	if records == nil {
		records = []model.InventoryRecord{}
	}

	writeJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
