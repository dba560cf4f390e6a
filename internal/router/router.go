package router

import (
	"net/http"
	"strings"

	"gold-kart/internal/handler"
	"gold-kart/internal/middleware"

	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	cartHandler *handler.CartHandler,
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
	stockHandler *handler.StockHandler,
	jwtSecret string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint (no authentication required)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	// Cart routes
	mux.HandleFunc("/api/cart", cartHandler.Get)
	mux.HandleFunc("/api/cart/merge", cartHandler.Merge)
	mux.HandleFunc("/api/cart/items", cartHandler.Items)
	mux.HandleFunc("/api/cart/items/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/cart/items/" {
			cartHandler.Items(w, r)
			return
		}
		cartHandler.RemoveItem(w, r)
	})

	// Checkout routes; the callback is hit by the gateway's browser
	// redirect, not by an authenticated client.
	mux.HandleFunc("/api/checkout", checkoutHandler.Checkout)
	mux.HandleFunc("/api/checkout/callback", checkoutHandler.Callback)

	// Order routes
	orderRouteHandler := func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/sent") {
			orderHandler.MarkSent(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/orders/") && r.URL.Path != "/api/orders/" {
			orderHandler.GetByID(w, r)
			return
		}
		http.Error(w, "not found", http.StatusNotFound)
	}
	mux.HandleFunc("/api/orders/", orderRouteHandler)

	// Admin stock routes
	requireAdmin := middleware.RequireAdmin(logger)
	mux.Handle("/api/admin/stock", requireAdmin(http.HandlerFunc(stockHandler.Adjust)))
	mux.Handle("/api/admin/stock/", requireAdmin(http.HandlerFunc(stockHandler.History)))

	// Apply middleware in order: Recovery -> Logging -> CORS -> Identity
	var h http.Handler = mux
	h = middleware.Identity(jwtSecret, logger)(h)
	h = middleware.CORS(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)

	return h
}
