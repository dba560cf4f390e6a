package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gold-kart/internal/config"
	"gold-kart/internal/database"
	"gold-kart/internal/gateway"
	"gold-kart/internal/handler"
	"gold-kart/internal/repository"
	"gold-kart/internal/router"
	"gold-kart/internal/service"
	"gold-kart/internal/shipping"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Best-effort .env load for local development
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting gold-kart API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	addressRepo := repository.NewAddressRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	inventoryRepo := repository.NewInventoryRepository(pool, logger)

	// Load shipping rates with S3 and local fallback
	fileLoader := shipping.NewFileLoader(logger)
	var ratesLoader shipping.Loader

	if cfg.Shipping.S3Enabled {
		s3Loader, err := shipping.NewS3Loader(ctx, cfg.Shipping.S3Bucket, cfg.Shipping.S3Region, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 loader, falling back to local file system only")
			ratesLoader = fileLoader
		} else {
			ratesLoader = shipping.NewFallbackLoader(s3Loader, fileLoader, cfg.Shipping.S3Prefix, true, logger)
		}
	} else {
		ratesLoader = fileLoader
		logger.Info().Msg("using local file system for shipping rates (S3 disabled)")
	}

	rates, err := ratesLoader.Load(ctx, cfg.Shipping.RatesFile)
	if err != nil {
		return fmt.Errorf("failed to load shipping rates: %w", err)
	}
	logger.Info().Int("method_count", rates.Size()).Msg("shipping rates loaded")

	// Initialize payment gateway client
	gw := gateway.NewHTTPGateway(gateway.Config{
		BaseURL:    cfg.Payment.GatewayURL,
		MerchantID: cfg.Payment.MerchantID,
		Timeout:    cfg.Payment.Timeout(),
	}, logger)

	// Initialize services
	cartService := service.NewCartService(cartRepo, productRepo, cfg.Cart.TTL(), logger)
	stockService := service.NewStockService(inventoryRepo, logger)
	orderService := service.NewOrderService(
		orderRepo, cartRepo, addressRepo, stockService, gw, rates, cfg.Payment, logger,
	)

	// Initialize HTTP handlers
	cartHandler := handler.NewCartHandler(cartService, logger)
	checkoutHandler := handler.NewCheckoutHandler(orderService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	stockHandler := handler.NewStockHandler(stockService, logger)

	// Initialize router
	mux := router.New(cartHandler, checkoutHandler, orderHandler, stockHandler, cfg.Auth.JWTSecret, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
