package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	httpapi "carrental-backend/internal/api/http"
	"carrental-backend/internal/config"
	"carrental-backend/internal/gateway"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository/postgres"
	"carrental-backend/internal/security"
	"carrental-backend/internal/service"
	"carrental-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Car Rental Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User, "lock_timeout", cfg.Database.LockTimeout)
	logger.Info("Payment configuration", "currency", cfg.Stripe.Currency, "session_expiry", cfg.SessionExpiry(), "fine_multiplier", cfg.Rental.FineMultiplier)

	// Initialize Database
	logger.Debug("Connecting to database...", "connection_string", fmt.Sprintf("%s@%s:%d/%s", cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database))
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db, cfg.Database.LockTimeout)

	// Initialize Services
	calculator := utils.NewCalculator(cfg.FineMultiplier())
	notifier := service.NewMailNotifier(cfg.SMTP)
	stripeGateway := gateway.NewStripeGateway(cfg)

	inventoryService := service.NewInventoryService(store.Transactor, store.CarRepository)
	rentalService := service.NewRentalService(store.Transactor, store.RentalRepository, inventoryService, notifier)
	validator := service.NewPaymentValidator(store.PaymentRepository, store.RentalRepository, store.CarRepository, calculator)
	paymentService := service.NewPaymentService(
		store.Transactor,
		store.PaymentRepository,
		store.RentalRepository,
		store.CarRepository,
		validator,
		calculator,
		stripeGateway,
		notifier,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
	)

	// Initialize HTTP API
	tokenManager := security.NewTokenManager(cfg.JWT.Secret)
	router := httpapi.NewRouter(&httpapi.Handlers{
		Payment:   httpapi.NewPaymentHandler(paymentService),
		Rental:    httpapi.NewRentalHandler(rentalService),
		Inventory: httpapi.NewInventoryHandler(inventoryService),
		Ping:      store.DB().PingContext,
	}, tokenManager)

	server := &http.Server{
		Addr:    cfg.GetServerAddress(),
		Handler: router,
	}

	go func() {
		logger.Info("HTTP server listening", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...", "timeout", cfg.Server.ShutdownTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
