package main

import (
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"carrental-backend/internal/config"
	"carrental-backend/internal/gateway"
	"carrental-backend/internal/jobs"
	"carrental-backend/internal/logger"
	"carrental-backend/internal/repository/postgres"
	"carrental-backend/internal/scheduler"
	"carrental-backend/internal/service"
	"carrental-backend/internal/utils"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit ('"+jobs.JobExpirePayments+"' or '"+jobs.JobOverdueRentals+"')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Car Rental Cronjob Runner...", "log_level", cfg.Log.Level)

	// Initialize Database
	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
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

	inventoryService := service.NewInventoryService(store.Transactor, store.CarRepository)
	rentalService := service.NewRentalService(store.Transactor, store.RentalRepository, inventoryService, notifier)
	paymentService := service.NewPaymentService(
		store.Transactor,
		store.PaymentRepository,
		store.RentalRepository,
		store.CarRepository,
		service.NewPaymentValidator(store.PaymentRepository, store.RentalRepository, store.CarRepository, calculator),
		calculator,
		gateway.NewStripeGateway(cfg),
		notifier,
		cfg.Stripe.SuccessURL,
		cfg.Stripe.CancelURL,
	)

	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Payment:  paymentService,
		Rental:   rentalService,
		Notifier: notifier,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if err := jobRunner.RunJob(*runOnce); err != nil {
			logger.Error("Unknown job name", "job", *runOnce, "error", err)
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		logger.Error("Failed to register jobs", "error", err)
		log.Fatalf("Failed to register jobs: %v", err)
	}

	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}
