package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hotel-ops-backend/config"
	"hotel-ops-backend/internal/alert"
	"hotel-ops-backend/internal/api"
	"hotel-ops-backend/internal/db"
	"hotel-ops-backend/internal/inventory"
	"hotel-ops-backend/internal/notification"
	"hotel-ops-backend/internal/store"
	"hotel-ops-backend/internal/visit"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "hotel-ops ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Check for VAPID keys
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Notification delivery: worker pool implementing the alert notifier.
	workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
	workerPool.Start(ctx)

	// In-process alert scheduler, primed from durable state.
	scheduler := alert.NewScheduler(appStore, workerPool,
		time.Duration(cfg.Scheduler.WarnLeadMinutes)*time.Minute)
	scheduler.Prime(ctx)
	defer scheduler.Stop()

	// Authoritative reconciliation sweep.
	sweep := alert.NewSweep(appStore, workerPool,
		cfg.Sweep.Interval,
		time.Duration(cfg.Sweep.CriticalThresholdMinutes)*time.Minute,
		time.Duration(cfg.Sweep.WarningThresholdMinutes)*time.Minute)
	go sweep.Run(ctx)

	// Time-accounting state machine.
	visits := visit.NewService(appStore, inventory.NewGormService(gormDB), scheduler)
	visits.EnforceRecalculationWindow = cfg.Sweep.EnforceRecalculationWindow

	// Initialize router
	router := api.NewRouter(appStore, visits, &webpushOptions, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
