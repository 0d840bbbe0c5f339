package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bank-ledger-core/internal/config"
	"github.com/bank-ledger-core/internal/data/mongo"
	"github.com/bank-ledger-core/internal/data/postgres"
	redisdata "github.com/bank-ledger-core/internal/data/redis"
	"github.com/bank-ledger-core/internal/domain/account"
	"github.com/bank-ledger-core/internal/domain/journal"
	"github.com/bank-ledger-core/internal/ledger_api"
	"github.com/bank-ledger-core/internal/ledger_api/service"
	"github.com/bank-ledger-core/internal/logger"
	"github.com/bank-ledger-core/internal/platform/persistence"
	"github.com/bank-ledger-core/internal/transaction_engine/components"
	engine "github.com/bank-ledger-core/internal/transaction_engine/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// The account cache is optional
	var accountCache account.Cache
	redisClient, err := persistence.NewRedisClient(appCtx, log, &cfg.Redis)
	switch {
	case errors.Is(err, persistence.ErrRedisDisabled):
		log.Info("Redis not configured, account cache disabled")
	case err != nil:
		log.Warn("Redis unavailable, account cache disabled", "error", err)
	default:
		accountCache = redisdata.NewAccountCache(log, redisClient, cfg.Redis.AccountTTL)
	}

	// The journal is optional for the API: rejections go unrecorded and lookups fail
	// with STORAGE_UNAVAILABLE while Mongo is down.
	var journalRepo journal.Repository
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Warn("MongoDB unavailable, transaction journal disabled", "error", err)
	} else {
		repo := mongo.NewJournalRepository(log, mongoDB.Database(), cfg.MongoDB.JournalCollection)
		if err := repo.EnsureIndexes(appCtx); err != nil {
			log.Warn("Failed to ensure journal indexes", "error", err)
		}
		journalRepo = repo
	}

	// Initialize repositories
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerStore := postgres.NewLedgerStore(log, postgresDB)

	txEngine := components.CreateEngine(components.Dependencies{
		Transactor:   postgresDB,
		Accounts:     accountRepo,
		Transactions: postgres.NewTransactionRepository(log, postgresDB),
		Ledger:       ledgerStore,
		Outbox:       postgres.NewOutboxRepository(log, postgresDB),
		Journal:      journalRepo,
	}, log.With("component", "transaction_engine"), cfg)

	// Initialize services
	registry := service.NewAccountRegistry(log, postgresDB, accountRepo, ledgerStore, accountCache)
	transactionService := service.NewTransactionService(log, registry, txEngine, journalRepo)

	// Initialize REST server
	server := ledger_api.NewServer(log, cfg, registry, transactionService, postgresDB)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests first; in-flight operations finish before Stop returns
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	if wpEngine, ok := txEngine.(*engine.WorkerPoolEngine); ok {
		log.Info("Shutting down worker pool", "running_workers", wpEngine.Running())
		wpEngine.Shutdown(cfg.Server.ShutdownTimeout)
	}

	cancelAppCtx()

	postgresDB.Close()

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
		}
	}

	if mongoDB != nil {
		if err := mongoDB.Close(shutdownCtx); err != nil {
			log.Error("Error closing MongoDB connection", "error", err)
			shutdownErr = err
		}
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Ledger API shutdown completed with errors")
		os.Exit(1)
	}
	log.Info("Ledger API shutdown completed successfully")
}
