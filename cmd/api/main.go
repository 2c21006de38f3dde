package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"currency-ledger/config"
	httpHandler "currency-ledger/internal/adapter/http/handler"
	pgStorage "currency-ledger/internal/adapter/storage/postgres"
	redisStorage "currency-ledger/internal/adapter/storage/redis"
	"currency-ledger/internal/core/ports"
	"currency-ledger/internal/service"
	"currency-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Currency Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool and schema
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	if err := pgStorage.InitSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database schema")
	}

	// Initialize repositories
	currencyRepo := pgStorage.NewCurrencyRepo(pool)
	balanceRepo := pgStorage.NewBalanceRepo(pool)
	txRepo := pgStorage.NewTransactionRepo(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Seed currencies and opening balances (idempotent)
	seeder := service.NewSeeder(currencyRepo, balanceRepo, log)
	if err := seeder.Seed(ctx, cfg.Ledger.Seed); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed ledger")
	}

	// Initialize business services
	engine := service.NewEngine(balanceRepo, cfg.Ledger.AllowedCurrencies, cfg.Ledger.BaseCurrency)
	txSvc := service.NewTransactionService(engine, txRepo, transactor, log)
	balanceSvc := service.NewBalanceService(balanceRepo)

	// Health checkers
	healthCheckers := []ports.HealthChecker{pgStorage.NewHealthCheck(pool)}

	// Optional Redis (rate limiting + health)
	var rateLimitStore *redisStorage.RateLimitStore
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		log.Info().Msg("Redis connected")

		rateLimitStore = redisStorage.NewRateLimitStore(rdb)
		healthCheckers = append(healthCheckers, redisStorage.NewHealthCheck(rdb))
	} else {
		log.Warn().Msg("Redis disabled, rate limiting is off")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		TransactionSvc: txSvc,
		BalanceSvc:     balanceSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: healthCheckers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
