package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/fin-ledger/ledger-service/internal/config"
	"github.com/fin-ledger/ledger-service/internal/db"
	"github.com/fin-ledger/ledger-service/internal/domain"
	"github.com/fin-ledger/ledger-service/internal/events"
	"github.com/fin-ledger/ledger-service/internal/handlers"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Balances and amounts are JSON numbers on the wire.
	decimal.MarshalJSONWithoutQuotes = true

	cfg := config.Load()
	ctx := context.Background()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}
	logger.Info().Msg("database migrations applied")

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create database pool")
	}
	defer pool.Close()
	logger.Info().Msg("database connection pool initialized")

	accountRepo := db.NewAccountRepository(pool.Pool)
	supportRepo := db.NewSupportMessageRepository(pool.Pool)
	txManager := db.NewTransactionManager(pool.Pool, logger)

	// Event publishing is optional: without a broker URL the ledger runs
	// standalone.
	var publisher domain.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		p, err := events.NewPublisher(cfg.RabbitMQ, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create event publisher")
		}
		defer p.Close()
		publisher = p
	} else {
		logger.Warn().Msg("RABBITMQ_URL not set, event publishing disabled")
	}

	ledgerService := domain.NewLedgerService(accountRepo, txManager, publisher, logger)
	supportService := domain.NewSupportService(supportRepo)

	router := handlers.NewRouter(ledgerService, supportService, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("ledger service starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
}
