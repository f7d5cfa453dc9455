package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/lexhq/trustledger/internal/adapter/http"
	"github.com/lexhq/trustledger/internal/adapter/http/handler"
	"github.com/lexhq/trustledger/internal/adapter/http/middleware"
	postgresRepo "github.com/lexhq/trustledger/internal/adapter/repository/postgres"
	redisRepo "github.com/lexhq/trustledger/internal/adapter/repository/redis"
	"github.com/lexhq/trustledger/internal/infrastructure/config"
	"github.com/lexhq/trustledger/internal/infrastructure/eventpublisher"
	"github.com/lexhq/trustledger/internal/infrastructure/logging"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
	"github.com/lexhq/trustledger/internal/infrastructure/postgres"
	"github.com/lexhq/trustledger/internal/infrastructure/redis"
	"github.com/lexhq/trustledger/internal/usecase"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	appLogger := logging.New(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	ctx := context.Background()

	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		URL:         cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		MinConns:    cfg.DatabaseMinConns,
		PingTimeout: cfg.DatabaseTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()
	log.Info().Msg("connected to postgres")

	if err := postgres.Migrate(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("migrations applied")

	redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to redis")

	m := metrics.New()

	// Repositories
	txManager := postgresRepo.NewTxManager(pool)
	accountRepo := postgresRepo.NewAccountRepository(pool)
	ledgerRepo := postgresRepo.NewLedgerRepository(pool)
	txRepo := postgresRepo.NewTransactionRepository(pool)
	earnedFeeRepo := postgresRepo.NewEarnedFeeRepository(pool)
	reconRepo := postgresRepo.NewReconciliationRepository(pool)
	auditRepo := postgresRepo.NewAuditRepository(pool)
	outboxRepo := postgresRepo.NewOutboxRepository(pool)
	idempotencyStore := redisRepo.NewIdempotencyStore(redisClient)
	readCache := redisRepo.NewCache(redisClient)
	idGen := postgresRepo.NewULIDGenerator()
	retrier := postgresRepo.NewRetrier(appLogger.Logger)

	// Use cases
	accountUC := usecase.NewAccountUseCase(txManager, accountRepo, ledgerRepo, auditRepo, idGen, readCache)
	postingUC := usecase.NewPostingUseCase(txManager, accountRepo, ledgerRepo, txRepo, outboxRepo, auditRepo, idGen, retrier, m)
	approvalUC := usecase.NewApprovalUseCase(txManager, accountRepo, ledgerRepo, txRepo, earnedFeeRepo, outboxRepo, auditRepo, idGen, retrier, m, cfg.DualControlEnabled)
	voidUC := usecase.NewVoidUseCase(txManager, accountRepo, ledgerRepo, txRepo, outboxRepo, auditRepo, idGen, retrier, m)
	earnedFeeUC := usecase.NewEarnedFeeUseCase(txManager, accountRepo, ledgerRepo, txRepo, earnedFeeRepo, outboxRepo, auditRepo, idGen, retrier, m, cfg.DualControlEnabled)
	reconciliationUC := usecase.NewReconciliationUseCase(accountRepo, ledgerRepo, txRepo, reconRepo, auditRepo, idGen, m, appLogger.WithContext(ctx), cfg.DualControlEnabled)
	auditUC := usecase.NewAuditUseCase(auditRepo)

	// Outbox publisher
	publisherCtx, stopPublisher := context.WithCancel(ctx)
	defer stopPublisher()
	publisher := eventpublisher.NewEventPublisher(eventpublisher.Config{
		OutboxRepo: outboxRepo,
		Publisher:  eventpublisher.NewLogPublisher(appLogger.Logger),
		Logger:     appLogger.Logger,
		BatchSize:  cfg.OutboxBatchSize,
		Interval:   cfg.OutboxInterval,
		Retention:  cfg.OutboxRetention,
	})
	go func() {
		if err := publisher.Start(publisherCtx); err != nil && err != context.Canceled {
			log.Error().Err(err).Msg("event publisher stopped")
		}
	}()

	// HTTP
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AccountHandler:        handler.NewAccountHandler(accountUC),
		LedgerHandler:         handler.NewLedgerHandler(accountUC),
		TransactionHandler:    handler.NewTransactionHandler(postingUC, approvalUC, voidUC),
		EarnedFeeHandler:      handler.NewEarnedFeeHandler(earnedFeeUC),
		ReconciliationHandler: handler.NewReconciliationHandler(reconciliationUC),
		AuditHandler:          handler.NewAuditHandler(auditUC),
		HealthHandler:         handler.NewHealthHandler(pool, redisClient),
		IdempotencyStore:      idempotencyStore,
		Metrics:               m,
		LoggingMiddleware:     middleware.NewLoggingMiddleware(log.Logger),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Bool("dual_control", cfg.DualControlEnabled).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	stopPublisher()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
