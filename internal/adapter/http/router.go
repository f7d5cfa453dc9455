package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lexhq/trustledger/internal/adapter/http/handler"
	"github.com/lexhq/trustledger/internal/adapter/http/middleware"
	"github.com/lexhq/trustledger/internal/infrastructure/metrics"
	"github.com/lexhq/trustledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler        *handler.AccountHandler
	LedgerHandler         *handler.LedgerHandler
	TransactionHandler    *handler.TransactionHandler
	EarnedFeeHandler      *handler.EarnedFeeHandler
	ReconciliationHandler *handler.ReconciliationHandler
	AuditHandler          *handler.AuditHandler
	HealthHandler         *handler.HealthHandler
	IdempotencyStore      usecase.IdempotencyStore
	Metrics               *metrics.Metrics
	LoggingMiddleware     *middleware.LoggingMiddleware
}

// NewRouter creates the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	if cfg.LoggingMiddleware != nil {
		r.Use(cfg.LoggingMiddleware.Wrap)
	}
	r.Use(middleware.Recovery)
	if cfg.Metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	}

	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor)

		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore).Wrap)
		}

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", cfg.AccountHandler.Create)
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{id}", cfg.AccountHandler.Get)
			r.Post("/{id}/close", cfg.AccountHandler.Close)

			r.Post("/{id}/ledgers", cfg.LedgerHandler.Create)
			r.Get("/{id}/ledgers", cfg.LedgerHandler.ListByAccount)

			r.Post("/{id}/deposits", cfg.TransactionHandler.PostDeposit)
			r.Post("/{id}/withdrawals", cfg.TransactionHandler.PostWithdrawal)
			r.Post("/{id}/transfers", cfg.TransactionHandler.PostTransfer)
			r.Get("/{id}/transactions", cfg.TransactionHandler.ListByAccount)

			r.Post("/{id}/reconciliations", cfg.ReconciliationHandler.Create)
			r.Get("/{id}/reconciliations", cfg.ReconciliationHandler.ListByAccount)
			r.Get("/{id}/consistency", cfg.ReconciliationHandler.CheckConsistency)
		})

		r.Route("/ledgers", func(r chi.Router) {
			r.Get("/{id}", cfg.LedgerHandler.Get)
			r.Post("/{id}/freeze", cfg.LedgerHandler.Freeze)
			r.Post("/{id}/unfreeze", cfg.LedgerHandler.Unfreeze)
			r.Post("/{id}/close", cfg.LedgerHandler.Close)
			r.Get("/{id}/transactions", cfg.TransactionHandler.ListByLedger)
			r.Post("/{id}/earned-fees", cfg.EarnedFeeHandler.Recognize)
			r.Get("/{id}/earned-fees", cfg.EarnedFeeHandler.ListByLedger)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Get("/{id}", cfg.TransactionHandler.Get)
			r.Post("/{id}/approve", cfg.TransactionHandler.Approve)
			r.Post("/{id}/reject", cfg.TransactionHandler.Reject)
			r.Post("/{id}/void", cfg.TransactionHandler.Void)
		})

		r.Post("/reconciliations/{id}/approve", cfg.ReconciliationHandler.Approve)

		r.Get("/audit-logs", cfg.AuditHandler.List)
	})

	return r
}
