package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/iho/beanledger/internal/adapter/http/handler"
	"github.com/iho/beanledger/internal/adapter/http/middleware"
	"github.com/iho/beanledger/internal/infrastructure/auth"
	"github.com/iho/beanledger/internal/infrastructure/metrics"
	"github.com/iho/beanledger/internal/usecase"
)

// RouterConfig holds dependencies for the router. Optional fields left nil
// disable the corresponding feature.
type RouterConfig struct {
	AccountHandler     *handler.AccountHandler
	TransactionHandler *handler.TransactionHandler
	SearchHandler      *handler.SearchHandler
	ReportHandler      *handler.ReportHandler
	AssertionHandler   *handler.AssertionHandler
	HealthHandler      *handler.HealthHandler

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	Authenticator    middleware.Verifier
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	MetricsHandler   http.Handler
	Logger           zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Recovery(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	if cfg.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", cfg.MetricsHandler)
	}

	allow := func(p auth.Permission) func(http.Handler) http.Handler {
		if cfg.Authenticator == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RequirePermission(p)
	}

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Authenticator != nil {
			r.Use(middleware.Authenticate(cfg.Authenticator))
		}
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Limit)
		}
		if cfg.IdempotencyStore != nil {
			r.Use(middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL).Wrap)
		}

		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.With(allow(auth.PermManageAccount)).Post("/", cfg.AccountHandler.Create)
			r.With(allow(auth.PermRead)).Get("/", cfg.AccountHandler.List)
			r.With(allow(auth.PermRead)).Get("/lookup", cfg.AccountHandler.Lookup)
			r.With(allow(auth.PermRead)).Get("/balances", cfg.AccountHandler.Balances)
			r.With(allow(auth.PermRead)).Get("/{id}", cfg.AccountHandler.Get)
			r.With(allow(auth.PermManageAccount)).Post("/{id}/close", cfg.AccountHandler.Close)
			r.With(allow(auth.PermRead)).Get("/{id}/balance", cfg.AccountHandler.Balance)
			r.With(allow(auth.PermRead)).Get("/{id}/statement", cfg.AccountHandler.Statement)
			r.With(allow(auth.PermRead)).Get("/{id}/assertions", cfg.AssertionHandler.ListByAccount)
		})

		// Transactions
		r.Route("/transactions", func(r chi.Router) {
			r.With(allow(auth.PermPost)).Post("/", cfg.TransactionHandler.Create)
			r.With(allow(auth.PermRead)).Get("/{id}", cfg.TransactionHandler.Get)
			r.With(allow(auth.PermRecategorize)).Patch("/{id}/postings/{postingID}", cfg.TransactionHandler.Recategorize)
		})
		r.With(allow(auth.PermRead)).Get("/links/{link}/transactions", cfg.TransactionHandler.ByLink)

		r.With(allow(auth.PermRead)).Get("/search", cfg.SearchHandler.Search)

		// Assertions
		r.Route("/assertions", func(r chi.Router) {
			r.With(allow(auth.PermAssert)).Post("/", cfg.AssertionHandler.Record)
			r.With(allow(auth.PermRead)).Get("/verify", cfg.AssertionHandler.VerifyAll)
			r.With(allow(auth.PermRead)).Get("/{id}/verify", cfg.AssertionHandler.Verify)
		})

		// Reports
		r.With(allow(auth.PermRead)).Get("/reports/net-worth", cfg.ReportHandler.NetWorth)
		r.With(allow(auth.PermRead)).Get("/ledger/consistency", cfg.ReportHandler.Consistency)
	})

	return r
}
