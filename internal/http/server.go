package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bilancio/internal/budget"
	"bilancio/internal/dashboard"
	applog "bilancio/internal/log"
	"bilancio/internal/middleware/ratelimit"
	"bilancio/internal/middleware/security"
	"bilancio/internal/services"
)

const (
	defaultRequestTimeout = 15 * time.Second
	defaultWritesPerMin   = 60
)

// Deps are the collaborators the API serves from.
type Deps struct {
	Dashboard *dashboard.Service
	Budgets   *budget.Service
	Ledger    *services.LedgerService

	// DefaultUserID is used when a request has no X-User-ID header.
	DefaultUserID string

	// Ready reports whether storage is reachable. Nil means always ready.
	Ready func(ctx context.Context) error

	// Defaults supplies Window, TopN and CutoffDay when a request omits them.
	Defaults dashboard.Options

	Logger *applog.Logger

	RequestTimeout time.Duration
	// WritesPerMinute limits mutating requests per client.
	WritesPerMinute int
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = defaultRequestTimeout
	}
	if deps.WritesPerMinute <= 0 {
		deps.WritesPerMinute = defaultWritesPerMin
	}
	if deps.Logger == nil {
		deps.Logger = applog.New(applog.DefaultConfig())
	}
	logger := deps.Logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.WritesPerMinute}),
		detector: security.NewDetector(),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *applog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(applog.Middleware(logger))
	r.Use(applog.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.observe)
	r.Use(middleware.Recoverer)
	r.Use(s.detector.Middleware(true))
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	r.Get("/health", handleHealth)
	r.Get("/ready", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(s.deps.RequestTimeout))
		r.Use(s.limiter.Middleware(s.detector.ClientIP, http.MethodPost, http.MethodPut, http.MethodDelete))
		r.Use(s.withUser)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/accounts/balances", s.handleBalances)

		r.Get("/budgets", s.handleBudgets)
		r.Put("/budgets/{budgetID}/overrides/{month}", s.handleSetOverride)
		r.Delete("/budgets/{budgetID}/overrides/{month}", s.handleClearOverride)

		r.Get("/trend", s.handleTrend)
		r.Get("/comparison", s.handleComparison)
		r.Get("/top-categories", s.handleTopCategories)

		r.Get("/recurring/{id}/upcoming", s.handleUpcoming)
		r.Post("/recurring/{id}/pause", s.handlePause(true))
		r.Post("/recurring/{id}/resume", s.handlePause(false))

		r.Post("/transactions", s.handleCreateTransaction)
		r.Post("/transfers", s.handleCreateTransfer)
	})

	return r
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
