// Package http exposes the recurring scheduling engine over a JSON API.
//
// The surface is deliberately small: CRUD on recurring templates, explicit
// schedule transitions (pay, skip, receive, pause, resume), goal allocation
// editing, and the merged read views. All mutating routes invalidate the
// cached view snapshots.
package http

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"cadence/internal/cache"
	applog "cadence/internal/log"
	"cadence/internal/services"
	"cadence/internal/view"
)

const (
	rateLimitPerMinute = 60
	readHeaderTimeout  = 10 * time.Second
	shutdownGrace      = 10 * time.Second
)

type Server struct {
	httpServer *http.Server
	service    *services.RecurringService
	logger     *applog.Logger

	viewCache    *cache.LRUCache[[]view.UnifiedItem]
	cacheManager *cache.Manager
	upcomingDays int

	limiter      *rateLimiter
	shutdownOnce sync.Once
}

type Options struct {
	Addr               string
	UpcomingWindowDays int
	ViewCacheTTL       time.Duration
	Logger             *slog.Logger
}

func NewServer(service *services.RecurringService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UpcomingWindowDays <= 0 {
		opts.UpcomingWindowDays = view.DefaultUpcomingWindow
	}
	if opts.ViewCacheTTL <= 0 {
		opts.ViewCacheTTL = 30 * time.Second
	}

	logger := applog.New(applog.Config{
		Component: applog.ComponentHTTP,
		Handler:   opts.Logger.Handler(),
	})

	s := &Server{
		service:      service,
		logger:       logger,
		viewCache:    cache.NewLRUCache[[]view.UnifiedItem](64, opts.ViewCacheTTL),
		cacheManager: cache.NewManager(),
		upcomingDays: opts.UpcomingWindowDays,
		limiter:      newRateLimiter(rateLimitPerMinute, time.Minute),
	}
	s.cacheManager.Register(s.viewCache)
	s.cacheManager.StartCleanup(opts.ViewCacheTTL)

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	handler := applog.Middleware(logger)(s.withRequestContext(mux))
	s.httpServer = &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)

	mux.HandleFunc("GET /api/unified", s.handleUnified)
	mux.HandleFunc("GET /api/upcoming", s.handleUpcoming)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("PUT /api/expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /api/expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /api/expenses/{id}/pause", s.handlePauseExpense)
	mux.HandleFunc("POST /api/expenses/{id}/resume", s.handleResumeExpense)
	mux.HandleFunc("POST /api/expenses/{id}/pay", s.handlePayExpense)
	mux.HandleFunc("POST /api/expenses/{id}/skip", s.handleSkipExpense)

	mux.HandleFunc("GET /api/incomes", s.handleListIncomes)
	mux.HandleFunc("POST /api/incomes", s.handleCreateIncome)
	mux.HandleFunc("GET /api/incomes/{id}", s.handleGetIncome)
	mux.HandleFunc("PUT /api/incomes/{id}", s.handleUpdateIncome)
	mux.HandleFunc("DELETE /api/incomes/{id}", s.handleDeleteIncome)
	mux.HandleFunc("POST /api/incomes/{id}/pause", s.handlePauseIncome)
	mux.HandleFunc("POST /api/incomes/{id}/resume", s.handleResumeIncome)
	mux.HandleFunc("POST /api/incomes/{id}/receive", s.handleReceiveIncome)
	mux.HandleFunc("POST /api/incomes/{id}/skip", s.handleSkipIncome)
	mux.HandleFunc("PUT /api/incomes/{id}/allocations", s.handleSetAllocations)
	mux.HandleFunc("POST /api/incomes/{id}/allocations/preview", s.handlePreviewAllocations)

	mux.HandleFunc("GET /api/goals", s.handleListGoals)
	mux.HandleFunc("POST /api/goals", s.handleCreateGoal)
	mux.HandleFunc("POST /api/goals/{id}/activate", s.handleActivateGoal)
	mux.HandleFunc("POST /api/goals/{id}/deactivate", s.handleDeactivateGoal)
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// withRequestContext applies security headers, per-IP rate limiting on
// mutating methods, a request ID, and start/complete logging.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			if !s.limiter.allow(clientIP(r)) {
				w.Header().Set("Retry-After", "60")
				respondJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
				return
			}
		}

		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		reqLogger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		reqLogger.Info("Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})
}

func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.logger.Info("HTTP server shutting down")
		s.limiter.stop()
		s.cacheManager.Stop()
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
		defer cancel()
		err = s.httpServer.Shutdown(shutdownCtx)
	})
	return err
}

// invalidateViews drops every cached snapshot. Called after each successful
// mutation so reads never serve stale schedules.
func (s *Server) invalidateViews() {
	s.viewCache.Purge()
}
