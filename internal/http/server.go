// Package http exposes the ledger over a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"finboard/internal/core"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/state"
	"finboard/internal/storage"
)

// Ledger is the service surface the handlers use. *services.LedgerService
// implements it.
type Ledger interface {
	Snapshot(ctx context.Context, profile string) (core.Snapshot, error)
	Apply(ctx context.Context, profile string, actions ...state.Action) (core.Snapshot, error)
	Replace(ctx context.Context, profile string, snap core.Snapshot) (core.Snapshot, error)
	Summary(ctx context.Context, profile string, year, month int) (core.MonthOverview, error)
	Report(ctx context.Context, profile string, year int) (core.YearReport, error)
	Window(ctx context.Context, profile string, months int) ([]core.MonthTriple, error)
	NetWorth(ctx context.Context, profile string) (services.NetWorthView, error)
	RequestForecast(ctx context.Context, profile string) (*storage.ForecastRecord, error)
	Forecasts(ctx context.Context, profile string, limit int) ([]storage.ForecastRecord, error)
	Location() *time.Location
}

// Options tune the server. Zero values pick defaults.
type Options struct {
	// RateLimit is the number of POST/PUT requests per client per minute.
	RateLimit int
	Logger    *applog.Logger
	Now       func() time.Time
	// Ready reports whether dependencies are reachable. Nil means always ready.
	Ready     func(ctx context.Context) error
}

type Server struct {
	http.Server
	ledger      Ledger
	logger      *applog.Logger
	reqLogger   *applog.StructuredLogger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	now         func() time.Time
	ready       func(ctx context.Context) error

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.Discard()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(applog.ComponentHTTP)

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           applog.Middleware(logger)(mux),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		ledger:      ledger,
		logger:      logger,
		reqLogger:   applog.NewStructuredLogger(logger),
		rateLimiter: newRateLimiter(opts.RateLimit),
		metrics:     &securityMetrics{},
		now:         opts.Now,
		ready:       opts.Ready,
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/snapshot", s.withSecurityHeaders(s.handleGetSnapshot))
	mux.HandleFunc("PUT /api/snapshot", s.withSecurityHeaders(s.handleReplaceSnapshot))
	mux.HandleFunc("GET /api/actions", s.withSecurityHeaders(s.handleListActionKinds))
	mux.HandleFunc("POST /api/actions", s.withSecurityHeaders(s.handleApplyActions))
	mux.HandleFunc("GET /api/summary", s.withSecurityHeaders(s.handleSummary))
	mux.HandleFunc("GET /api/report", s.withSecurityHeaders(s.handleReport))
	mux.HandleFunc("GET /api/window", s.withSecurityHeaders(s.handleWindow))
	mux.HandleFunc("GET /api/networth", s.withSecurityHeaders(s.handleNetWorth))
	mux.HandleFunc("POST /api/forecast", s.withSecurityHeaders(s.handleRequestForecast))
	mux.HandleFunc("GET /api/forecasts", s.withSecurityHeaders(s.handleListForecasts))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// SecurityStats reports how many requests were rate limited, rejected by
// screening or flagged as automated scans.
func (s *Server) SecurityStats() SecurityStats {
	return s.metrics.stats()
}

// withSecurityHeaders tags the request with an ID and a logger, screens it,
// applies the rate limit to writes and sets the response security headers.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := requestIDFrom(r)

		reqLogger := s.logger.With(applog.NewFields().WithRequestID(requestID).WithClientIP(clientIP).ToSlice()...)
		ctx := context.WithValue(r.Context(), applog.LoggerContextKey, reqLogger)
		r = r.WithContext(ctx)

		w.Header().Set(requestIDHeader, requestID)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")

		if agent := flagAgent(r); agent != "" {
			s.metrics.flagged.Add(1)
			reqLogger.WarnContext(ctx, "Request from automated scanner",
				"agent", agent,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		switch rej := screenRequest(r); {
		case rej != nil:
			s.metrics.rejected.Add(1)
			reqLogger.WarnContext(ctx, "Request rejected",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				"reason", rej.reason)
			writeJSON(rw, rej.status, errorResponse{Error: rej.reason, Code: rej.code})
		case (r.Method == http.MethodPost || r.Method == http.MethodPut) && !s.rateLimiter.allow(clientIP, s.metrics):
			rw.Header().Set("Retry-After", "60")
			writeJSON(rw, http.StatusTooManyRequests, errorResponse{
				Error: "rate limit exceeded, please try again later",
				Code:  codeRateLimited,
			})
		default:
			next(rw, r)
		}

		s.reqLogger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
