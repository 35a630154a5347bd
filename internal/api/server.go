// Package api exposes the refactor pipeline and the history views over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/xkilldash9x/synapse/api/schemas"
	"github.com/xkilldash9x/synapse/internal/auth"
	"github.com/xkilldash9x/synapse/internal/config"
	"github.com/xkilldash9x/synapse/internal/pipeline"
)

// Refactorer runs one refactor request to completion.
type Refactorer interface {
	Run(ctx context.Context, req pipeline.Request) *schemas.Result
}

// KeySetter replaces the model API key at runtime.
type KeySetter interface {
	SetKey(key string)
}

// Deps are the collaborators the HTTP layer calls into. History, Keys and
// Gatherer may be nil; the matching routes then degrade or are not mounted.
type Deps struct {
	Pipeline Refactorer
	History  schemas.HistoryReader
	Keys     KeySetter
	Issuer   *auth.Issuer
	Gatherer prometheus.Gatherer
}

// Server hosts the HTTP API.
type Server struct {
	cfg       config.ServerConfig
	rateLimit config.RateLimitConfig
	deps      Deps
	logger    *zap.Logger
	validate  *validator.Validate
	router    chi.Router
}

// NewServer builds the router and its middleware stack.
func NewServer(cfg config.ServerConfig, rateLimit config.RateLimitConfig, deps Deps, logger *zap.Logger) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("api server requires a pipeline")
	}
	if deps.Issuer == nil {
		deps.Issuer = auth.NewIssuer("", time.Hour)
	}

	s := &Server{
		cfg:       cfg,
		rateLimit: rateLimit,
		deps:      deps,
		logger:    logger.Named("api"),
		validate:  validator.New(validator.WithRequiredStructEnabled()),
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.cfg.RequestTimeout))
	}
	r.Use(securityHeaders)
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))

	// Operational endpoints stay outside the client rate limit.
	r.Get("/healthz", s.handleHealth)
	if s.deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		if s.rateLimit.Enabled {
			r.Use(newIPRateLimiter(s.rateLimit, s.logger).Middleware)
		}
		r.Use(maxBodyBytes(s.cfg.MaxBodyBytes))
		r.Use(auth.OptionalAuth(s.deps.Issuer, s.logger))

		r.Post("/analyze", s.handleAnalyze)
		r.Get("/history", s.handleHistory)
		r.Get("/dashboard/stats", s.handleStats)
		r.Post("/set-key", s.handleSetKey)
		r.Get("/adapters", s.handleAdapters)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondWithError(w, http.StatusNotFound, "Not found")
	})
	return r
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	if s.cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConnections)
	}

	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpServer.Serve(ln)
	}()
	s.logger.Info("HTTP server listening", zap.String("address", ln.Addr().String()))

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server gracefully...")
	grace := s.cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server stopped: %w", err)
	}
	s.logger.Info("HTTP server stopped.")
	return nil
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}
