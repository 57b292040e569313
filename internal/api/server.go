// Package api exposes the evaluation engine over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	handler "github.com/newthinker/theta/internal/api/handler/api"
	"github.com/newthinker/theta/internal/api/response"
	"github.com/newthinker/theta/internal/app"
	"github.com/newthinker/theta/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for the evaluation API
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	router     chi.Router
	deps       Dependencies
}

// Config holds server configuration
type Config struct {
	Host           string
	Port           int
	MetricsPath    string // empty disables /metrics
	Timeout        time.Duration
	AllowedOrigins []string // empty disables CORS
}

// Dependencies holds the services the handlers call.
type Dependencies struct {
	App     *app.App
	Metrics *metrics.Registry // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, fmt.Errorf("api server requires an app")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	router := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: cfg.Timeout + 5*time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		router: router,
		deps:   deps,
	}

	s.setupMiddleware(cfg)
	s.setupRoutes(cfg)

	return s, nil
}

func (s *Server) setupMiddleware(cfg Config) {
	s.router.Use(chimw.Recoverer)
	if s.deps.Metrics != nil {
		s.router.Use(metrics.HTTPMiddleware(s.deps.Metrics))
	}
	s.router.Use(metrics.LoggingMiddleware(s.logger))
	s.router.Use(chimw.Timeout(cfg.Timeout))

	if len(cfg.AllowedOrigins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", metrics.RequestIDHeader},
			ExposedHeaders: []string{metrics.RequestIDHeader},
			MaxAge:         300,
		}))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/api/health", s.handleHealth)

	if s.deps.Metrics != nil && cfg.MetricsPath != "" {
		s.router.Handle(cfg.MetricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}

	evaluations := handler.NewEvaluationHandler(s.deps.App)
	scores := handler.NewScoresHandler(s.deps.App)
	assets := handler.NewAssetsHandler(s.deps.App)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluate", evaluations.Create)
		r.Get("/evaluations", evaluations.List)
		r.Get("/evaluations/{id}", evaluations.Get)
		r.Post("/scores", scores.Compute)
		r.Get("/assets", assets.List)
		r.Get("/assets/{symbol}", assets.Get)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.deps.App.GetStats(),
	})
}
