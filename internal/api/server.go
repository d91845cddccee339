// Package api exposes ingestion, scoring and reporting over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/heron/internal/domain"
	"github.com/opensource-finance/heron/internal/ingest"
	"github.com/opensource-finance/heron/internal/scoring"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg *domain.Config, cache domain.Cache, bus domain.EventBus, pipeline *ingest.Pipeline, engine *scoring.Engine, version string) *Server {
	handler := NewHandler(cache, bus, pipeline, engine, version)
	handler.uploadTTL = cfg.Ingest.UploadTTL
	if cfg.Server.MaxUploadMB > 0 {
		handler.maxUploadBytes = int64(cfg.Server.MaxUploadMB) << 20
	}

	router := chi.NewRouter()

	router.Use(CORSMiddleware)
	router.Use(RecoverMiddleware)
	router.Use(TracingMiddleware)
	router.Use(LoggingMiddleware)
	router.Use(middleware.RealIP)
	router.Use(middleware.Compress(5))

	// Health endpoints (no tenant required)
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	router.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)

		// Stateless engine calls
		r.Post("/score", handler.Score)
		r.Post("/rollup", handler.Rollup)

		// Uploads and their reporting views
		r.Post("/uploads", handler.CreateUpload)
		r.Route("/uploads/{id}", func(r chi.Router) {
			r.Get("/", handler.GetUpload)
			r.Get("/dashboard", handler.GetDashboard)
			r.Get("/alerts", handler.ListAlerts)
			r.Get("/users/{userId}", handler.GetUser)
			r.Get("/users/{userId}/timeline", handler.GetUserTimeline)
		})
	})

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg.Server,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
