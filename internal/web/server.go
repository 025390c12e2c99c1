// Package web exposes the pipeline over HTTP.
//
// Routes:
//
//	POST /api/csv               parse | unparse | validate | transform
//	POST /api/inspect           multipart upload, parsed and validated
//	POST /api/inspect/transform rule run over JSON rows, re-validated
//	POST /api/inspect/export    JSON rows as a csv, xlsx or json download
//	GET  /healthz               liveness
//	GET  /metrics               when a metrics handler is configured
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"csvpipe/internal/config"
	"csvpipe/internal/pipeline"
)

// Config controls server startup.
type Config struct {
	Addr string
	// Parser seeds parse options a request leaves out.
	Parser config.ParserDefaults
	// Metrics, when set, is mounted at /metrics.
	Metrics http.Handler
}

// Server is the HTTP front end of a Pipeline.
type Server struct {
	cfg    Config
	pipe   *pipeline.Pipeline
	router *chi.Mux
	server *http.Server
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cfg Config, pipe *pipeline.Pipeline) *Server {
	if pipe == nil {
		pipe = &pipeline.Pipeline{}
	}
	s := &Server{
		cfg:    cfg,
		pipe:   pipe,
		router: chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)
	if s.cfg.Metrics != nil {
		s.router.Handle("/metrics", s.cfg.Metrics)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/csv", s.handleCSV)
		r.Post("/inspect", s.handleInspect)
		r.Post("/inspect/transform", s.handleInspectTransform)
		r.Post("/inspect/export", s.handleInspectExport)
	})
}

// Router returns the handler tree, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

// Start listens on cfg.Addr until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	slog.Info("starting server", "addr", s.cfg.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
