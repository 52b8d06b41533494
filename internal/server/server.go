package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/zgreco2000/hivqe-workbench/internal/modules/convergence"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/jobs"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/pes"
	"github.com/zgreco2000/hivqe-workbench/internal/modules/reference"
)

// Config holds server configuration
type Config struct {
	Port        int
	Log         zerolog.Logger
	Convergence *convergence.Handler
	PES         *pes.Handler
	Jobs        *jobs.Handler
	Reference   *reference.Handler
	DevMode     bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(cfg Config) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/convergence", func(r chi.Router) {
			r.Post("/scan", cfg.Convergence.HandleStartScan)
			r.Get("/scan/{batchID}", cfg.Convergence.HandleGetScan)
			r.Get("/scan/{batchID}/selection", cfg.Convergence.HandleGetSelection)
		})

		r.Route("/pes", func(r chi.Router) {
			r.Post("/assemble", cfg.PES.HandleAssemble)
			r.Post("/sweep", cfg.PES.HandleStartSweep)
			r.Get("/sweep/{batchID}", cfg.PES.HandleGetSweep)
		})

		r.Route("/jobs", func(r chi.Router) {
			r.Get("/pending", cfg.Jobs.HandleGetPending)
			r.Get("/{jobID}", cfg.Jobs.HandleGetJob)
		})

		r.Route("/reference", func(r chi.Router) {
			r.Get("/", cfg.Reference.HandleGetTable)
			r.Put("/", cfg.Reference.HandleUpsert)
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// handleHealth reports process liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
