// Package server provides the HTTP server and routing for the farm.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/qfarm/internal/biome"
	biomehandlers "github.com/aristath/qfarm/internal/biome/handlers"
	"github.com/aristath/qfarm/internal/database"
	"github.com/aristath/qfarm/internal/journal"
	"github.com/aristath/qfarm/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log            zerolog.Logger
	Farm           *biome.Farm
	Jobs           *scheduler.Scheduler
	Journal        *journal.Repository
	JournalWriter  *journal.Writer
	JournalDB      *database.DB
	Port           int
	DevMode        bool
	StreamInterval time.Duration
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	port           int
	farm           *biome.Farm
	systemHandlers *SystemHandlers
	journal        *JournalHandlers
	stream         *SnapshotStreamHandler
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:         chi.NewRouter(),
		log:            cfg.Log.With().Str("component", "server").Logger(),
		port:           cfg.Port,
		farm:           cfg.Farm,
		systemHandlers: NewSystemHandlers(cfg.Log, cfg.Farm, cfg.Jobs, cfg.JournalDB, cfg.JournalWriter),
		journal:        NewJournalHandlers(cfg.Log, cfg.Journal),
		stream:         NewSnapshotStreamHandler(cfg.Farm, cfg.StreamInterval, cfg.Log),
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(biomehandlers.NewHandler(cfg.Farm, cfg.Log))

	// No WriteTimeout: hijacked stream connections would inherit it.
	// Regular API routes are bounded by middleware.Timeout instead.
	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

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
func (s *Server) setupRoutes(biomes *biomehandlers.Handler) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// The stream is long-lived, so it sits outside the request timeout.
		r.Get("/stream", s.stream.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			biomes.RegisterRoutes(r)

			r.Route("/system", func(r chi.Router) {
				r.Get("/", s.systemHandlers.HandleSystemStatus)
				r.Get("/jobs", s.systemHandlers.HandleJobsStatus)
				r.Post("/jobs/{job}/run", s.systemHandlers.HandleRunJob)
				r.Get("/audit", s.systemHandlers.HandleAudit)
			})

			r.Route("/journal", func(r chi.Router) {
				r.Get("/", s.journal.HandleList)
				r.Get("/audits", s.journal.HandleAudits)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Int("port", s.port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	s.stream.Close()
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
