// Package api serves a read-only JSON view of channels, status, and simulations.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/channel"
	"github.com/arttuliini/GPIO-Vasalli/internal/service"
	"github.com/arttuliini/GPIO-Vasalli/internal/storage"
)

// StatusReader returns the latest status snapshot.
type StatusReader interface {
	Read() (storage.Status, error)
}

// DaySimulator plans a day.
type DaySimulator interface {
	SimulateDay(ctx context.Context, date time.Time) (service.Schedule, error)
}

// Config holds server dependencies.
type Config struct {
	Address        string
	AllowedOrigins []string
	Channels       service.ChannelSource
	Status         StatusReader
	Simulator      DaySimulator
	Location       *time.Location
	Log            zerolog.Logger
	Version        string
}

// Server is the HTTP status API.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates the server and its routes.
func New(cfg Config) *Server {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "api").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(45 * time.Second))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/channels", s.handleChannels)
		r.Get("/status", s.handleStatus)
		r.Get("/simulation", s.handleSimulation)
	})
}

// Start serves until Shutdown.
func (s *Server) Start() error {
	s.log.Info().Str("address", s.cfg.Address).Msg("starting HTTP server")
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

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

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Warn().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

var errNotConfigured = errors.New("not configured")

func modeParam(r *http.Request) channel.Mode {
	if r.URL.Query().Get("mode") == channel.ModeSimulation.String() {
		return channel.ModeSimulation
	}
	return channel.ModeLive
}
