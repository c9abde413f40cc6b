// Package server provides the HTTP API for ridewise.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hyperjump/ridewise/internal/config"
	"github.com/hyperjump/ridewise/internal/ingest"
	"github.com/hyperjump/ridewise/internal/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Ingester loads an uploaded workbook.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, source string) (*ingest.Result, error)
}

// Answerer answers one chat question for a user.
type Answerer interface {
	Answer(ctx context.Context, question, userID string) (string, error)
}

// Server is the HTTP server for the ridewise API.
type Server struct {
	ingester Ingester
	answerer Answerer
	storage  storage.Storage
	config   *config.ServerConfig
	auth     config.AuthConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	ingester Ingester,
	answerer Answerer,
	store storage.Storage,
	cfg *config.ServerConfig,
	auth config.AuthConfig,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		ingester: ingester,
		answerer: answerer,
		storage:  store,
		config:   cfg,
		auth:     auth,
		logger:   logger,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Deprecation", "Link"},
		MaxAge:         300,
	}))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ridewise is running"))
	})
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if s.auth.Enabled() {
			r.Use(s.requireAuth)
		}
		r.Post("/upload", s.handleUpload)
		r.Post("/chat", s.handleChat)
		r.With(deprecated).Post("/chat2", s.handleChat)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.Bool("auth", s.auth.Enabled()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func deprecated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Deprecation", "true")
		w.Header().Set("Link", `</chat>; rel="successor-version"`)
		next.ServeHTTP(w, r)
	})
}
