// Package server provides the HTTP API for matchfeed.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hyperjump/matchfeed/internal/catalog"
	"github.com/hyperjump/matchfeed/internal/config"
	"github.com/hyperjump/matchfeed/internal/discovery"
	"github.com/hyperjump/matchfeed/internal/evolution"
	"github.com/hyperjump/matchfeed/internal/metrics"
	"github.com/hyperjump/matchfeed/internal/profile"
	"github.com/hyperjump/matchfeed/internal/ranking"
	"github.com/hyperjump/matchfeed/internal/storage"
	"github.com/hyperjump/matchfeed/internal/vector"
)

// AcceptSubmitter queues accepted swipes for profile evolution.
type AcceptSubmitter interface {
	Submit(userID, itemID string, acceptedCount int) error
}

// Deps are the services the API is built on. Gatherer may be nil, in which case /metrics
// serves the default registry.
type Deps struct {
	Store      storage.Storage
	Vectors    vector.VectorIndex
	Discovery  *discovery.Service
	Profiles   *profile.Service
	Catalog    *catalog.Catalog
	Scorer     *ranking.Scorer
	Evolution  *evolution.Engine
	Dispatcher AcceptSubmitter
	Metrics    *metrics.Metrics
	Gatherer   prometheus.Gatherer
}

// Server is the HTTP server for the matchfeed API.
type Server struct {
	Deps
	config *config.Config
	logger *zap.Logger
	now    func() time.Time
	server *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(deps Deps, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		Deps:   deps,
		config: cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Routes builds the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if t := s.config.Server.RequestTimeoutSeconds; t > 0 {
		r.Use(middleware.Timeout(time.Duration(t) * time.Second))
	}
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)
		r.Post("/users/resume", s.handleCreateUserFromResume)
		r.Get("/users/{id}", s.handleGetUser)
		r.Get("/users/{id}/discover", s.handleDiscover)
		r.Post("/users/{id}/evolve", s.handleEvolve)
		r.Get("/users/{id}/items/{itemID}/explanation", s.handleExplain)

		r.Post("/swipes", s.handleSwipe)

		r.Post("/items", s.handleCreateItem)
		r.Get("/items/search", s.handleSearchItems)
		r.Get("/items/{id}", s.handleGetItem)
		r.Put("/items/{id}", s.handleUpdateItem)
		r.Delete("/items/{id}", s.handleDeactivateItem)

		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}
