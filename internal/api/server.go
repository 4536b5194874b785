// Package api provides the operator-facing HTTP API: discovery stats, run
// inspection, and the manual session state overrides.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Redeemedduck/GolfDataApp-sub000/internal/config"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/logging"
	"github.com/Redeemedduck/GolfDataApp-sub000/internal/models"
)

// StatsProvider serves discovery statistics, usually the redis-backed cache.
type StatsProvider interface {
	Get(ctx context.Context) (*models.DiscoveryStats, error)
}

// RunReader exposes run state for inspection.
type RunReader interface {
	GetByID(ctx context.Context, runID string) (*models.BackfillRun, error)
	ListRecent(ctx context.Context, limit int) ([]*models.BackfillRun, error)
}

// SessionAdmin covers the manual state overrides operators may apply.
type SessionAdmin interface {
	ResetForRetry(ctx context.Context, sessionIDs []string) (int64, error)
	MarkSkipped(ctx context.Context, sessionID string) error
}

// Server is the ops HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	stats      StatsProvider
	runs       RunReader
	sessions   SessionAdmin
	log        *logging.Logger
}

// NewServer creates the ops server.
func NewServer(cfg *config.ServerConfig, stats StatsProvider, runs RunReader, sessions SessionAdmin, log *logging.Logger) *Server {
	if log == nil {
		log = logging.NewLogger(logging.LevelInfo, logging.FormatJSON)
	}
	s := &Server{
		router:   mux.NewRouter(),
		stats:    stats,
		runs:     runs,
		sessions: sessions,
		log:      log.WithField("component", "api"),
	}
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	v1.HandleFunc("/sessions/reset", s.handleResetSessions).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/skip", s.handleSkipSession).Methods(http.MethodPost)
}

// Handler returns the configured router, used directly by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving and blocks until the listener stops.
func (s *Server) Start() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("ops API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ops API server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
