// Package server exposes the latest dataset report over HTTP, streams run
// progress over a websocket and publishes class balance as Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/lacquerai/gambit/internal/engine"
)

// Config holds the server configuration
type Config struct {
	Host          string
	Port          int
	EnableMetrics bool
	EnableCORS    bool
	// RefreshInterval reruns the pipeline periodically. Zero disables it.
	RefreshInterval time.Duration
	// Pipeline is the run configuration used for every refresh.
	Pipeline        *engine.Config
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a default server configuration
func DefaultConfig() *Config {
	return &Config{
		Host:            "localhost",
		Port:            8080,
		EnableMetrics:   true,
		EnableCORS:      true,
		Pipeline:        engine.DefaultConfig(),
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithRegistry registers metrics with reg and serves them from it instead of
// the global default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registerer = reg
		s.gatherer = reg
	}
}

// WithRunnerOptions passes options to the engine runner used for refreshes.
func WithRunnerOptions(opts ...engine.RunnerOption) Option {
	return func(s *Server) {
		s.runnerOpts = append(s.runnerOpts, opts...)
	}
}

// ReportStore holds the report of the latest successful run.
type ReportStore struct {
	mu      sync.RWMutex
	report  *engine.Report
	lastErr error
	lastRun time.Time
}

// Set records the outcome of a run. A failed run keeps the previous report.
func (rs *ReportStore) Set(report *engine.Report, err error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.lastRun = time.Now()
	rs.lastErr = err
	if err == nil {
		rs.report = report
	}
}

// Latest returns the latest report, or nil before the first successful run.
func (rs *ReportStore) Latest() *engine.Report {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.report
}

// LastError returns the error of the most recent run, if it failed.
func (rs *ReportStore) LastError() error {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.lastErr
}

// LastRun returns when the most recent run finished.
func (rs *ReportStore) LastRun() time.Time {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.lastRun
}

// Server represents the gambit HTTP server
type Server struct {
	config     *Config
	store      *ReportStore
	manager    *RunManager
	hub        *Hub
	server     *http.Server
	upgrader   websocket.Upgrader
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
	runnerOpts []engine.RunnerOption
}

// New creates a new gambit server
func New(config *Config, opts ...Option) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Pipeline == nil {
		config.Pipeline = engine.DefaultConfig()
	}
	if err := config.Pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline configuration: %w", err)
	}

	s := &Server{
		config:     config,
		store:      &ReportStore{},
		hub:        NewHub(),
		registerer: prometheus.DefaultRegisterer,
		gatherer:   prometheus.DefaultGatherer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return config.EnableCORS // Allow all origins if CORS enabled
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	manager, err := NewRunManager(s.registerer, s.hub, s.runnerOpts...)
	if err != nil {
		return nil, err
	}
	s.manager = manager

	return s, nil
}

// Refresh runs the pipeline once and stores the report.
func (s *Server) Refresh(ctx context.Context) (*engine.Report, error) {
	report, err := s.manager.Run(ctx, s.config.Pipeline)
	if errors.Is(err, ErrRunInProgress) {
		return nil, err
	}
	s.store.Set(report, err)
	return report, err
}

// Handler returns the HTTP handler with every route mounted.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	if s.config.EnableCORS {
		router.Use(s.corsMiddleware)
	}

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.loggingMiddleware)

	api.HandleFunc("/report", s.getReport).Methods("GET")
	api.HandleFunc("/splits/{name}", s.getSplit).Methods("GET")
	api.HandleFunc("/refresh", s.refresh).Methods("POST")
	api.HandleFunc("/events", s.streamEvents).Methods("GET")

	if s.config.EnableCORS {
		api.Methods("OPTIONS").HandlerFunc(s.handleOptions)
	}

	if s.config.EnableMetrics {
		router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	router.HandleFunc("/health", s.healthCheck)

	return router
}

// Run serves until ctx is done, then shuts down gracefully. The first
// refresh happens before the listener starts; its failure is logged and the
// report endpoints answer 503 until a refresh succeeds.
func (s *Server) Run(ctx context.Context) error {
	if _, err := s.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("Initial dataset run failed")
	}

	addr := s.GetAddr()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Addr:         listener.Addr().String(),
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	log.Info().
		Str("addr", s.server.Addr).
		Bool("metrics", s.config.EnableMetrics).
		Dur("refresh_interval", s.config.RefreshInterval).
		Msg("Starting gambit server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	if s.config.RefreshInterval > 0 {
		go s.refreshLoop(ctx)
	}

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Received shutdown signal")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.hub.CloseAll()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("Server shutdown complete")
	return nil
}

func (s *Server) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				log.Error().Err(err).Msg("Scheduled dataset run failed")
			}
		}
	}
}

// GetAddr returns the server address
func (s *Server) GetAddr() string {
	if s.server != nil {
		return s.server.Addr
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// handleOptions handles CORS preflight requests
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
