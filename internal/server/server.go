// Package server exposes the operational HTTP surface: Prometheus metrics
// and a JSON health report of the poll loop.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/whisper/battlewatch/internal/metrics"
	"github.com/whisper/battlewatch/internal/monitor"
)

// StatusSource reports the poll loop status.
type StatusSource interface {
	Status() monitor.Status
}

// Config holds server settings.
type Config struct {
	ListenAddr string
	// StaleAfter marks the service unhealthy when no poll has succeeded
	// for this long. Zero disables the check.
	StaleAfter time.Duration
}

// Server serves /health and /metrics.
type Server struct {
	config     Config
	source     StatusSource
	logger     *zap.Logger
	httpServer *http.Server
	startedAt  time.Time
	now        func() time.Time
}

// New creates a Server reporting on source.
func New(config Config, source StatusSource, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		config:    config,
		source:    source,
		logger:    logger.Named("http"),
		startedAt: time.Now(),
		now:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())

	s.httpServer = &http.Server{
		Addr:              config.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", zap.String("addr", s.config.ListenAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: http server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits up to 5s for active ones.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: http shutdown: %w", err)
	}
	return nil
}

type healthResponse struct {
	Status string         `json:"status"`
	Uptime string         `json:"uptime"`
	Poll   monitor.Status `json:"poll"`
}

// handleHealth reports "ok" while polls succeed and "stale" with 503 once
// the last success is older than StaleAfter.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	st := s.source.Status()
	now := s.now()

	resp := healthResponse{
		Status: "ok",
		Uptime: now.Sub(s.startedAt).Round(time.Second).String(),
		Poll:   st,
	}
	code := http.StatusOK
	if s.stale(st, now) {
		resp.Status = "stale"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) stale(st monitor.Status, now time.Time) bool {
	if s.config.StaleAfter <= 0 {
		return false
	}
	last := st.LastSuccess
	if last.IsZero() {
		last = s.startedAt
	}
	return now.Sub(last) > s.config.StaleAfter
}
