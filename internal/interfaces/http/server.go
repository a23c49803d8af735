// Package http serves the operational endpoints in schedule mode:
// liveness, the last run summary and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/scoutwatch/scout/internal/pipeline"
	"github.com/scoutwatch/scout/internal/telemetry"
)

// Server exposes /health, /lastrun and /metrics.
type Server struct {
	srv *http.Server
	log zerolog.Logger

	mu      sync.RWMutex
	lastRun *pipeline.RunSummary
}

// New builds the server on addr.
func New(addr string, metrics *telemetry.Metrics, log zerolog.Logger) *Server {
	s := &Server{log: log.With().Str("component", "http").Logger()}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/lastrun", s.handleLastRun).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// SetLastRun publishes the most recent run summary.
func (s *Server) SetLastRun(summary *pipeline.RunSummary) {
	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleLastRun(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	summary := s.lastRun
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if summary == nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "no runs yet"})
		return
	}
	json.NewEncoder(w).Encode(summary)
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }
