package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthStatus is the payload served at /healthz.
type HealthStatus struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
	LastRun   time.Time `json:"last_run,omitempty"`
	LastError string    `json:"last_error,omitempty"`
}

// Server serves /healthz and /metrics for one bot process.
type Server struct {
	metrics   *Metrics
	startedAt time.Time

	mu        sync.Mutex
	lastRun   time.Time
	lastError string

	httpServer *http.Server
}

// NewServer creates a monitoring server bound to addr, e.g. ":9090".
func NewServer(addr string, metrics *Metrics) *Server {
	s := &Server{
		metrics:   metrics,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// RecordRun marks a completed strategy run, with its error if any.
func (s *Server) RecordRun(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = time.Now()
	if err != nil {
		s.lastError = err.Error()
	} else {
		s.lastError = ""
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := HealthStatus{
		Status:    "ok",
		StartedAt: s.startedAt,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		LastRun:   s.lastRun,
		LastError: s.lastError,
	}
	if s.lastError != "" {
		status.Status = "degraded"
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
