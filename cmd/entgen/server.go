package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// health is the outcome of the last generation run.
type health struct {
	mu       sync.Mutex
	lastRun  time.Time
	entities int
	duration time.Duration
	err      error
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status   string    `json:"status"`
	LastRun  time.Time `json:"last_run,omitempty"`
	Entities int       `json:"entities"`
	Duration string    `json:"duration,omitempty"`
	Error    string    `json:"error,omitempty"`
}

func (h *health) ok(entities int, d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun, h.entities, h.duration, h.err = time.Now(), entities, d, nil
}

func (h *health) fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun, h.err = time.Now(), err
}

func (h *health) snapshot() HealthResponse {
	h.mu.Lock()
	defer h.mu.Unlock()
	resp := HealthResponse{
		Status:   "ok",
		LastRun:  h.lastRun,
		Entities: h.entities,
	}
	switch {
	case h.lastRun.IsZero():
		resp.Status = "starting"
	case h.err != nil:
		resp.Status = "failing"
		resp.Error = h.err.Error()
	default:
		resp.Duration = h.duration.String()
	}
	return resp
}

// serveHTTP answers 503 while the last run failed.
func (h *health) serveHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h.snapshot()
	if resp.Status == "failing" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, resp)
}

// newRouter routes /metrics to the collectors of reg and /healthz to h.
func newRouter(reg *prometheus.Registry, h *health) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", h.serveHTTP)
	return r
}

type server struct {
	srv    *http.Server
	logger *slog.Logger
}

func newServer(addr string, h http.Handler, logger *slog.Logger) *server {
	return &server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

func (s *server) serve() {
	s.logger.Info("serving metrics", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("metrics server stopped", "error", err)
	}
}

func (s *server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}
