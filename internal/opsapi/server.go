// Package opsapi exposes an operator-facing HTTP status surface for a
// running dispatcher: a status snapshot and a liveness probe, the two
// endpoints a long-running coordinator needs.
package opsapi

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// RunView is whatever the dispatcher can report about itself at a point
// in time; internal/bullpen.Bullpen satisfies this by construction.
type RunView interface {
	QueueID() string
	RunningWorkers() int
}

// StatsView exposes the counters opsapi reports alongside RunView.
type StatsView interface {
	Attempts() int64
	PreterminalsEmitted() int64
	HostCount() int
}

// Server is the operator HTTP status server.
type Server struct {
	router *chi.Mux
	server *http.Server
	run    RunView
	stats  StatsView
}

// StatusResponse is the JSON body served from GET /status.
type StatusResponse struct {
	QueueID          string `json:"queue_id"`
	RunningWorkers   int    `json:"running_workers"`
	HostCount        int    `json:"host_count"`
	Attempts         int64  `json:"attempts"`
	PreterminalCount int64  `json:"preterminals_emitted"`
}

// HealthResponse is the JSON body served from GET /health.
type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"timestamp"`
	NumGC  uint32    `json:"num_gc"`
}

var startTime = time.Now()

// NewServer builds a status server backed by run and stats. addr is the
// bind address passed to Start.
func NewServer(addr string, run RunView, stats StatsView) *Server {
	s := &Server{
		router: chi.NewRouter(),
		run:    run,
		stats:  stats,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(10 * time.Second))

	s.router.Get("/status", s.handleStatus)
	s.router.Get("/health", s.handleHealth)

	s.server = &http.Server{Addr: addr, Handler: s.router}
	return s
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		QueueID:          s.run.QueueID(),
		RunningWorkers:   s.run.RunningWorkers(),
		HostCount:        s.stats.HostCount(),
		Attempts:         s.stats.Attempts(),
		PreterminalCount: s.stats.PreterminalsEmitted(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now(),
		NumGC:  m.NumGC,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// Start begins serving and blocks until the server stops.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
