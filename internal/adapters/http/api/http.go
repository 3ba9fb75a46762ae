// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	service "github.com/okian/cutline/internal/app"
	"github.com/okian/cutline/pkg/logger"
)

const defaultMaxRequestBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StatsProvider

	// Evaluate computes the qualification threshold of a season.
	Evaluate(ctx context.Context, req service.Request) (*service.Evaluation, error)

	// Run returns a finished evaluation by run ID.
	Run(ctx context.Context, runID string) (*service.Evaluation, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler     *HealthHandler
	statsHandler      *StatsHandler
	thresholdsHandler *ThresholdsHandler
	runsHandler       *RunsHandler

	maxRequestBytes int64
	logger          logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{maxRequestBytes: defaultMaxRequestBytes, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.healthHandler = NewHealthHandler()
	s.statsHandler = NewStatsHandler(deps)
	s.thresholdsHandler = NewThresholdsHandler(deps, s.maxRequestBytes)
	s.runsHandler = NewRunsHandler(deps)
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz", s.logger))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats", s.logger))
	mux.HandleFunc("/thresholds", MetricsMiddleware(s.thresholdsHandler.HandleThresholds, "thresholds", s.logger))
	mux.HandleFunc("/runs/", MetricsMiddleware(s.runsHandler.HandleRun, "runs", s.logger))
	s.logger.Info(ctx, "api routes registered")
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	w.Header().Set(errorCodeHeader, code)
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
