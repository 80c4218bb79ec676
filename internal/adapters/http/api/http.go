// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/internal/adapters/repository"
	"github.com/nayef/paceline/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Read operations expose stored analysis results.
	Results(ctx context.Context) ([]model.CategoryResult, error)
	Result(ctx context.Context, game, category string) (model.CategoryResult, error)
	Summary(ctx context.Context) (repository.Summary, error)

	// Submit validates raw runs and enqueues a category for async analysis.
	// Returns false on backpressure.
	Submit(ctx context.Context, game, category string, raws []ingest.RawRun) (jobID string, rejected int, ok bool)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	gamesHandler       *GamesHandler
	progressionHandler *ProgressionHandler
	summaryHandler     *SummaryHandler
	analyzeHandler     *AnalyzeHandler
	dashboardHandler   *dashboardHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		gamesHandler:       NewGamesHandler(deps),
		progressionHandler: NewProgressionHandler(deps),
		summaryHandler:     NewSummaryHandler(deps),
		analyzeHandler:     NewAnalyzeHandler(deps),
		dashboardHandler:   newdashboardHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/dashboard", s.dashboardHandler.HandleDashboard)
	mux.HandleFunc("/api/games", MetricsMiddleware(s.gamesHandler.HandleGetGames, "games"))
	mux.HandleFunc("/api/progression/", MetricsMiddleware(s.progressionHandler.HandleGetProgression, "progression"))
	mux.HandleFunc("/api/summary", MetricsMiddleware(s.summaryHandler.HandleGetSummary, "summary"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandlePostAnalyze, "analyze"))
}

type ackResponse struct {
	Status       string `json:"status"`
	JobID        string `json:"job_id,omitempty"`
	RejectedRuns int    `json:"rejected_runs"`
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
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
