// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/nayef/paceline/internal/adapters/ingest"
)

// AnalyzeDependencies defines the interface for analysis submission.
type AnalyzeDependencies interface {
	Submit(ctx context.Context, game, category string, raws []ingest.RawRun) (jobID string, rejected int, ok bool)
}

// AnalyzeHandler handles analysis submission requests.
type AnalyzeHandler struct {
	deps AnalyzeDependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps AnalyzeDependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// analyzeRequest carries one category's raw runs for async analysis.
type analyzeRequest struct {
	Game     string          `json:"game"`
	Category string          `json:"category"`
	Runs     []ingest.RawRun `json:"runs"`
}

func (a analyzeRequest) validate() error {
	switch {
	case strings.TrimSpace(a.Game) == "":
		return errors.New("missing game")
	case strings.TrimSpace(a.Category) == "":
		return errors.New("missing category")
	case len(a.Runs) == 0:
		return errors.New("missing runs")
	}
	return nil
}

// HandlePostAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandlePostAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	jobID, rejected, ok := h.deps.Submit(r.Context(), req.Game, req.Category, req.Runs)
	if !ok {
		writeError(w, http.StatusTooManyRequests, "backpressure", NewKind(op, ErrBackpressure))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", JobID: jobID, RejectedRuns: rejected})
}
