// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"sort"

	"github.com/nayef/paceline/internal/domain/model"
)

// GamesDependencies defines the interface for game listing.
type GamesDependencies interface {
	Results(ctx context.Context) ([]model.CategoryResult, error)
}

// GamesHandler handles game listing requests.
type GamesHandler struct {
	deps GamesDependencies
}

// NewGamesHandler creates a new games handler.
func NewGamesHandler(deps GamesDependencies) *GamesHandler {
	return &GamesHandler{deps: deps}
}

// gameEntry is one analyzed game with its categories.
type gameEntry struct {
	Game       string          `json:"game"`
	Categories []categoryEntry `json:"categories"`
}

// categoryEntry summarizes one analyzed category.
type categoryEntry struct {
	Category       string  `json:"category"`
	NRecords       int     `json:"n_records"`
	BestModel      string  `json:"best_model"`
	BestRSquared   float64 `json:"best_r_squared"`
	ImprovementPct float64 `json:"improvement_percent"`
}

// HandleGetGames handles GET /api/games requests.
func (h *GamesHandler) HandleGetGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	results, err := h.deps.Results(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	byGame := make(map[string][]categoryEntry)
	for _, res := range results {
		byGame[res.Game] = append(byGame[res.Game], categoryEntry{
			Category:       res.Category,
			NRecords:       res.NRecords,
			BestModel:      res.BestModel,
			BestRSquared:   res.BestRSquared,
			ImprovementPct: res.ImprovementPct,
		})
	}

	games := make([]gameEntry, 0, len(byGame))
	for game, cats := range byGame {
		sort.Slice(cats, func(i, j int) bool { return cats[i].Category < cats[j].Category })
		games = append(games, gameEntry{Game: game, Categories: cats})
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Game < games[j].Game })

	writeJSON(w, http.StatusOK, games)
}
