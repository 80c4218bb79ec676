// Package repository defines the category result store interface and errors.
package repository

import (
	"context"

	"github.com/nayef/paceline/internal/domain/model"
)

// Summary aggregates batch outcomes across all stored categories.
type Summary struct {
	Analyzed          int                     `json:"analyzed"`
	Failed            int                     `json:"failed"`
	GoodFits          int                     `json:"good_fits"`
	BestModelCounts   map[string]int          `json:"best_model_distribution"`
	AvgBestRSquared   float64                 `json:"avg_best_r_squared"`
	AvgImprovementPct float64                 `json:"avg_improvement_percent"`
	Failures          []model.CategoryFailure `json:"failures"`
}

// Store provides read/write access to analysis outcomes. A category is
// keyed by (game, category); re-submitting a category overwrites its
// previous outcome, which is the desired re-analysis semantics.
type Store interface {
	// Put stores a category result, replacing any prior outcome.
	Put(ctx context.Context, result model.CategoryResult) error

	// PutFailure stores an explicit failure marker, replacing any prior
	// outcome for the category.
	PutFailure(ctx context.Context, failure model.CategoryFailure) error

	// Get returns the result for one category.
	// Returns ErrNotFound when the category is unknown or failed.
	Get(ctx context.Context, game, category string) (model.CategoryResult, error)

	// List returns all stored results ordered by game then category.
	List(ctx context.Context) ([]model.CategoryResult, error)

	// Failures returns all failure markers ordered by game then category.
	Failures(ctx context.Context) ([]model.CategoryFailure, error)

	// Summary aggregates outcomes over everything stored.
	Summary(ctx context.Context) (Summary, error)

	// Count returns the number of stored results.
	Count(ctx context.Context) int
}
