package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/pkg/metrics"
)

// defaultGoodFitThreshold is the R-squared floor above which a category
// counts as well explained, matching the published analysis cut.
const defaultGoodFitThreshold = 0.7

// categoryKey identifies one category within one game.
type categoryKey struct {
	game     string
	category string
}

// MemStore implements Store with an RWMutex-guarded map. Result volumes are
// a few hundred categories; keyed lookup plus a full scan for summaries is
// all the access pattern needs.
type MemStore struct {
	mu               sync.RWMutex
	results          map[categoryKey]model.CategoryResult
	failures         map[categoryKey]model.CategoryFailure
	goodFitThreshold float64
}

// NewMemStore creates an empty in-memory store with configuration options.
func NewMemStore(opts ...StoreOption) *MemStore {
	s := &MemStore{
		results:          make(map[categoryKey]model.CategoryResult),
		failures:         make(map[categoryKey]model.CategoryFailure),
		goodFitThreshold: defaultGoodFitThreshold,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Put stores a category result, replacing any prior outcome.
func (s *MemStore) Put(_ context.Context, result model.CategoryResult) error {
	key := categoryKey{game: result.Game, category: result.Category}

	s.mu.Lock()
	s.results[key] = result
	delete(s.failures, key)
	n := len(s.results)
	s.mu.Unlock()

	metrics.UpdateResultsStored(n)
	return nil
}

// PutFailure stores an explicit failure marker for a category.
func (s *MemStore) PutFailure(_ context.Context, failure model.CategoryFailure) error {
	key := categoryKey{game: failure.Game, category: failure.Category}

	s.mu.Lock()
	s.failures[key] = failure
	delete(s.results, key)
	n := len(s.results)
	s.mu.Unlock()

	metrics.UpdateResultsStored(n)
	return nil
}

// Get returns the result for one category.
func (s *MemStore) Get(_ context.Context, game, category string) (model.CategoryResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[categoryKey{game: game, category: category}]
	if !ok {
		return model.CategoryResult{}, ErrNotFound
	}
	return result, nil
}

// List returns all stored results ordered by game then category.
func (s *MemStore) List(_ context.Context) ([]model.CategoryResult, error) {
	s.mu.RLock()
	out := make([]model.CategoryResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Game != out[j].Game {
			return out[i].Game < out[j].Game
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Failures returns all failure markers ordered by game then category.
func (s *MemStore) Failures(_ context.Context) ([]model.CategoryFailure, error) {
	s.mu.RLock()
	out := make([]model.CategoryFailure, 0, len(s.failures))
	for _, f := range s.failures {
		out = append(out, f)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Game != out[j].Game {
			return out[i].Game < out[j].Game
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// Summary aggregates outcomes over everything stored. Averages are taken
// over good fits only, mirroring the published analysis summary.
func (s *MemStore) Summary(ctx context.Context) (Summary, error) {
	results, err := s.List(ctx)
	if err != nil {
		return Summary{}, err
	}
	failures, err := s.Failures(ctx)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		Analyzed:        len(results),
		Failed:          len(failures),
		BestModelCounts: make(map[string]int),
		Failures:        failures,
	}

	var sumR2, sumImprovement float64
	for _, r := range results {
		if r.BestRSquared <= s.goodFitThreshold {
			continue
		}
		summary.GoodFits++
		summary.BestModelCounts[r.BestModel]++
		sumR2 += r.BestRSquared
		sumImprovement += r.ImprovementPct
	}
	if summary.GoodFits > 0 {
		summary.AvgBestRSquared = sumR2 / float64(summary.GoodFits)
		summary.AvgImprovementPct = sumImprovement / float64(summary.GoodFits)
	}
	return summary, nil
}

// Count returns the number of stored results.
func (s *MemStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

// Ensure MemStore satisfies the Store contract.
var _ Store = (*MemStore)(nil)
