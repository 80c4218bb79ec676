// Package progression derives world-record progressions from raw run sets.
package progression

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/pkg/metrics"
)

// Default extraction configuration constants.
const (
	defaultMinRecords = 5
	minRecordsFloor   = 4
	hoursPerDay       = 24
)

// Extractor produces the canonical world-record progression for a category:
// the strictly improving subsequence of runs ordered by date. Extraction is
// a pure function of the input run list; no state is shared between calls,
// so one Extractor may serve concurrent categories.
type Extractor struct {
	minRecords int
}

// NewExtractor creates an Extractor with configuration options.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		minRecords: defaultMinRecords,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// MinRecords returns the configured minimum progression length.
func (e *Extractor) MinRecords() int { return e.minRecords }

// Extract sorts runs by date (stable, so submission order breaks ties) and
// retains each run that strictly beats every prior time. Retained runs get a
// 1-based record index and elapsed days since the first retained run.
//
// The progression is always returned, even when it is too short; in that
// case the error wraps ErrInsufficientData so the caller can report the
// category without aborting siblings.
func (e *Extractor) Extract(ctx context.Context, game, category string, runs []model.Run) (model.Progression, error) {
	start := time.Now()
	defer func() {
		metrics.RecordExtractionLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	prog := model.Progression{Game: game, Category: category}
	if len(runs) == 0 {
		return prog, fmt.Errorf("%w: no runs for %s / %s", ErrInsufficientData, game, category)
	}

	sorted := make([]model.Run, len(runs))
	copy(sorted, runs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	best := math.Inf(1)
	var first time.Time
	for _, run := range sorted {
		// Ties do not count as an improvement; the earlier run stands.
		if run.Seconds >= best {
			continue
		}
		best = run.Seconds

		if len(prog.Records) == 0 {
			first = run.Date
		}
		prog.Records = append(prog.Records, model.Record{
			Run:   run,
			Index: len(prog.Records) + 1,
			Days:  run.Date.Sub(first).Hours() / hoursPerDay,
		})
	}

	if len(prog.Records) < e.minRecords {
		return prog, fmt.Errorf("%w: %d records for %s / %s, need %d",
			ErrInsufficientData, len(prog.Records), game, category, e.minRecords)
	}
	return prog, nil
}

// Stats computes per-step improvement statistics for a progression.
// Returns nil when the progression has fewer than two records.
func Stats(p model.Progression) *model.ProgressionStats {
	if len(p.Records) < 2 {
		return nil
	}

	first := p.Records[0]
	last := p.Records[len(p.Records)-1]

	s := &model.ProgressionStats{
		FirstRecordDate:   first.Date,
		FirstRecordTime:   first.Seconds,
		CurrentRecordDate: last.Date,
		CurrentRecordTime: last.Seconds,
		TotalDays:         last.Days,
		NumberOfRecords:   len(p.Records),
	}
	s.TotalImprovementSec = first.Seconds - last.Seconds
	s.TotalImprovementPct = s.TotalImprovementSec / first.Seconds * 100
	s.AvgDaysBetweenRecords = s.TotalDays / float64(len(p.Records)-1)

	for i := 1; i < len(p.Records); i++ {
		prev, curr := p.Records[i-1], p.Records[i]
		saved := prev.Seconds - curr.Seconds
		s.Improvements = append(s.Improvements, model.Improvement{
			FromDate:           prev.Date,
			ToDate:             curr.Date,
			TimeSavedSeconds:   saved,
			PercentImprovement: saved / prev.Seconds * 100,
			DaysBetweenRecords: curr.Days - prev.Days,
		})
	}
	return s
}
