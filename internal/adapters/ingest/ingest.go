// Package ingest converts loosely-typed run payloads from external sources
// into strict domain Runs, rejecting malformed records at the boundary so
// invalid data never reaches the fitting core.
package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/pkg/metrics"
)

// dateLayout is the upstream date format.
const dateLayout = "2006-01-02"

// RawRun mirrors the loosely-typed run shape returned by the records API
// and stored in collected datasets.
type RawRun struct {
	ID      string  `json:"id"`
	Date    string  `json:"date"`
	Times   RawTime `json:"times"`
	Weblink string  `json:"weblink"`
}

// RawTime carries the primary timing of a run in seconds.
type RawTime struct {
	PrimaryT float64 `json:"primary_t"`
}

// Dataset is the collected on-disk shape: games containing categories
// containing runs.
type Dataset struct {
	Games []RawGame
}

// RawGame mirrors one game entry of a collected dataset.
type RawGame struct {
	Name         string        `json:"name"`
	ID           string        `json:"id"`
	Abbreviation string        `json:"abbreviation,omitempty"`
	Weblink      string        `json:"weblink,omitempty"`
	Categories   []RawCategory `json:"categories"`
}

// RawCategory mirrors one category entry of a collected dataset. Runs holds
// the full verified run list when available; WRProgression is the already
// filtered record sequence older datasets persisted. Extraction is
// idempotent, so either shape feeds the same pipeline.
type RawCategory struct {
	Name          string   `json:"name"`
	ID            string   `json:"id"`
	TotalRuns     int      `json:"total_runs,omitempty"`
	Runs          []RawRun `json:"runs,omitempty"`
	WRProgression []RawRun `json:"wr_progression,omitempty"`
}

// RawRuns returns whichever run list the category carries.
func (c RawCategory) RawRuns() []RawRun {
	if len(c.Runs) > 0 {
		return c.Runs
	}
	return c.WRProgression
}

// ValidateRuns converts raw runs for one category into domain Runs.
// Malformed runs (missing date, unparsable date, missing or non-positive
// time) are rejected individually; the remainder proceeds. Rejections are
// returned so the caller can surface them as diagnostics.
func ValidateRuns(game, category string, raws []RawRun) ([]model.Run, []error) {
	runs := make([]model.Run, 0, len(raws))
	var rejected []error

	for i, raw := range raws {
		if raw.Date == "" {
			rejected = append(rejected, fmt.Errorf("%w: run %d of %s / %s has no date", ErrMalformedRun, i, game, category))
			metrics.RecordRunRejected()
			continue
		}
		date, err := time.Parse(dateLayout, raw.Date)
		if err != nil {
			rejected = append(rejected, fmt.Errorf("%w: run %d of %s / %s has unparsable date %q", ErrMalformedRun, i, game, category, raw.Date))
			metrics.RecordRunRejected()
			continue
		}
		secs := raw.Times.PrimaryT
		if secs <= 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
			rejected = append(rejected, fmt.Errorf("%w: run %d of %s / %s has non-positive time %v", ErrMalformedRun, i, game, category, secs))
			metrics.RecordRunRejected()
			continue
		}

		runs = append(runs, model.Run{
			RunID:    raw.ID,
			Game:     game,
			Category: category,
			Seconds:  secs,
			Date:     date,
			Weblink:  raw.Weblink,
		})
	}
	return runs, rejected
}

// LoadDataset reads a collected dataset file from disk.
func LoadDataset(path string) (Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetRead, err)
	}

	var games []RawGame
	if err := json.Unmarshal(data, &games); err != nil {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetRead, err)
	}
	return Dataset{Games: games}, nil
}
