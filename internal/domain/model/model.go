// Package model contains domain models passed between layers.
package model

import "time"

// Run represents a single submitted record attempt for one category.
// Runs are read-only inputs produced by the ingestion boundary.
type Run struct {
	RunID    string    `json:"run_id,omitempty"` // upstream run identifier, may be empty for synthetic data
	Game     string    `json:"-"`
	Category string    `json:"-"`
	Seconds  float64   `json:"time_seconds"` // completion time in seconds, always positive
	Date     time.Time `json:"date"`         // submission date
	Weblink  string    `json:"weblink,omitempty"`
}

// Record is a Run that set a new world record at the moment of submission.
type Record struct {
	Run
	Index int     `json:"record_number"`    // 1-based position within the progression
	Days  float64 `json:"days_since_first"` // days elapsed since the first record, fractional
}

// Progression is the strictly improving subsequence of runs for one
// category, ordered by date. Completion times strictly decrease across the
// sequence; Days is non-decreasing and Index increases by exactly 1.
type Progression struct {
	Game     string
	Category string
	Records  []Record
}

// Len returns the number of records in the progression.
func (p Progression) Len() int { return len(p.Records) }

// Runs returns the underlying runs of the progression in record order.
func (p Progression) Runs() []Run {
	out := make([]Run, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Run
	}
	return out
}

// Seconds returns the observed completion times in record order.
func (p Progression) Seconds() []float64 {
	out := make([]float64, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Seconds
	}
	return out
}

// Days returns the elapsed days since the first record, in record order.
func (p Progression) Days() []float64 {
	out := make([]float64, len(p.Records))
	for i, r := range p.Records {
		out[i] = r.Days
	}
	return out
}

// Indexes returns the 1-based record indexes as floats, in record order.
func (p Progression) Indexes() []float64 {
	out := make([]float64, len(p.Records))
	for i, r := range p.Records {
		out[i] = float64(r.Index)
	}
	return out
}

// ModelFit is the outcome of fitting one candidate family to a progression.
type ModelFit struct {
	Family    string    `json:"family"`
	Params    []float64 `json:"params,omitempty"`
	RSquared  float64   `json:"r_squared"`
	RMSE      float64   `json:"rmse"`
	AIC       float64   `json:"aic"`
	Converged bool      `json:"converged"`
	Error     string    `json:"error,omitempty"`
}

// Prediction extrapolates the winning model to a future horizon.
type Prediction struct {
	DaysFromNow            float64 `json:"days_from_now"`
	PredictedTime          float64 `json:"predicted_time"`
	ImprovementFromCurrent float64 `json:"improvement_from_current"`
}

// Improvement describes one step between consecutive records.
type Improvement struct {
	FromDate           time.Time `json:"from_date"`
	ToDate             time.Time `json:"to_date"`
	TimeSavedSeconds   float64   `json:"time_saved_seconds"`
	PercentImprovement float64   `json:"percent_improvement"`
	DaysBetweenRecords float64   `json:"days_between_records"`
}

// ProgressionStats summarizes how a category's record progressed over time.
type ProgressionStats struct {
	FirstRecordDate       time.Time     `json:"first_record_date"`
	FirstRecordTime       float64       `json:"first_record_time"`
	CurrentRecordDate     time.Time     `json:"current_record_date"`
	CurrentRecordTime     float64       `json:"current_record_time"`
	TotalImprovementSec   float64       `json:"total_improvement_seconds"`
	TotalImprovementPct   float64       `json:"total_improvement_percent"`
	TotalDays             float64       `json:"total_days"`
	NumberOfRecords       int           `json:"number_of_records"`
	AvgDaysBetweenRecords float64       `json:"avg_days_between_records"`
	Improvements          []Improvement `json:"improvements"`
}

// CategoryResult aggregates all fits for one category plus the selected
// winner. It is the terminal artifact consumed by reporting and the API.
type CategoryResult struct {
	Game           string  `json:"game"`
	Category       string  `json:"category"`
	NRecords       int     `json:"n_records"`
	FirstTime      float64 `json:"first_time"`
	CurrentTime    float64 `json:"current_time"`
	ImprovementPct float64 `json:"improvement_percent"`
	DaysSpan       float64 `json:"days_span"`

	// Records is the progression the fits were computed from, kept so the
	// reporting layer can render observed times next to fitted curves.
	Records []Record `json:"progression,omitempty"`

	Fits []ModelFit `json:"models"`

	BestModel    string  `json:"best_model"`
	BestRSquared float64 `json:"best_r_squared"`

	// TheoreticalLimit is the fitted asymptote of the winning family, nil
	// when the winner has no finite floor (Wright's curve).
	TheoreticalLimit *float64 `json:"theoretical_limit,omitempty"`
	PercentToLimit   *float64 `json:"percent_to_limit,omitempty"`

	Predictions []Prediction      `json:"predictions,omitempty"`
	Stats       *ProgressionStats `json:"statistics,omitempty"`

	// Diagnostics carries non-fatal numerical warnings surfaced during
	// analysis, e.g. near-zero elapsed-time spread.
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// Fit returns the fit for the given family, if present.
func (c CategoryResult) Fit(family string) (ModelFit, bool) {
	for _, f := range c.Fits {
		if f.Family == family {
			return f, true
		}
	}
	return ModelFit{}, false
}

// CategoryFailure is the explicit failure marker stored when a category
// could not be analyzed. Sibling categories are unaffected.
type CategoryFailure struct {
	Game     string `json:"game"`
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

// Job is one unit of analysis work: the raw runs of a single category.
type Job struct {
	JobID    string
	Game     string
	Category string
	Runs     []Run
}
