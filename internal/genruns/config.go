// Package genruns generates synthetic world-record progressions and drives
// them through a running analysis service.
package genruns

import "time"

// Config controls the generation run.
type Config struct {
	BaseURL       string
	NumCategories int
	RunsPerCat    int
	Workers       int
	Timeout       time.Duration
	OutputFile    string
	Verbose       bool
}

// Stats tracks generation and submission outcomes.
type Stats struct {
	CategoriesGenerated int
	CategoriesSubmitted int
	CategoriesAccepted  int
	CategoriesRejected  int
	RunsGenerated       int
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
}
