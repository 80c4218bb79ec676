// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load() layers a YAML file and PACELINE_* env vars over the defaults.
package config

import (
	"runtime"
	"strings"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory analysis job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of analysis workers.
	WorkerCount int `koanf:"worker_count"`

	// MinRecords is the minimum progression length worth fitting.
	MinRecords int `koanf:"min_records"`

	// FitMaxIterations bounds the optimizer's iteration budget per model.
	FitMaxIterations int `koanf:"fit_max_iterations"`

	// Selection picks the model-comparison criterion: r2 or aic.
	Selection string `koanf:"selection"`

	// TieEpsilon is the score band within which simpler models win.
	TieEpsilon float64 `koanf:"tie_epsilon"`

	// GoodFitThreshold is the R-squared floor for counting a fit as good.
	GoodFitThreshold float64 `koanf:"good_fit_threshold"`

	// CollectGames, when set, is a comma-separated list of game names to
	// collect from the records API at startup. The collected dataset is
	// written to DataFile and then analyzed.
	CollectGames string `koanf:"collect_games"`

	// DataFile, when set, is a collected dataset analyzed at startup.
	DataFile string `koanf:"data_file"`

	// ResultsFile, when set, receives the full analysis results as JSON.
	ResultsFile string `koanf:"results_file"`

	// CSVFile, when set, receives the flattened progressions as CSV.
	CSVFile string `koanf:"csv_file"`

	// APIBaseURL is the speedrun records API root, for live collection.
	APIBaseURL string `koanf:"api_base_url"`

	// APIRatePerSec throttles requests against the records API.
	APIRatePerSec float64 `koanf:"api_rate_per_sec"`
}

// Games returns the parsed CollectGames list, trimmed and with empty
// entries dropped.
func (c *Config) Games() []string {
	var out []string
	for _, g := range strings.Split(c.CollectGames, ",") {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		Addr:             ":9080",
		QueueSize:        1024,
		WorkerCount:      runtime.NumCPU(),
		MinRecords:       5,
		FitMaxIterations: 10_000,
		Selection:        "r2",
		TieEpsilon:       1e-9,
		GoodFitThreshold: 0.7,
		APIBaseURL:       "https://www.speedrun.com/api/v1",
		APIRatePerSec:    1.4,
	}
}
