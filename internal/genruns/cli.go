package genruns

import (
	"fmt"
	"os"

	"github.com/nayef/paceline/pkg/logger"
)

// SetupLogging initializes the logger for the CLI.
func SetupLogging() error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// ShowHelp prints usage information for the run generation tool.
func ShowHelp() {
	os.Stdout.WriteString(`Paceline Run Generator
======================

Generates synthetic world-record progressions and submits them to a running
paceline service for analysis.

Usage:
  go run cmd/gen-runs/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -categories int
        Number of synthetic categories to generate (default 20)
  -runs int
        Number of runs per category (default 60)
  -workers int
        Number of concurrent submitters (default CPU cores)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Optional JSON file to save the generated categories
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Generate with default settings
  go run cmd/gen-runs/main.go

  # Stress the queue with many categories
  go run cmd/gen-runs/main.go -categories 500 -runs 100 -workers 16

  # Keep the generated dataset for replay
  go run cmd/gen-runs/main.go -output generated_categories.json
`)
}
