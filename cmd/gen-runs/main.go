package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/nayef/paceline/internal/genruns"
	"github.com/nayef/paceline/pkg/logger"
)

// Default configuration constants.
const (
	defaultCategories  = 20
	defaultRunsPerCat  = 60
	defaultTimeout     = 30 * time.Second
	defaultRunDeadline = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		categories = flag.Int("categories", defaultCategories, "Number of synthetic categories to generate")
		runsPerCat = flag.Int("runs", defaultRunsPerCat, "Number of runs per category")
		workers    = flag.Int("workers", runtime.NumCPU(), "Number of concurrent submitters")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile = flag.String("output", "", "Optional JSON file to save the generated categories")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		genruns.ShowHelp()
		return
	}

	if err := genruns.SetupLogging(); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunDeadline)
	defer cancel()

	config := &genruns.Config{
		BaseURL:       *baseURL,
		NumCategories: *categories,
		RunsPerCat:    *runsPerCat,
		Workers:       *workers,
		Timeout:       *timeout,
		OutputFile:    *outputFile,
		Verbose:       *verbose,
	}

	if err := genruns.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Generation failed: " + err.Error() + "\n")
		return
	}
}
