package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nayef/paceline/internal/adapters/export"
	"github.com/nayef/paceline/internal/adapters/http/api"
	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/internal/app"
	"github.com/nayef/paceline/internal/config"
	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/pkg/logger"
	"github.com/nayef/paceline/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the service with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithMinRecords(cfg.MinRecords),
		app.WithMaxFitIterations(cfg.FitMaxIterations),
		app.WithCriterion(fitting.Criterion(cfg.Selection)),
		app.WithTieEpsilon(cfg.TieEpsilon),
		app.WithGoodFitThreshold(cfg.GoodFitThreshold),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Collect a fresh dataset from the records API when games are
	// configured; analysis below picks the file up.
	if cfg.CollectGames != "" {
		collectDataset(ctx, cfg, loggerInstance)
	}

	// Analyze a collected dataset up front when one is configured, then
	// export results so the process is useful in batch mode too.
	if cfg.DataFile != "" {
		if err := svc.AnalyzeDataset(ctx, cfg.DataFile); err != nil {
			loggerInstance.Error(ctx, "dataset analysis failed", logger.String("path", cfg.DataFile), logger.Error(err))
		} else {
			exportResults(ctx, svc, cfg, loggerInstance)
		}
	}

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	// HTTP mux and routes.
	mux := http.NewServeMux()

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc)
	apiServer.Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			return
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// collectDataset gathers verified runs for the configured games from the
// records API and writes the dataset to the configured data file.
func collectDataset(ctx context.Context, cfg *config.Config, log logger.Logger) {
	client := ingest.NewClient(cfg.APIBaseURL, ingest.WithRate(cfg.APIRatePerSec))
	collector := ingest.NewCollector(client)

	games := cfg.Games()
	log.Info(ctx, "collecting dataset",
		logger.String("api", cfg.APIBaseURL),
		logger.Int("games", len(games)))

	ds, err := collector.Collect(ctx, games)
	if err != nil {
		log.Error(ctx, "dataset collection failed", logger.Error(err))
		return
	}
	if err := ingest.SaveDataset(cfg.DataFile, ds); err != nil {
		log.Error(ctx, "failed to save dataset", logger.String("path", cfg.DataFile), logger.Error(err))
		return
	}
	log.Info(ctx, "dataset collected",
		logger.String("path", cfg.DataFile),
		logger.Int("games", len(ds.Games)))
}

// exportResults writes the analysis results to the configured JSON and CSV
// destinations.
func exportResults(ctx context.Context, svc *app.Service, cfg *config.Config, log logger.Logger) {
	if cfg.ResultsFile == "" && cfg.CSVFile == "" {
		return
	}
	results, err := svc.Results(ctx)
	if err != nil {
		log.Error(ctx, "failed to read results for export", logger.Error(err))
		return
	}
	if cfg.ResultsFile != "" {
		if err := export.WriteResultsJSON(cfg.ResultsFile, results); err != nil {
			log.Error(ctx, "JSON export failed", logger.String("path", cfg.ResultsFile), logger.Error(err))
		} else {
			log.Info(ctx, "results exported", logger.String("path", cfg.ResultsFile), logger.Int("categories", len(results)))
		}
	}
	if cfg.CSVFile != "" {
		if err := export.WriteProgressionCSV(cfg.CSVFile, results); err != nil {
			log.Error(ctx, "CSV export failed", logger.String("path", cfg.CSVFile), logger.Error(err))
		} else {
			log.Info(ctx, "progressions exported", logger.String("path", cfg.CSVFile))
		}
	}
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
