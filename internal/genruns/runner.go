package genruns

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/nayef/paceline/pkg/logger"
)

// Run timing constants.
const (
	processingDelay    = 2 * time.Second
	outputFilePermMask = 0o644
)

// Run executes the complete generation and submission flow.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting synthetic run generation",
		logger.String("baseURL", config.BaseURL),
		logger.Int("categories", config.NumCategories),
		logger.Int("runsPerCategory", config.RunsPerCat),
		logger.Int("workers", config.Workers))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	cats := generateCategories(ctx, config, stats)

	if err := submitCategories(ctx, config, cats, stats); err != nil {
		return fmt.Errorf("category submission failed: %w", err)
	}

	// Give the workers a moment to drain the queue before reading back.
	logger.Get().Info(ctx, "waiting for analysis to complete")
	time.Sleep(processingDelay)

	if err := fetchSummary(ctx, config); err != nil {
		logger.Get().Warn(ctx, "failed to fetch summary", logger.Error(err))
	}

	if config.OutputFile != "" {
		if err := saveCategories(ctx, config, cats); err != nil {
			logger.Get().Warn(ctx, "failed to save generated categories", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	_, _ = readResponseBody(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// fetchSummary reads the aggregate summary back and logs it.
func fetchSummary(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/api/summary")
	if err != nil {
		return err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("summary request failed with status: %d", resp.StatusCode)
	}

	var summary struct {
		Analyzed        int            `json:"analyzed"`
		Failed          int            `json:"failed"`
		GoodFits        int            `json:"good_fits"`
		BestModelCounts map[string]int `json:"best_model_distribution"`
		AvgBestRSquared float64        `json:"avg_best_r_squared"`
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return err
	}

	logger.Get().Info(ctx, "service summary",
		logger.Int("analyzed", summary.Analyzed),
		logger.Int("failed", summary.Failed),
		logger.Int("goodFits", summary.GoodFits),
		logger.Float64("avgBestRSquared", summary.AvgBestRSquared),
		logger.Any("bestModelCounts", summary.BestModelCounts))
	return nil
}

// saveCategories writes the generated categories to a JSON file so a run
// can be replayed or inspected.
func saveCategories(ctx context.Context, config *Config, cats []Category) error {
	data, err := json.MarshalIndent(cats, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal categories: %w", err)
	}
	if err := os.WriteFile(config.OutputFile, data, outputFilePermMask); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	logger.Get().Info(ctx, "categories saved to file", logger.String("filename", config.OutputFile))
	return nil
}

// displayFinalStats logs the final statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	logger.Get().Info(ctx, "final statistics",
		logger.Int("categoriesGenerated", stats.CategoriesGenerated),
		logger.Int("runsGenerated", stats.RunsGenerated),
		logger.Int("categoriesSubmitted", stats.CategoriesSubmitted),
		logger.Int("categoriesAccepted", stats.CategoriesAccepted),
		logger.Int("categoriesRejected", stats.CategoriesRejected),
		logger.String("duration", stats.Duration.String()))
}
