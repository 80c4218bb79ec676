package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/nayef/paceline/pkg/logger"
)

// maxCategoriesPerGame caps collection to the main categories of each game.
const maxCategoriesPerGame = 5

// Collector gathers verified-run datasets from a records API, one game at a
// time. A game or category that fails to resolve is skipped and logged so a
// single bad name never aborts the collection.
type Collector struct {
	client *Client
	logger logger.Logger
}

// NewCollector creates a Collector over the given records API client.
func NewCollector(client *Client) *Collector {
	return &Collector{
		client: client,
		logger: logger.Get().Named("collector"),
	}
}

// Collect fetches the full-game categories of each named game together with
// their verified runs, in the on-disk shape LoadDataset reads back. Games
// without any usable category are dropped.
func (c *Collector) Collect(ctx context.Context, gameNames []string) (Dataset, error) {
	var games []RawGame

	for _, name := range gameNames {
		game, err := c.collectGame(ctx, name)
		if err != nil {
			if ctx.Err() != nil {
				return Dataset{}, err
			}
			c.logger.Warn(ctx, "skipping game", logger.String("game", name), logger.Error(err))
			continue
		}
		if len(game.Categories) == 0 {
			c.logger.Warn(ctx, "no categories with runs", logger.String("game", name))
			continue
		}
		games = append(games, game)
	}

	if len(games) == 0 {
		return Dataset{}, fmt.Errorf("%w: no games collected", ErrAPIRequest)
	}
	return Dataset{Games: games}, nil
}

// collectGame resolves one game name and fetches runs for its main
// categories.
func (c *Collector) collectGame(ctx context.Context, name string) (RawGame, error) {
	game, err := c.client.SearchGame(ctx, name)
	if err != nil {
		return RawGame{}, err
	}

	cats, err := c.client.Categories(ctx, game.ID)
	if err != nil {
		return RawGame{}, err
	}

	raw := RawGame{
		Name:         game.Names.International,
		ID:           game.ID,
		Abbreviation: game.Abbreviation,
		Weblink:      game.Weblink,
	}

	collected := 0
	for _, cat := range cats {
		// Full-game categories only; level runs are a different population.
		if cat.Type != "per-game" {
			continue
		}
		if collected >= maxCategoriesPerGame {
			break
		}
		collected++

		runs, err := c.client.VerifiedRuns(ctx, game.ID, cat.ID)
		if err != nil {
			if ctx.Err() != nil {
				return RawGame{}, err
			}
			c.logger.Warn(ctx, "skipping category",
				logger.String("game", raw.Name),
				logger.String("category", cat.Name),
				logger.Error(err))
			continue
		}
		if len(runs) == 0 {
			continue
		}

		raw.Categories = append(raw.Categories, RawCategory{
			Name:      cat.Name,
			ID:        cat.ID,
			TotalRuns: len(runs),
			Runs:      runs,
		})
		c.logger.Info(ctx, "category collected",
			logger.String("game", raw.Name),
			logger.String("category", cat.Name),
			logger.Int("runs", len(runs)))
	}

	return raw, nil
}

// SaveDataset writes a dataset to disk in the JSON shape LoadDataset reads.
func SaveDataset(path string, ds Dataset) error {
	data, err := json.MarshalIndent(ds.Games, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %s", ErrDatasetWrite, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %s", ErrDatasetWrite, err)
	}
	return nil
}
