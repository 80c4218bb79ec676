// Package export writes analysis artifacts to disk: the results JSON the
// reporting layer consumes and the progression CSV used for offline
// analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/nayef/paceline/internal/domain/model"
)

const resultFilePermission = 0o644

// WriteResultsJSON writes all category results as an indented JSON array.
func WriteResultsJSON(path string, results []model.CategoryResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, resultFilePermission); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}

// csvHeader matches the collected progression CSV layout.
var csvHeader = []string{
	"game", "category", "record_number", "date",
	"time_seconds", "days_since_first", "percent_of_first",
}

// WriteProgressionCSV writes one row per progression record across all
// category results.
func WriteProgressionCSV(path string, results []model.CategoryResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, result := range results {
		if len(result.Records) == 0 {
			continue
		}
		first := result.Records[0].Seconds
		for _, rec := range result.Records {
			row := []string{
				result.Game,
				result.Category,
				strconv.Itoa(rec.Index),
				rec.Date.Format("2006-01-02"),
				strconv.FormatFloat(rec.Seconds, 'f', -1, 64),
				strconv.FormatFloat(rec.Days, 'f', -1, 64),
				strconv.FormatFloat(rec.Seconds/first*100, 'f', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
