package export_test

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nayef/paceline/internal/adapters/export"
	"github.com/nayef/paceline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleResults() []model.CategoryResult {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []model.Record{
		{Run: model.Run{Seconds: 100, Date: start}, Index: 1, Days: 0},
		{Run: model.Run{Seconds: 80, Date: start.AddDate(0, 0, 30)}, Index: 2, Days: 30},
		{Run: model.Run{Seconds: 75, Date: start.AddDate(0, 0, 90)}, Index: 3, Days: 90},
	}
	return []model.CategoryResult{
		{
			Game:         "Portal",
			Category:     "Glitchless",
			NRecords:     3,
			FirstTime:    100,
			CurrentTime:  75,
			Records:      records,
			BestModel:    "exponential",
			BestRSquared: 0.97,
			Fits: []model.ModelFit{
				{Family: "exponential", Params: []float64{25, 0.02, 74}, RSquared: 0.97, Converged: true},
			},
		},
	}
}

func TestWriteResultsJSON(t *testing.T) {
	Convey("Given analysis results", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "results.json")

		Convey("When writing them as JSON", func() {
			err := export.WriteResultsJSON(path, sampleResults())

			Convey("Then the file round-trips", func() {
				So(err, ShouldBeNil)

				data, err := os.ReadFile(path)
				So(err, ShouldBeNil)

				var back []model.CategoryResult
				So(json.Unmarshal(data, &back), ShouldBeNil)
				So(len(back), ShouldEqual, 1)
				So(back[0].Game, ShouldEqual, "Portal")
				So(back[0].BestModel, ShouldEqual, "exponential")
				So(len(back[0].Records), ShouldEqual, 3)
				So(len(back[0].Fits), ShouldEqual, 1)
			})
		})

		Convey("When the destination directory does not exist", func() {
			err := export.WriteResultsJSON(filepath.Join(dir, "missing", "results.json"), sampleResults())

			Convey("Then the write fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestWriteProgressionCSV(t *testing.T) {
	Convey("Given analysis results with progressions", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "progressions.csv")

		Convey("When writing the CSV", func() {
			err := export.WriteProgressionCSV(path, sampleResults())

			Convey("Then rows flatten the progression", func() {
				So(err, ShouldBeNil)

				f, err := os.Open(path)
				So(err, ShouldBeNil)
				defer f.Close()

				rows, err := csv.NewReader(f).ReadAll()
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 4) // header + 3 records
				So(rows[0][0], ShouldEqual, "game")
				So(rows[1], ShouldResemble, []string{"Portal", "Glitchless", "1", "2020-01-01", "100", "0", "100"})
				So(rows[3][2], ShouldEqual, "3")
				So(rows[3][6], ShouldEqual, "75")
			})
		})

		Convey("When a result has no records", func() {
			results := []model.CategoryResult{{Game: "Empty", Category: "c"}}
			err := export.WriteProgressionCSV(path, results)

			Convey("Then only the header is written", func() {
				So(err, ShouldBeNil)

				f, err := os.Open(path)
				So(err, ShouldBeNil)
				defer f.Close()

				rows, err := csv.NewReader(f).ReadAll()
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 1)
			})
		})
	})
}
