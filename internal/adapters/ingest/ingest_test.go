package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nayef/paceline/internal/adapters/ingest"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateRuns(t *testing.T) {
	Convey("Given a mix of valid and malformed raw runs", t, func() {
		raws := []ingest.RawRun{
			{ID: "r1", Date: "2020-01-01", Times: ingest.RawTime{PrimaryT: 100}},
			{ID: "r2", Date: "", Times: ingest.RawTime{PrimaryT: 90}},
			{ID: "r3", Date: "not-a-date", Times: ingest.RawTime{PrimaryT: 85}},
			{ID: "r4", Date: "2020-02-01", Times: ingest.RawTime{PrimaryT: 0}},
			{ID: "r5", Date: "2020-03-01", Times: ingest.RawTime{PrimaryT: -5}},
			{ID: "r6", Date: "2020-04-01", Times: ingest.RawTime{PrimaryT: 80}, Weblink: "https://example.com/r6"},
		}

		Convey("When validating them", func() {
			runs, rejects := ingest.ValidateRuns("g", "c", raws)

			Convey("Then only well-formed runs survive", func() {
				So(len(runs), ShouldEqual, 2)
				So(runs[0].RunID, ShouldEqual, "r1")
				So(runs[1].RunID, ShouldEqual, "r6")
				So(runs[1].Weblink, ShouldEqual, "https://example.com/r6")
			})

			Convey("Then each rejection wraps ErrMalformedRun", func() {
				So(len(rejects), ShouldEqual, 4)
				for _, err := range rejects {
					So(err, ShouldWrap, ingest.ErrMalformedRun)
				}
			})

			Convey("Then runs carry the category identity and parsed date", func() {
				So(runs[0].Game, ShouldEqual, "g")
				So(runs[0].Category, ShouldEqual, "c")
				So(runs[0].Date.Year(), ShouldEqual, 2020)
			})
		})
	})

	Convey("Given an empty input", t, func() {
		Convey("When validating", func() {
			runs, rejects := ingest.ValidateRuns("g", "c", nil)

			Convey("Then both outputs are empty", func() {
				So(len(runs), ShouldEqual, 0)
				So(len(rejects), ShouldEqual, 0)
			})
		})
	})
}

func TestRawCategory(t *testing.T) {
	Convey("Given a category with both run lists", t, func() {
		cat := ingest.RawCategory{
			Name:          "Any%",
			Runs:          []ingest.RawRun{{ID: "full"}},
			WRProgression: []ingest.RawRun{{ID: "wr"}},
		}

		Convey("Then the full run list is preferred", func() {
			So(cat.RawRuns()[0].ID, ShouldEqual, "full")
		})
	})

	Convey("Given a category with only a stored progression", t, func() {
		cat := ingest.RawCategory{
			Name:          "Any%",
			WRProgression: []ingest.RawRun{{ID: "wr"}},
		}

		Convey("Then the progression is used", func() {
			So(cat.RawRuns()[0].ID, ShouldEqual, "wr")
		})
	})
}

func TestLoadDataset(t *testing.T) {
	Convey("Given a collected dataset on disk", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "dataset.json")
		payload := `[
			{
				"name": "Portal",
				"id": "abc",
				"categories": [
					{
						"name": "Glitchless",
						"id": "cat1",
						"runs": [
							{"id": "r1", "date": "2020-01-01", "times": {"primary_t": 3600}},
							{"id": "r2", "date": "2020-02-01", "times": {"primary_t": 3500}}
						]
					}
				]
			}
		]`
		So(os.WriteFile(path, []byte(payload), 0o644), ShouldBeNil)

		Convey("When loading it", func() {
			ds, err := ingest.LoadDataset(path)

			Convey("Then games and categories round-trip", func() {
				So(err, ShouldBeNil)
				So(len(ds.Games), ShouldEqual, 1)
				So(ds.Games[0].Name, ShouldEqual, "Portal")
				So(len(ds.Games[0].Categories), ShouldEqual, 1)
				So(len(ds.Games[0].Categories[0].RawRuns()), ShouldEqual, 2)
				So(ds.Games[0].Categories[0].RawRuns()[0].Times.PrimaryT, ShouldEqual, 3600)
			})
		})

		Convey("When the file does not exist", func() {
			_, err := ingest.LoadDataset(filepath.Join(dir, "missing.json"))

			Convey("Then the error wraps ErrDatasetRead", func() {
				So(err, ShouldWrap, ingest.ErrDatasetRead)
			})
		})

		Convey("When the file is not valid JSON", func() {
			bad := filepath.Join(dir, "bad.json")
			So(os.WriteFile(bad, []byte("{nope"), 0o644), ShouldBeNil)
			_, err := ingest.LoadDataset(bad)

			Convey("Then the error wraps ErrDatasetRead", func() {
				So(err, ShouldWrap, ingest.ErrDatasetRead)
			})
		})
	})
}
