package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nayef/paceline/internal/adapters/http/api"
	"github.com/nayef/paceline/internal/adapters/ingest"
	"github.com/nayef/paceline/internal/adapters/repository"
	"github.com/nayef/paceline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps implements api.Dependencies over fixed data.
type stubDeps struct {
	results      []model.CategoryResult
	summary      repository.Summary
	backpressure bool
	submitted    []string
}

func (s *stubDeps) Results(_ context.Context) ([]model.CategoryResult, error) {
	return s.results, nil
}

func (s *stubDeps) Result(_ context.Context, game, category string) (model.CategoryResult, error) {
	for _, r := range s.results {
		if r.Game == game && r.Category == category {
			return r, nil
		}
	}
	return model.CategoryResult{}, repository.ErrNotFound
}

func (s *stubDeps) Summary(_ context.Context) (repository.Summary, error) {
	return s.summary, nil
}

func (s *stubDeps) Submit(_ context.Context, game, category string, raws []ingest.RawRun) (string, int, bool) {
	if s.backpressure {
		return "", 0, false
	}
	s.submitted = append(s.submitted, game+"/"+category)
	return "job-1", 0, true
}

func newTestServer(deps *stubDeps) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func TestAPI(t *testing.T) {
	Convey("Given an API server over stored results", t, func() {
		deps := &stubDeps{
			results: []model.CategoryResult{
				{Game: "Portal", Category: "Glitchless", NRecords: 10, BestModel: "exponential", BestRSquared: 0.97},
				{Game: "Portal", Category: "Inbounds", NRecords: 7, BestModel: "wright", BestRSquared: 0.88},
				{Game: "Celeste", Category: "Any%", NRecords: 20, BestModel: "hyperbolic", BestRSquared: 0.93},
			},
			summary: repository.Summary{Analyzed: 3, GoodFits: 3},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When listing games", func() {
			resp, err := http.Get(srv.URL + "/api/games")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then games are grouped and sorted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var games []struct {
					Game       string `json:"game"`
					Categories []struct {
						Category string `json:"category"`
					} `json:"categories"`
				}
				So(json.NewDecoder(resp.Body).Decode(&games), ShouldBeNil)
				So(len(games), ShouldEqual, 2)
				So(games[0].Game, ShouldEqual, "Celeste")
				So(games[1].Game, ShouldEqual, "Portal")
				So(len(games[1].Categories), ShouldEqual, 2)
				So(games[1].Categories[0].Category, ShouldEqual, "Glitchless")
			})
		})

		Convey("When fetching one progression", func() {
			resp, err := http.Get(srv.URL + "/api/progression/Portal/Glitchless")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the stored result is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var result model.CategoryResult
				So(json.NewDecoder(resp.Body).Decode(&result), ShouldBeNil)
				So(result.BestModel, ShouldEqual, "exponential")
				So(result.NRecords, ShouldEqual, 10)
			})
		})

		Convey("When fetching an unknown progression", func() {
			resp, err := http.Get(srv.URL + "/api/progression/Portal/Nope")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is a 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the progression path is incomplete", func() {
			resp, err := http.Get(srv.URL + "/api/progression/Portal")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is a 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When fetching the summary", func() {
			resp, err := http.Get(srv.URL + "/api/summary")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then aggregates are returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var summary repository.Summary
				So(json.NewDecoder(resp.Body).Decode(&summary), ShouldBeNil)
				So(summary.Analyzed, ShouldEqual, 3)
			})
		})

		Convey("When submitting a category for analysis", func() {
			body, _ := json.Marshal(map[string]any{
				"game":     "Portal",
				"category": "Glitchless",
				"runs": []map[string]any{
					{"id": "r1", "date": "2020-01-01", "times": map[string]float64{"primary_t": 100}},
				},
			})
			resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the job is accepted", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusAccepted)

				var ack struct {
					Status string `json:"status"`
					JobID  string `json:"job_id"`
				}
				So(json.NewDecoder(resp.Body).Decode(&ack), ShouldBeNil)
				So(ack.Status, ShouldEqual, "accepted")
				So(ack.JobID, ShouldEqual, "job-1")
				So(deps.submitted, ShouldContain, "Portal/Glitchless")
			})
		})

		Convey("When submitting without a game name", func() {
			body, _ := json.Marshal(map[string]any{
				"category": "Glitchless",
				"runs":     []map[string]any{{"id": "r1"}},
			})
			resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is a 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When submitting a malformed body", func() {
			resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader([]byte("{nope")))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is a 400", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When using the wrong method", func() {
			resp, err := http.Get(srv.URL + "/analyze")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then it is a 404", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When the health endpoint is scraped", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then metrics are served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})

		Convey("When the dashboard is requested", func() {
			resp, err := http.Get(srv.URL + "/dashboard")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the embedded page is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(resp.Header.Get("Content-Type"), ShouldContainSubstring, "text/html")
			})
		})
	})

	Convey("Given a service under backpressure", t, func() {
		srv := newTestServer(&stubDeps{backpressure: true})
		defer srv.Close()

		Convey("When submitting a category", func() {
			body, _ := json.Marshal(map[string]any{
				"game":     "Portal",
				"category": "Glitchless",
				"runs":     []map[string]any{{"id": "r1", "date": "2020-01-01", "times": map[string]float64{"primary_t": 100}}},
			})
			resp, err := http.Post(srv.URL+"/analyze", "application/json", bytes.NewReader(body))
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the API answers 429", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusTooManyRequests)

				var e struct {
					Code string `json:"code"`
				}
				So(json.NewDecoder(resp.Body).Decode(&e), ShouldBeNil)
				So(e.Code, ShouldEqual, "backpressure")
			})
		})
	})
}
