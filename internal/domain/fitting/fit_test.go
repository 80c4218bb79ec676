package fitting_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/nayef/paceline/internal/domain/fitting"
	"github.com/nayef/paceline/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func progressionFrom(days, times []float64) model.Progression {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	p := model.Progression{Game: "g", Category: "c"}
	for i := range days {
		p.Records = append(p.Records, model.Record{
			Run: model.Run{
				Game:     "g",
				Category: "c",
				Seconds:  times[i],
				Date:     start.AddDate(0, 0, int(days[i])),
			},
			Index: i + 1,
			Days:  days[i],
		})
	}
	return p
}

// exponentialProgression samples a*exp(-b*t)+c without noise.
func exponentialProgression(n int, a, b, c float64) model.Progression {
	days := make([]float64, n)
	times := make([]float64, n)
	for i := 0; i < n; i++ {
		days[i] = float64(i) * 10
		times[i] = a*math.Exp(-b*days[i]) + c
	}
	return progressionFrom(days, times)
}

func TestEngineAnalyze(t *testing.T) {
	Convey("Given an engine with default options", t, func() {
		e := fitting.NewEngine()
		ctx := context.Background()

		Convey("When analyzing a minimal four-record progression", func() {
			prog := progressionFrom(
				[]float64{0, 10, 30, 60},
				[]float64{100, 80, 70, 65},
			)
			result, err := e.Analyze(ctx, prog)

			Convey("Then every family is attempted and a winner is selected", func() {
				So(err, ShouldBeNil)
				So(len(result.Fits), ShouldEqual, 5)
				So(result.BestModel, ShouldNotBeEmpty)
				So(result.NRecords, ShouldEqual, 4)
				So(result.FirstTime, ShouldEqual, 100)
				So(result.CurrentTime, ShouldEqual, 65)
				So(result.DaysSpan, ShouldEqual, 60)
			})

			Convey("Then the winner's score is the maximum among converged fits", func() {
				for _, f := range result.Fits {
					if f.Converged {
						So(result.BestRSquared, ShouldBeGreaterThanOrEqualTo, f.RSquared-1e-9)
					}
				}
			})

			Convey("Then each converged fit carries finite scores", func() {
				for _, f := range result.Fits {
					if !f.Converged {
						continue
					}
					So(math.IsNaN(f.RSquared), ShouldBeFalse)
					So(math.IsInf(f.AIC, 0), ShouldBeFalse)
					So(f.RMSE, ShouldBeGreaterThanOrEqualTo, 0)
				}
			})
		})

		Convey("When analyzing a clean exponential decay", func() {
			prog := exponentialProgression(20, 50, 0.02, 60)
			result, err := e.Analyze(ctx, prog)

			Convey("Then the fit quality is high", func() {
				So(err, ShouldBeNil)
				So(result.BestRSquared, ShouldBeGreaterThan, 0.9)
			})

			Convey("Then the exponential family converges", func() {
				fit, ok := result.Fit("exponential")
				So(ok, ShouldBeTrue)
				So(fit.Converged, ShouldBeTrue)
				So(fit.RSquared, ShouldBeGreaterThan, 0.9)
			})

			Convey("Then the winner exposes a theoretical limit and predictions", func() {
				So(result.TheoreticalLimit, ShouldNotBeNil)
				So(*result.TheoreticalLimit, ShouldBeLessThan, result.CurrentTime)
				So(len(result.Predictions), ShouldEqual, 5)
				So(result.Predictions[0].DaysFromNow, ShouldEqual, 30)
				So(result.Predictions[4].DaysFromNow, ShouldEqual, 730)
			})

			Convey("Then predicted times never fall below the fitted floor", func() {
				for _, p := range result.Predictions {
					So(p.PredictedTime, ShouldBeGreaterThanOrEqualTo, *result.TheoreticalLimit-1e-6)
				}
			})
		})

		Convey("When analyzing the same progression twice", func() {
			prog := exponentialProgression(15, 40, 0.015, 80)
			first, err1 := e.Analyze(ctx, prog)
			second, err2 := e.Analyze(ctx, prog)

			Convey("Then selection is deterministic", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second.BestModel, ShouldEqual, first.BestModel)
				So(second.BestRSquared, ShouldEqual, first.BestRSquared)
			})
		})

		Convey("When all observed times are identical", func() {
			prog := progressionFrom(
				[]float64{0, 10, 20, 30, 40},
				[]float64{100, 100, 100, 100, 100},
			)
			result, err := e.Analyze(ctx, prog)

			Convey("Then every family fails and the category is unscored", func() {
				So(err, ShouldWrap, fitting.ErrAllModelsFailed)
				So(len(result.Fits), ShouldEqual, 5)
				for _, f := range result.Fits {
					So(f.Converged, ShouldBeFalse)
					So(f.Error, ShouldNotBeEmpty)
				}
				So(result.BestModel, ShouldBeEmpty)
			})
		})

		Convey("When the progression has too few observations", func() {
			prog := progressionFrom(
				[]float64{0, 10, 20},
				[]float64{100, 90, 85},
			)
			_, err := e.Analyze(ctx, prog)

			Convey("Then the engine refuses to fit", func() {
				So(err, ShouldWrap, fitting.ErrTooFewObservations)
			})
		})

		Convey("When all records share one date", func() {
			prog := progressionFrom(
				[]float64{0, 0, 0, 0, 0},
				[]float64{100, 95, 90, 85, 80},
			)
			result, _ := e.Analyze(ctx, prog)

			Convey("Then a diagnostic flags the degenerate time axis", func() {
				So(len(result.Diagnostics), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an engine configured for AIC selection", t, func() {
		e := fitting.NewEngine(fitting.WithCriterion(fitting.CriterionAIC))

		Convey("When analyzing a clean exponential decay", func() {
			prog := exponentialProgression(20, 50, 0.02, 60)
			result, err := e.Analyze(context.Background(), prog)

			Convey("Then the winner minimizes AIC among converged fits", func() {
				So(err, ShouldBeNil)
				winner, ok := result.Fit(result.BestModel)
				So(ok, ShouldBeTrue)
				for _, f := range result.Fits {
					if f.Converged {
						So(winner.AIC, ShouldBeLessThanOrEqualTo, f.AIC+1e-9)
					}
				}
			})
		})
	})

	Convey("Given an engine with a huge tie epsilon", t, func() {
		e := fitting.NewEngine(fitting.WithTieEpsilon(10))

		Convey("When every family lands inside the tie band", func() {
			prog := exponentialProgression(20, 50, 0.02, 60)
			result, err := e.Analyze(context.Background(), prog)

			Convey("Then the fewest-parameter family wins", func() {
				So(err, ShouldBeNil)
				winnerParams := fitting.ParamCount(fitting.Family(result.BestModel))
				for _, f := range result.Fits {
					if f.Converged {
						So(winnerParams, ShouldBeLessThanOrEqualTo, fitting.ParamCount(fitting.Family(f.Family)))
					}
				}
			})
		})
	})
}

func TestFamilies(t *testing.T) {
	Convey("Given the closed family set", t, func() {
		fams := fitting.Families()

		Convey("Then the order is fixed and complete", func() {
			So(fams, ShouldResemble, []fitting.Family{
				fitting.FamilyExponential,
				fitting.FamilyPowerLaw,
				fitting.FamilyLogarithmic,
				fitting.FamilyHyperbolic,
				fitting.FamilyWright,
			})
		})

		Convey("Then parameter counts match the functional forms", func() {
			So(fitting.ParamCount(fitting.FamilyWright), ShouldEqual, 2)
			for _, f := range fams[:4] {
				So(fitting.ParamCount(f), ShouldEqual, 3)
			}
		})

		Convey("Then only intercept families report an asymptote", func() {
			So(fitting.HasAsymptote(fitting.FamilyExponential), ShouldBeTrue)
			So(fitting.HasAsymptote(fitting.FamilyPowerLaw), ShouldBeTrue)
			So(fitting.HasAsymptote(fitting.FamilyLogarithmic), ShouldBeTrue)
			So(fitting.HasAsymptote(fitting.FamilyHyperbolic), ShouldBeTrue)
			So(fitting.HasAsymptote(fitting.FamilyWright), ShouldBeFalse)
		})
	})
}
