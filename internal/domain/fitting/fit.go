package fitting

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/nayef/paceline/internal/domain/model"
	"github.com/nayef/paceline/internal/domain/progression"
	"github.com/nayef/paceline/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultMaxIterations = 10000
	defaultTieEpsilon    = 1e-9
	minFitObservations   = 4

	// convergeIterations is how long the simplex may stall before the
	// optimizer reports function convergence.
	convergeIterations = 50
	convergeAbsolute   = 1e-12

	// boundsPenalty is the objective value returned outside the feasible
	// box; large but finite so the simplex can recover.
	boundsPenalty = 1e30

	// aicFloor keeps ln(RSS/n) finite for near-perfect fits.
	aicFloor = 1e-12

	// tssEpsilon below which observed times are treated as constant.
	tssEpsilon = 1e-12
)

// defaultHorizons are the future offsets, in days, at which records are
// predicted, matching the published analysis.
func defaultHorizons() []float64 { return []float64{30, 90, 180, 365, 730} }

// Engine fits the closed set of curve families to one progression and
// selects a winner. An Engine holds only configuration, so a single instance
// may analyze categories concurrently.
type Engine struct {
	maxIterations int
	tieEpsilon    float64
	criterion     Criterion
	horizons      []float64
}

// NewEngine creates an Engine with configuration options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		maxIterations: defaultMaxIterations,
		tieEpsilon:    defaultTieEpsilon,
		criterion:     CriterionRSquared,
		horizons:      defaultHorizons(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Criterion returns the configured selection criterion.
func (e *Engine) Criterion() Criterion { return e.criterion }

// Analyze fits every candidate family to the progression, scores each fit,
// and selects the winner. The five fits are mutually independent and run
// concurrently; selection waits for all of them.
//
// A CategoryResult is returned together with ErrAllModelsFailed when no
// family converged, so callers can still report the per-family outcomes.
func (e *Engine) Analyze(ctx context.Context, prog model.Progression) (model.CategoryResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecordFitLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	n := prog.Len()
	if n < minFitObservations {
		return model.CategoryResult{Game: prog.Game, Category: prog.Category, NRecords: n},
			fmt.Errorf("%w: %d observations", ErrTooFewObservations, n)
	}

	times := prog.Seconds()
	days := prog.Days()
	idx := prog.Indexes()

	result := model.CategoryResult{
		Game:           prog.Game,
		Category:       prog.Category,
		NRecords:       n,
		FirstTime:      times[0],
		CurrentTime:    times[n-1],
		ImprovementPct: (1 - times[n-1]/times[0]) * 100,
		DaysSpan:       days[n-1],
		Records:        prog.Records,
		Stats:          progression.Stats(prog),
	}
	if days[n-1] <= 0 {
		result.Diagnostics = append(result.Diagnostics, "near-zero elapsed-time spread; day-based fits are ill-conditioned")
	}

	ssTot := totalSumOfSquares(times)
	candidates := specs()
	result.Fits = make([]model.ModelFit, len(candidates))

	if ssTot <= tssEpsilon {
		// Constant observed times cannot be scored; every family fails and
		// the category surfaces as unscored.
		for i, sp := range candidates {
			metrics.RecordFitAttempt(string(sp.name))
			metrics.RecordFitFailure(string(sp.name))
			result.Fits[i] = model.ModelFit{Family: string(sp.name), Error: ErrIllConditioned.Error()}
		}
		return result, fmt.Errorf("%w for %s / %s: %s", ErrAllModelsFailed, prog.Game, prog.Category, ErrIllConditioned)
	}

	done := make(chan struct{})
	for i, sp := range candidates {
		go func(i int, sp familySpec) {
			defer func() { done <- struct{}{} }()
			x := days
			if sp.usesIndex {
				x = idx
			}
			result.Fits[i] = e.fitFamily(sp, x, times, ssTot)
		}(i, sp)
	}
	for range candidates {
		select {
		case <-done:
		case <-ctx.Done():
			// Fits are CPU-bound and finish on their own; keep draining so
			// the goroutines do not leak.
			<-done
		}
	}

	winner, ok := e.selectBest(result.Fits)
	if !ok {
		return result, fmt.Errorf("%w for %s / %s", ErrAllModelsFailed, prog.Game, prog.Category)
	}
	result.BestModel = winner.Family
	result.BestRSquared = winner.RSquared
	metrics.RecordModelWin(winner.Family)

	if HasAsymptote(Family(winner.Family)) {
		c := winner.Params[len(winner.Params)-1]
		result.TheoreticalLimit = &c
		if result.FirstTime > c {
			pct := (result.CurrentTime - c) / (result.FirstTime - c) * 100
			result.PercentToLimit = &pct
		}
		result.Predictions = e.predict(Family(winner.Family), winner.Params, result)
	}

	return result, nil
}

// fitFamily runs bounded nonlinear least squares for one family via
// Nelder-Mead on the residual sum of squares, with out-of-bounds parameters
// penalized. The fit is marked failed when the optimizer errors, exhausts
// its budget, or yields non-finite parameters or predictions.
func (e *Engine) fitFamily(sp familySpec, x, y []float64, ssTot float64) model.ModelFit {
	metrics.RecordFitAttempt(string(sp.name))

	lower, upper := sp.bounds(y)
	objective := func(p []float64) float64 {
		for i := range p {
			if p[i] < lower[i] || p[i] > upper[i] {
				return boundsPenalty
			}
		}
		rss := 0.0
		for i, xi := range x {
			d := sp.eval(p, xi) - y[i]
			if !isFinite(d) {
				return boundsPenalty
			}
			rss += d * d
		}
		return rss
	}

	settings := &optimize.Settings{
		Converger:       &optimize.FunctionConverge{Absolute: convergeAbsolute, Iterations: convergeIterations},
		MajorIterations: e.maxIterations,
	}
	guess := sp.guess(y, x)
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, guess, settings, &optimize.NelderMead{})
	if err != nil {
		metrics.RecordFitFailure(string(sp.name))
		return model.ModelFit{Family: string(sp.name), Error: fmt.Sprintf("%s: %s", ErrFitDiverged, err)}
	}
	if res.Status == optimize.IterationLimit || res.Status == optimize.FunctionEvaluationLimit || res.Status == optimize.RuntimeLimit {
		metrics.RecordFitFailure(string(sp.name))
		return model.ModelFit{Family: string(sp.name), Error: fmt.Sprintf("%s: iteration budget exhausted", ErrFitDiverged)}
	}

	params := res.X
	for _, p := range params {
		if !isFinite(p) {
			metrics.RecordFitFailure(string(sp.name))
			return model.ModelFit{Family: string(sp.name), Error: fmt.Sprintf("%s: non-finite parameter", ErrFitDiverged)}
		}
	}

	rss := 0.0
	for i, xi := range x {
		pred := sp.eval(params, xi)
		if !isFinite(pred) {
			metrics.RecordFitFailure(string(sp.name))
			return model.ModelFit{Family: string(sp.name), Error: fmt.Sprintf("%s: non-finite prediction", ErrFitDiverged)}
		}
		d := pred - y[i]
		rss += d * d
	}
	if rss >= boundsPenalty {
		metrics.RecordFitFailure(string(sp.name))
		return model.ModelFit{Family: string(sp.name), Error: fmt.Sprintf("%s: stuck outside feasible region", ErrFitDiverged)}
	}

	n := float64(len(y))
	k := float64(sp.paramCount)
	return model.ModelFit{
		Family:    string(sp.name),
		Params:    params,
		RSquared:  1 - rss/ssTot,
		RMSE:      math.Sqrt(rss / n),
		AIC:       2*k + n*math.Log(math.Max(rss, aicFloor)/n),
		Converged: true,
	}
}

// selectBest picks the winner among converged fits: highest R-squared (or
// lowest AIC when configured), with ties inside tieEpsilon resolved toward
// the family with fewer parameters, then fixed family order. Returns false
// when no fit converged.
func (e *Engine) selectBest(fits []model.ModelFit) (model.ModelFit, bool) {
	bestScore := math.Inf(-1)
	found := false
	for _, f := range fits {
		if !f.Converged {
			continue
		}
		found = true
		if s := e.score(f); s > bestScore {
			bestScore = s
		}
	}
	if !found {
		return model.ModelFit{}, false
	}

	var winner model.ModelFit
	winnerParams := math.MaxInt32
	for _, f := range fits {
		if !f.Converged || e.score(f) < bestScore-e.tieEpsilon {
			continue
		}
		if k := ParamCount(Family(f.Family)); k < winnerParams {
			winner = f
			winnerParams = k
		}
	}
	return winner, true
}

// score maps a fit onto a maximized scale for the active criterion.
func (e *Engine) score(f model.ModelFit) float64 {
	if e.criterion == CriterionAIC {
		return -f.AIC
	}
	return f.RSquared
}

// predict extrapolates the winning intercept family to the configured
// future horizons. Wright's curve has no finite floor and is never
// extrapolated.
func (e *Engine) predict(family Family, params []float64, result model.CategoryResult) []model.Prediction {
	var spec familySpec
	for _, sp := range specs() {
		if sp.name == family {
			spec = sp
			break
		}
	}
	if spec.eval == nil || spec.usesIndex {
		return nil
	}

	out := make([]model.Prediction, 0, len(e.horizons))
	for _, h := range e.horizons {
		predicted := spec.eval(params, result.DaysSpan+h)
		out = append(out, model.Prediction{
			DaysFromNow:            h,
			PredictedTime:          predicted,
			ImprovementFromCurrent: result.CurrentTime - predicted,
		})
	}
	return out
}

// totalSumOfSquares is the variance of y about its mean, unnormalized.
func totalSumOfSquares(y []float64) float64 {
	mean := stat.Mean(y, nil)
	ss := 0.0
	for _, v := range y {
		d := v - mean
		ss += d * d
	}
	return ss
}
