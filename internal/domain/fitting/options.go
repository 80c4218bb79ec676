// Package fitting implements nonlinear least-squares fitting of learning
// curve models to world-record progressions, and winner selection.
package fitting

// Criterion selects how the winning family is chosen.
type Criterion string

// Selection criteria. R-squared is the primary policy; AIC is exposed as a
// configurable alternative that penalizes parameter count.
const (
	CriterionRSquared Criterion = "r2"
	CriterionAIC      Criterion = "aic"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithMaxIterations bounds the optimizer iteration budget per fit.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}

// WithTieEpsilon sets the score band within which two families are
// considered tied, in which case the one with fewer parameters wins.
func WithTieEpsilon(eps float64) Option {
	return func(e *Engine) {
		if eps > 0 {
			e.tieEpsilon = eps
		}
	}
}

// WithCriterion sets the selection criterion.
func WithCriterion(c Criterion) Option {
	return func(e *Engine) {
		if c == CriterionRSquared || c == CriterionAIC {
			e.criterion = c
		}
	}
}

// WithPredictionHorizons sets the future horizons, in days, at which the
// winning model is extrapolated.
func WithPredictionHorizons(days []float64) Option {
	return func(e *Engine) {
		if len(days) > 0 {
			e.horizons = days
		}
	}
}
